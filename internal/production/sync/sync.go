// Package sync imports catalog data files into the database.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rsned/production-planner/internal/production/catalog"
	"github.com/rsned/production-planner/internal/production/db"
	"github.com/rsned/production-planner/pkg/production"
)

// Sync metadata keys.
const (
	MetaLastSync = "catalog_last_sync"
	MetaSource   = "catalog_source"
	MetaRecipes  = "recipes_count"
	MetaItems    = "items_count"
)

// Syncer loads catalog files into the database.
type Syncer struct {
	db     *db.DB
	logger *slog.Logger
}

// NewSyncer creates a new Syncer. logger may be nil.
func NewSyncer(database *db.DB, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Syncer{db: database, logger: logger}
}

// CatalogImport is the accepted catalog file layout. Several exporters
// name things differently, so most fields have an alternate spelling.
type CatalogImport struct {
	Items          []ItemImport          `json:"items"`
	Buildings      []BuildingImport      `json:"buildings"`
	Recipes        []RecipeImport        `json:"recipes"`
	WorldResources []WorldResourceImport `json:"world_resources,omitempty"`
	Resources      []WorldResourceImport `json:"resources,omitempty"`
}

// ItemImport is one item entry.
type ItemImport struct {
	ID          string `json:"id,omitempty"`
	ClassName   string `json:"className,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Form        string `json:"form,omitempty"`
	Liquid      bool   `json:"liquid,omitempty"`
	Scarce      bool   `json:"scarce,omitempty"`
}

// BuildingImport is one building entry.
type BuildingImport struct {
	ID               string  `json:"id,omitempty"`
	ClassName        string  `json:"className,omitempty"`
	Name             string  `json:"name"`
	PowerMW          float64 `json:"power_mw,omitempty"`
	PowerConsumption float64 `json:"powerConsumption,omitempty"`
	AreaM2           float64 `json:"area_m2,omitempty"`
	Area             float64 `json:"area,omitempty"`
}

// AmountImport is an ingredient or product entry. Amounts are per cycle
// unless PerMinute is set.
type AmountImport struct {
	ItemID     string  `json:"item_id,omitempty"`
	Item       string  `json:"item,omitempty"`
	Amount     float64 `json:"amount,omitempty"`
	PerMinute  float64 `json:"per_minute,omitempty"`
	Multiplier float64 `json:"multiplier,omitempty"`
}

// RecipeImport is one recipe entry.
type RecipeImport struct {
	ID          string   `json:"id,omitempty"`
	ClassName   string   `json:"className,omitempty"`
	Name        string   `json:"name"`
	BuildingID  string   `json:"building_id,omitempty"`
	ProducedIn  []string `json:"producedIn,omitempty"`
	DurationSec float64  `json:"duration_sec,omitempty"`
	Time        float64  `json:"time,omitempty"`
	Alternate   bool     `json:"alternate,omitempty"`
	MaxRate     float64  `json:"max_rate,omitempty"`

	Ingredients []AmountImport `json:"ingredients,omitempty"`
	Inputs      []AmountImport `json:"inputs,omitempty"`
	Products    []AmountImport `json:"products,omitempty"`
	Outputs     []AmountImport `json:"outputs,omitempty"`
}

// WorldResourceImport is one world resource entry.
type WorldResourceImport struct {
	ItemID  string  `json:"item_id,omitempty"`
	Item    string  `json:"item,omitempty"`
	MaxRate float64 `json:"max_rate,omitempty"`
	Max     float64 `json:"max,omitempty"`
}

// ImportCatalogFromFile replaces the stored catalog with the contents of a
// JSON file.
func (s *Syncer) ImportCatalogFromFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	var imp CatalogImport
	if err := json.Unmarshal(data, &imp); err != nil {
		return fmt.Errorf("parsing JSON: %w", err)
	}

	if err := s.ImportCatalog(ctx, imp); err != nil {
		return err
	}
	return s.db.SetSyncMetadata(ctx, MetaSource, path)
}

// ImportCatalog validates imp and replaces the stored catalog with it.
func (s *Syncer) ImportCatalog(ctx context.Context, imp CatalogImport) error {
	items := make([]production.Item, 0, len(imp.Items))
	for _, it := range imp.Items {
		items = append(items, transformItem(it))
	}
	buildings := make([]production.Building, 0, len(imp.Buildings))
	for _, b := range imp.Buildings {
		buildings = append(buildings, transformBuilding(b))
	}
	recipes := make([]production.Recipe, 0, len(imp.Recipes))
	for _, r := range imp.Recipes {
		recipes = append(recipes, transformRecipe(r))
	}
	world := make([]production.WorldResource, 0, len(imp.WorldResources)+len(imp.Resources))
	for _, wr := range imp.WorldResources {
		world = append(world, transformWorldResource(wr))
	}
	for _, wr := range imp.Resources {
		world = append(world, transformWorldResource(wr))
	}

	// Reject bad data before touching the stored catalog.
	if _, err := catalog.New(items, buildings, recipes, world); err != nil {
		return fmt.Errorf("validating catalog: %w", err)
	}

	if err := s.ClearAll(ctx); err != nil {
		return err
	}
	if err := db.NewItemStore(s.db).BulkInsertItems(ctx, items); err != nil {
		return fmt.Errorf("inserting items: %w", err)
	}
	if err := db.NewBuildingStore(s.db).BulkInsertBuildings(ctx, buildings); err != nil {
		return fmt.Errorf("inserting buildings: %w", err)
	}
	if err := db.NewRecipeStore(s.db).BulkInsertRecipes(ctx, recipes); err != nil {
		return fmt.Errorf("inserting recipes: %w", err)
	}
	if err := db.NewItemStore(s.db).BulkInsertWorldResources(ctx, world); err != nil {
		return fmt.Errorf("inserting world resources: %w", err)
	}

	// Update sync metadata
	if err := s.db.SetSyncMetadataValues(ctx, map[string]string{
		MetaLastSync: time.Now().Format(time.RFC3339),
		MetaRecipes:  strconv.Itoa(len(recipes)),
		MetaItems:    strconv.Itoa(len(items)),
	}); err != nil {
		return err
	}

	s.logger.Info("catalog imported",
		"items", humanize.Comma(int64(len(items))),
		"buildings", humanize.Comma(int64(len(buildings))),
		"recipes", humanize.Comma(int64(len(recipes))),
		"world_resources", humanize.Comma(int64(len(world))))
	return nil
}

// ClearAll removes the stored catalog. Recipes go first because they
// reference items and buildings.
func (s *Syncer) ClearAll(ctx context.Context) error {
	if err := db.NewRecipeStore(s.db).ClearRecipes(ctx); err != nil {
		return err
	}
	if err := db.NewItemStore(s.db).ClearItems(ctx); err != nil {
		return err
	}
	return db.NewBuildingStore(s.db).ClearBuildings(ctx)
}

// LastSync returns when the catalog was last imported, or the zero time.
func (s *Syncer) LastSync(ctx context.Context) (time.Time, error) {
	value, err := s.db.GetSyncMetadata(ctx, MetaLastSync)
	if err != nil || value == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s: %w", MetaLastSync, err)
	}
	return t, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...float64) float64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

// transformItem converts import format to domain format.
func transformItem(imp ItemImport) production.Item {
	item := production.Item{
		ID:          firstNonEmpty(imp.ID, imp.ClassName),
		Name:        imp.Name,
		Description: imp.Description,
		Form:        imp.Form,
		Scarce:      imp.Scarce,
	}
	if item.Form == "" && imp.Liquid {
		item.Form = "liquid"
	}
	if item.Name == "" {
		item.Name = item.ID
	}
	return item
}

// transformBuilding converts import format to domain format.
func transformBuilding(imp BuildingImport) production.Building {
	b := production.Building{
		ID:      firstNonEmpty(imp.ID, imp.ClassName),
		Name:    imp.Name,
		PowerMW: firstNonZero(imp.PowerMW, imp.PowerConsumption),
		AreaM2:  firstNonZero(imp.AreaM2, imp.Area),
	}
	if b.Name == "" {
		b.Name = b.ID
	}
	return b
}

// transformRecipe converts import format to domain format, normalizing
// per-cycle amounts to per-minute rates.
func transformRecipe(imp RecipeImport) production.Recipe {
	r := production.Recipe{
		ID:          firstNonEmpty(imp.ID, imp.ClassName),
		Name:        imp.Name,
		BuildingID:  imp.BuildingID,
		DurationSec: firstNonZero(imp.DurationSec, imp.Time),
		Alternate:   imp.Alternate,
		MaxRate:     imp.MaxRate,
	}
	if r.BuildingID == "" && len(imp.ProducedIn) > 0 {
		r.BuildingID = imp.ProducedIn[0]
	}
	if r.Name == "" {
		r.Name = r.ID
	}

	ingredients := imp.Ingredients
	if len(ingredients) == 0 {
		ingredients = imp.Inputs
	}
	for _, in := range ingredients {
		itemID := firstNonEmpty(in.ItemID, in.Item)
		if itemID == "" {
			continue
		}
		r.Ingredients = append(r.Ingredients, production.Ingredient{
			ItemID: itemID,
			Amount: perMinute(in, r.DurationSec),
		})
	}

	products := imp.Products
	if len(products) == 0 {
		products = imp.Outputs
	}
	for _, p := range products {
		itemID := firstNonEmpty(p.ItemID, p.Item)
		if itemID == "" {
			continue
		}
		r.Products = append(r.Products, production.Product{
			ItemID:     itemID,
			Amount:     perMinute(p, r.DurationSec),
			Multiplier: p.Multiplier,
		})
	}

	return r
}

func perMinute(a AmountImport, durationSec float64) float64 {
	switch {
	case a.PerMinute > 0:
		return a.PerMinute
	case durationSec > 0:
		return a.Amount * 60 / durationSec
	default:
		return a.Amount
	}
}

// transformWorldResource converts import format to domain format.
func transformWorldResource(imp WorldResourceImport) production.WorldResource {
	return production.WorldResource{
		ItemID:  firstNonEmpty(imp.ItemID, imp.Item),
		MaxRate: firstNonZero(imp.MaxRate, imp.Max),
	}
}
