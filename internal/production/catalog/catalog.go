// Package catalog holds the read-only index of items, buildings and recipes.
//
// A Catalog is built once, either from plain values with New or from the
// SQLite store with Load, and is never mutated afterwards. All methods are
// safe for concurrent use without locking.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rsned/production-planner/internal/production/db"
	"github.com/rsned/production-planner/pkg/production"
)

// ErrInvalidCatalog is returned when catalog data references unknown ids.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is an immutable in-memory index of the game data.
type Catalog struct {
	items     map[string]production.Item
	buildings map[string]production.Building
	recipes   map[string]*production.Recipe
	world     map[string]production.WorldResource

	itemIDs   []string
	recipeIDs []string
	worldIDs  []string

	producers map[string][]string
	consumers map[string][]string
}

// New builds a Catalog and validates that every reference resolves.
func New(
	items []production.Item,
	buildings []production.Building,
	recipes []production.Recipe,
	world []production.WorldResource,
) (*Catalog, error) {
	c := &Catalog{
		items:     make(map[string]production.Item, len(items)),
		buildings: make(map[string]production.Building, len(buildings)),
		recipes:   make(map[string]*production.Recipe, len(recipes)),
		world:     make(map[string]production.WorldResource, len(world)),
		producers: make(map[string][]string),
		consumers: make(map[string][]string),
	}

	for _, it := range items {
		if it.ID == "" {
			return nil, fmt.Errorf("%w: item with empty id", ErrInvalidCatalog)
		}
		c.items[it.ID] = it
	}
	for _, b := range buildings {
		if b.ID == "" {
			return nil, fmt.Errorf("%w: building with empty id", ErrInvalidCatalog)
		}
		c.buildings[b.ID] = b
	}

	for i := range recipes {
		r := recipes[i]
		if err := c.validateRecipe(&r); err != nil {
			return nil, err
		}
		r.Ingredients = append([]production.Ingredient(nil), r.Ingredients...)
		r.Products = append([]production.Product(nil), r.Products...)
		c.recipes[r.ID] = &r

		for _, in := range r.Ingredients {
			c.consumers[in.ItemID] = appendUnique(c.consumers[in.ItemID], r.ID)
		}
		for _, p := range r.Products {
			c.producers[p.ItemID] = appendUnique(c.producers[p.ItemID], r.ID)
		}
	}

	for _, wr := range world {
		if _, ok := c.items[wr.ItemID]; !ok {
			return nil, fmt.Errorf("%w: world resource references unknown item %q", ErrInvalidCatalog, wr.ItemID)
		}
		if wr.MaxRate < 0 {
			return nil, fmt.Errorf("%w: world resource %q has negative max rate", ErrInvalidCatalog, wr.ItemID)
		}
		c.world[wr.ItemID] = wr
	}

	c.itemIDs = sortedKeys(c.items)
	c.recipeIDs = sortedKeys(c.recipes)
	c.worldIDs = sortedKeys(c.world)
	for _, ids := range c.producers {
		sort.Strings(ids)
	}
	for _, ids := range c.consumers {
		sort.Strings(ids)
	}

	return c, nil
}

func (c *Catalog) validateRecipe(r *production.Recipe) error {
	if r.ID == "" {
		return fmt.Errorf("%w: recipe with empty id", ErrInvalidCatalog)
	}
	if _, dup := c.recipes[r.ID]; dup {
		return fmt.Errorf("%w: duplicate recipe %q", ErrInvalidCatalog, r.ID)
	}
	if _, ok := c.buildings[r.BuildingID]; !ok {
		return fmt.Errorf("%w: recipe %q references unknown building %q", ErrInvalidCatalog, r.ID, r.BuildingID)
	}
	if len(r.Products) == 0 {
		return fmt.Errorf("%w: recipe %q has no products", ErrInvalidCatalog, r.ID)
	}
	if r.MaxRate < 0 {
		return fmt.Errorf("%w: recipe %q has negative max rate", ErrInvalidCatalog, r.ID)
	}
	for _, in := range r.Ingredients {
		if _, ok := c.items[in.ItemID]; !ok {
			return fmt.Errorf("%w: recipe %q consumes unknown item %q", ErrInvalidCatalog, r.ID, in.ItemID)
		}
		if in.Amount <= 0 {
			return fmt.Errorf("%w: recipe %q has non-positive ingredient amount", ErrInvalidCatalog, r.ID)
		}
	}
	for _, p := range r.Products {
		if _, ok := c.items[p.ItemID]; !ok {
			return fmt.Errorf("%w: recipe %q produces unknown item %q", ErrInvalidCatalog, r.ID, p.ItemID)
		}
		if p.Rate() <= 0 {
			return fmt.Errorf("%w: recipe %q has non-positive product amount", ErrInvalidCatalog, r.ID)
		}
	}
	return nil
}

// Load reads the whole catalog from the database.
func Load(ctx context.Context, database *db.DB) (*Catalog, error) {
	items, err := db.NewItemStore(database).GetAllItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}
	buildings, err := db.NewBuildingStore(database).GetAllBuildings(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading buildings: %w", err)
	}
	recipes, err := db.NewRecipeStore(database).GetAllRecipes(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading recipes: %w", err)
	}
	world, err := db.NewItemStore(database).GetWorldResources(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading world resources: %w", err)
	}

	return New(items, buildings, recipes, world)
}

// Item returns the item with the given id.
func (c *Catalog) Item(id string) (production.Item, bool) {
	it, ok := c.items[id]
	return it, ok
}

// Building returns the building with the given id.
func (c *Catalog) Building(id string) (production.Building, bool) {
	b, ok := c.buildings[id]
	return b, ok
}

// Recipe returns the recipe with the given id. The returned pointer must
// not be modified.
func (c *Catalog) Recipe(id string) (*production.Recipe, bool) {
	r, ok := c.recipes[id]
	return r, ok
}

// RecipeBuilding returns the building a recipe runs on.
func (c *Catalog) RecipeBuilding(r *production.Recipe) production.Building {
	return c.buildings[r.BuildingID]
}

// WorldResource returns the world resource entry for an item.
func (c *Catalog) WorldResource(itemID string) (production.WorldResource, bool) {
	wr, ok := c.world[itemID]
	return wr, ok
}

// ItemIDs returns all item ids in ascending order.
func (c *Catalog) ItemIDs() []string {
	return append([]string(nil), c.itemIDs...)
}

// RecipeIDs returns all recipe ids in ascending order.
func (c *Catalog) RecipeIDs() []string {
	return append([]string(nil), c.recipeIDs...)
}

// DefaultRecipeIDs returns the ids of all non-alternate recipes.
func (c *Catalog) DefaultRecipeIDs() []string {
	var ids []string
	for _, id := range c.recipeIDs {
		if !c.recipes[id].Alternate {
			ids = append(ids, id)
		}
	}
	return ids
}

// WorldResources returns world resources ordered by item id.
func (c *Catalog) WorldResources() []production.WorldResource {
	out := make([]production.WorldResource, 0, len(c.worldIDs))
	for _, id := range c.worldIDs {
		out = append(out, c.world[id])
	}
	return out
}

// RecipesProducing returns ids of recipes that produce the item.
func (c *Catalog) RecipesProducing(itemID string) []string {
	return append([]string(nil), c.producers[itemID]...)
}

// RecipesConsuming returns ids of recipes that consume the item.
func (c *Catalog) RecipesConsuming(itemID string) []string {
	return append([]string(nil), c.consumers[itemID]...)
}

// SearchRecipes returns recipes whose name or id contains term,
// case-insensitively, ordered by id.
func (c *Catalog) SearchRecipes(term string, limit int) []production.RecipeSearchHit {
	term = strings.ToLower(strings.TrimSpace(term))
	var hits []production.RecipeSearchHit
	for _, id := range c.recipeIDs {
		r := c.recipes[id]
		if !strings.Contains(strings.ToLower(r.Name), term) && !strings.Contains(strings.ToLower(r.ID), term) {
			continue
		}
		hits = append(hits, production.RecipeSearchHit{
			RecipeID:  r.ID,
			Name:      r.Name,
			Alternate: r.Alternate,
		})
		if limit > 0 && len(hits) >= limit {
			break
		}
	}
	return hits
}

// ItemName returns the display name for an item, falling back to the id.
func (c *Catalog) ItemName(id string) string {
	if it, ok := c.items[id]; ok && it.Name != "" {
		return it.Name
	}
	return id
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
