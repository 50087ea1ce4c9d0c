package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rsned/production-planner/pkg/production"
)

// RecipeStore handles recipe data access.
type RecipeStore struct {
	db *DB
}

// NewRecipeStore creates a new RecipeStore.
func NewRecipeStore(db *DB) *RecipeStore {
	return &RecipeStore{db: db}
}

// GetRecipe retrieves a single recipe by ID with its ingredients and products.
// Returns nil if not found.
func (s *RecipeStore) GetRecipe(ctx context.Context, id string) (*production.Recipe, error) {
	recipe := &production.Recipe{ID: id}
	var alternate int

	err := s.db.QueryRowContext(ctx, `
		SELECT name, building_id, duration_sec, alternate, max_rate
		FROM recipes WHERE id = ?
	`, id).Scan(
		&recipe.Name,
		&recipe.BuildingID,
		&recipe.DurationSec,
		&alternate,
		&recipe.MaxRate,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying recipe: %w", err)
	}
	recipe.Alternate = alternate != 0

	ingredients, err := s.getIngredients(ctx, `WHERE recipe_id = ?`, id)
	if err != nil {
		return nil, err
	}
	recipe.Ingredients = ingredients[id]

	products, err := s.getProducts(ctx, `WHERE recipe_id = ?`, id)
	if err != nil {
		return nil, err
	}
	recipe.Products = products[id]

	return recipe, nil
}

// getIngredients loads ingredient rows grouped by recipe.
func (s *RecipeStore) getIngredients(ctx context.Context, where string, args ...any) (map[string][]production.Ingredient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT recipe_id, item_id, amount
		FROM recipe_ingredients `+where+`
		ORDER BY recipe_id, position
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying recipe ingredients: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string][]production.Ingredient)
	for rows.Next() {
		var recipeID string
		var in production.Ingredient
		if err := rows.Scan(&recipeID, &in.ItemID, &in.Amount); err != nil {
			return nil, fmt.Errorf("scanning ingredient: %w", err)
		}
		out[recipeID] = append(out[recipeID], in)
	}

	return out, rows.Err()
}

// getProducts loads product rows grouped by recipe.
func (s *RecipeStore) getProducts(ctx context.Context, where string, args ...any) (map[string][]production.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT recipe_id, item_id, amount, multiplier
		FROM recipe_products `+where+`
		ORDER BY recipe_id, position
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying recipe products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string][]production.Product)
	for rows.Next() {
		var recipeID string
		var p production.Product
		if err := rows.Scan(&recipeID, &p.ItemID, &p.Amount, &p.Multiplier); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		out[recipeID] = append(out[recipeID], p)
	}

	return out, rows.Err()
}

// GetAllRecipes retrieves all recipes ordered by ID with ingredients and products.
func (s *RecipeStore) GetAllRecipes(ctx context.Context) ([]production.Recipe, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, building_id, duration_sec, alternate, max_rate
		FROM recipes ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying all recipes: %w", err)
	}

	var recipes []production.Recipe
	for rows.Next() {
		var r production.Recipe
		var alternate int
		if err := rows.Scan(&r.ID, &r.Name, &r.BuildingID, &r.DurationSec, &alternate, &r.MaxRate); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scanning recipe: %w", err)
		}
		r.Alternate = alternate != 0
		recipes = append(recipes, r)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	ingredients, err := s.getIngredients(ctx, "")
	if err != nil {
		return nil, err
	}
	products, err := s.getProducts(ctx, "")
	if err != nil {
		return nil, err
	}

	for i := range recipes {
		recipes[i].Ingredients = ingredients[recipes[i].ID]
		recipes[i].Products = products[recipes[i].ID]
	}

	return recipes, nil
}

// FindRecipesByProduct finds recipes that produce a given item.
func (s *RecipeStore) FindRecipesByProduct(ctx context.Context, itemID string) ([]string, error) {
	return s.queryIDs(ctx, `
		SELECT DISTINCT recipe_id FROM recipe_products WHERE item_id = ? ORDER BY recipe_id
	`, itemID)
}

// FindRecipesByIngredient finds recipes that consume a given item.
func (s *RecipeStore) FindRecipesByIngredient(ctx context.Context, itemID string) ([]string, error) {
	return s.queryIDs(ctx, `
		SELECT DISTINCT recipe_id FROM recipe_ingredients WHERE item_id = ? ORDER BY recipe_id
	`, itemID)
}

func (s *RecipeStore) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("finding recipes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning recipe id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// CountRecipes returns the total number of recipes.
func (s *RecipeStore) CountRecipes(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting recipes: %w", err)
	}
	return count, nil
}

// BulkInsertRecipes inserts multiple recipes in a transaction, replacing any
// existing ingredient and product rows.
func (s *RecipeStore) BulkInsertRecipes(ctx context.Context, recipes []production.Recipe) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		recipeStmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO recipes
			(id, name, building_id, duration_sec, alternate, max_rate)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing recipe statement: %w", err)
		}
		defer func() { _ = recipeStmt.Close() }()

		ingStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO recipe_ingredients (recipe_id, position, item_id, amount)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing ingredient statement: %w", err)
		}
		defer func() { _ = ingStmt.Close() }()

		prodStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO recipe_products (recipe_id, position, item_id, amount, multiplier)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing product statement: %w", err)
		}
		defer func() { _ = prodStmt.Close() }()

		for _, r := range recipes {
			for _, table := range []string{"recipe_ingredients", "recipe_products"} {
				if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE recipe_id = ?`, r.ID); err != nil {
					return fmt.Errorf("clearing %s for %s: %w", table, r.ID, err)
				}
			}

			_, err := recipeStmt.ExecContext(ctx,
				r.ID, r.Name, r.BuildingID, r.DurationSec, boolToInt(r.Alternate), r.MaxRate,
			)
			if err != nil {
				return fmt.Errorf("inserting recipe %s: %w", r.ID, err)
			}

			for i, in := range r.Ingredients {
				if _, err := ingStmt.ExecContext(ctx, r.ID, i, in.ItemID, in.Amount); err != nil {
					return fmt.Errorf("inserting ingredient for %s: %w", r.ID, err)
				}
			}
			for i, p := range r.Products {
				if _, err := prodStmt.ExecContext(ctx, r.ID, i, p.ItemID, p.Amount, p.Multiplier); err != nil {
					return fmt.Errorf("inserting product for %s: %w", r.ID, err)
				}
			}
		}

		return nil
	})
}

// ClearRecipes removes all recipe data.
func (s *RecipeStore) ClearRecipes(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM recipe_ingredients;
		DELETE FROM recipe_products;
		DELETE FROM recipes;
	`)
	if err != nil {
		return fmt.Errorf("clearing recipes: %w", err)
	}
	return nil
}
