package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rsned/production-planner/pkg/production"
)

// ItemStore handles item and world resource data access.
type ItemStore struct {
	db *DB
}

// NewItemStore creates a new ItemStore.
func NewItemStore(db *DB) *ItemStore {
	return &ItemStore{db: db}
}

// GetItem retrieves a single item by ID. Returns nil if not found.
func (s *ItemStore) GetItem(ctx context.Context, id string) (*production.Item, error) {
	item := &production.Item{ID: id}
	var scarce int
	err := s.db.QueryRowContext(ctx, `
		SELECT name, description, form, scarce FROM items WHERE id = ?
	`, id).Scan(&item.Name, &item.Description, &item.Form, &scarce)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying item: %w", err)
	}
	item.Scarce = scarce != 0
	return item, nil
}

// GetAllItems retrieves every item ordered by ID.
func (s *ItemStore) GetAllItems(ctx context.Context) ([]production.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, form, scarce FROM items ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []production.Item
	for rows.Next() {
		var it production.Item
		var scarce int
		if err := rows.Scan(&it.ID, &it.Name, &it.Description, &it.Form, &scarce); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		it.Scarce = scarce != 0
		items = append(items, it)
	}

	return items, rows.Err()
}

// GetWorldResources retrieves all world resources ordered by item ID.
func (s *ItemStore) GetWorldResources(ctx context.Context) ([]production.WorldResource, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, max_rate FROM world_resources ORDER BY item_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying world resources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var resources []production.WorldResource
	for rows.Next() {
		var wr production.WorldResource
		if err := rows.Scan(&wr.ItemID, &wr.MaxRate); err != nil {
			return nil, fmt.Errorf("scanning world resource: %w", err)
		}
		resources = append(resources, wr)
	}

	return resources, rows.Err()
}

// CountItems returns the total number of items.
func (s *ItemStore) CountItems(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return count, nil
}

// BulkInsertItems inserts multiple items in a transaction.
func (s *ItemStore) BulkInsertItems(ctx context.Context, items []production.Item) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO items (id, name, description, form, scarce)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing item statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, it := range items {
			form := it.Form
			if form == "" {
				form = "solid"
			}
			if _, err := stmt.ExecContext(ctx, it.ID, it.Name, it.Description, form, boolToInt(it.Scarce)); err != nil {
				return fmt.Errorf("inserting item %s: %w", it.ID, err)
			}
		}
		return nil
	})
}

// BulkInsertWorldResources inserts multiple world resources in a transaction.
func (s *ItemStore) BulkInsertWorldResources(ctx context.Context, resources []production.WorldResource) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO world_resources (item_id, max_rate) VALUES (?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing world resource statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, wr := range resources {
			if _, err := stmt.ExecContext(ctx, wr.ItemID, wr.MaxRate); err != nil {
				return fmt.Errorf("inserting world resource %s: %w", wr.ItemID, err)
			}
		}
		return nil
	})
}

// ClearItems removes all items and world resources.
func (s *ItemStore) ClearItems(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM world_resources;
		DELETE FROM items;
	`)
	if err != nil {
		return fmt.Errorf("clearing items: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
