package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rsned/production-planner/pkg/production"
)

// BuildingStore handles building data access.
type BuildingStore struct {
	db *DB
}

// NewBuildingStore creates a new BuildingStore.
func NewBuildingStore(db *DB) *BuildingStore {
	return &BuildingStore{db: db}
}

// GetBuilding retrieves a building by ID. Returns nil if not found.
func (s *BuildingStore) GetBuilding(ctx context.Context, id string) (*production.Building, error) {
	b := &production.Building{ID: id}
	err := s.db.QueryRowContext(ctx, `
		SELECT name, power_mw, area_m2 FROM buildings WHERE id = ?
	`, id).Scan(&b.Name, &b.PowerMW, &b.AreaM2)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying building: %w", err)
	}
	return b, nil
}

// GetAllBuildings retrieves every building ordered by ID.
func (s *BuildingStore) GetAllBuildings(ctx context.Context) ([]production.Building, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, power_mw, area_m2 FROM buildings ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying buildings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var buildings []production.Building
	for rows.Next() {
		var b production.Building
		if err := rows.Scan(&b.ID, &b.Name, &b.PowerMW, &b.AreaM2); err != nil {
			return nil, fmt.Errorf("scanning building: %w", err)
		}
		buildings = append(buildings, b)
	}

	return buildings, rows.Err()
}

// BulkInsertBuildings inserts multiple buildings in a transaction.
func (s *BuildingStore) BulkInsertBuildings(ctx context.Context, buildings []production.Building) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO buildings (id, name, power_mw, area_m2)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing building statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, b := range buildings {
			if _, err := stmt.ExecContext(ctx, b.ID, b.Name, b.PowerMW, b.AreaM2); err != nil {
				return fmt.Errorf("inserting building %s: %w", b.ID, err)
			}
		}
		return nil
	})
}

// ClearBuildings removes all buildings.
func (s *BuildingStore) ClearBuildings(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM buildings`); err != nil {
		return fmt.Errorf("clearing buildings: %w", err)
	}
	return nil
}
