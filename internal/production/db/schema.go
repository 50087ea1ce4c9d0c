// Package db stores the production catalog (items, buildings, recipes and
// world resources) in SQLite.
package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
)

//go:embed schema.sql
var catalogDDL string

// SchemaVersion is the catalog layout this build reads and writes.
const SchemaVersion = 1

// MetaSchemaVersion is the sync_metadata key holding the stamped layout.
const MetaSchemaVersion = "schema_version"

// ErrSchemaVersion is returned when a catalog was written by a newer build.
var ErrSchemaVersion = errors.New("unsupported catalog schema version")

// Schema returns the catalog DDL.
func Schema() string {
	return catalogDDL
}

// InitSchema creates any missing catalog tables and stamps SchemaVersion.
// Tables are only ever added, so an older stamp is upgraded in place.
func InitSchema(ctx context.Context, db *DB) error {
	return db.InTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, catalogDDL); err != nil {
			return fmt.Errorf("creating catalog tables: %w", err)
		}

		var stamped string
		err := tx.QueryRowContext(ctx, selectMetadataSQL, MetaSchemaVersion).Scan(&stamped)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("reading schema version: %w", err)
		default:
			v, perr := strconv.Atoi(stamped)
			if perr != nil || v > SchemaVersion {
				return fmt.Errorf("%w: catalog has %q, this build supports %d", ErrSchemaVersion, stamped, SchemaVersion)
			}
		}

		if _, err := tx.ExecContext(ctx, upsertMetadataSQL, MetaSchemaVersion, strconv.Itoa(SchemaVersion)); err != nil {
			return fmt.Errorf("stamping schema version: %w", err)
		}
		return nil
	})
}

// CatalogCounts are the row counts of the stored catalog.
type CatalogCounts struct {
	Items          int `json:"items"`
	Buildings      int `json:"buildings"`
	Recipes        int `json:"recipes"`
	WorldResources int `json:"world_resources"`
}

// Empty reports whether no recipes are stored.
func (c CatalogCounts) Empty() bool {
	return c.Recipes == 0
}

// Counts returns how many catalog rows of each kind are stored.
func (db *DB) Counts(ctx context.Context) (CatalogCounts, error) {
	var c CatalogCounts
	targets := []struct {
		table string
		dst   *int
	}{
		{"items", &c.Items},
		{"buildings", &c.Buildings},
		{"recipes", &c.Recipes},
		{"world_resources", &c.WorldResources},
	}
	for _, t := range targets {
		// Table names come from the fixed list above.
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.table).Scan(t.dst); err != nil {
			return CatalogCounts{}, fmt.Errorf("counting %s: %w", t.table, err)
		}
	}
	return c, nil
}
