// Package sqliteout writes an optional local SQLite snapshot of the
// extract, mirroring the CSV outputs in queryable form. SQLite has no
// bulk-load API like Postgres COPY, so rows go in as batched INSERTs
// inside one transaction per table, which keeps performance acceptable
// for block-group volumes.
//
// The snapshot is an inspection convenience, not the spatial target
// database; geometries stay as WKT text here too.
package sqliteout

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"acsgeo/internal/census"
	"acsgeo/internal/tiger"
)

// DB wraps the snapshot database handle.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the snapshot file. The returned close
// function must be called when the run finishes.
func Open(ctx context.Context, path string) (*DB, func(), error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil, fmt.Errorf("sqliteout: path must not be empty")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, fmt.Errorf("sqliteout: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqliteout: ping: %w", err)
	}

	closeFn := func() { db.Close() }
	return &DB{db: db}, closeFn, nil
}

// WriteTable stores one merged ACS table under the given name, dropping
// any previous snapshot of it. All columns are TEXT, matching the CSV.
func (d *DB) WriteTable(ctx context.Context, name string, t *census.Table) error {
	rows := make([][]any, 0, len(t.Rows))
	for _, rec := range t.Rows {
		row := make([]any, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		rows = append(rows, row)
	}
	return d.replaceTable(ctx, name, t.Header, rows)
}

// WriteGeometries stores the geometry records as a block_groups_geo
// table keyed by GEOID.
func (d *DB) WriteGeometries(ctx context.Context, recs []tiger.Record) error {
	cols := []string{"GEOID", "state", "county", "tract", "block group", "wkt"}
	rows := make([][]any, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []any{
			r.GEOID, r.Key.State, r.Key.County, r.Key.Tract, r.Key.BlockGroup, r.WKT,
		})
	}
	return d.replaceTable(ctx, "block_groups_geo", cols, rows)
}

// replaceTable drops and recreates name with TEXT columns, then inserts
// every row in one transaction.
func (d *DB) replaceTable(ctx context.Context, name string, columns []string, rows [][]any) error {
	if len(columns) == 0 {
		return fmt.Errorf("sqliteout: table %s: no columns", name)
	}

	colDefs := make([]string, len(columns))
	colNames := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		colDefs[i] = quoteIdent(c) + " TEXT"
		colNames[i] = quoteIdent(c)
		placeholders[i] = "?"
	}

	if _, err := d.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(name)); err != nil {
		return fmt.Errorf("sqliteout: drop %s: %w", name, err)
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(colDefs, ", "))
	if _, err := d.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("sqliteout: create %s: %w", name, err)
	}

	if len(rows) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqliteout: begin: %w", err)
	}
	defer tx.Rollback()

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(name), strings.Join(colNames, ", "), strings.Join(placeholders, ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("sqliteout: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("sqliteout: table %s: row has %d values, want %d", name, len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("sqliteout: insert into %s: %w", name, err)
		}
	}

	return tx.Commit()
}

// quoteIdent double-quotes a SQL identifier, escaping embedded quotes.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
