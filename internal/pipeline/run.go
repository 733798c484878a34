// Package pipeline ties the fetch, serialization, and output stages
// into one run. It owns the run order (tables first, then geometries),
// failure semantics (a table failure aborts the run, a county geometry
// failure does not), and the bookkeeping the instruction emitter needs.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"acsgeo/internal/census"
	"acsgeo/internal/config"
	"acsgeo/internal/csvout"
	"acsgeo/internal/emit"
	"acsgeo/internal/metrics"
	"acsgeo/internal/sqliteout"
	"acsgeo/internal/tiger"
)

// Result summarizes a completed run for the instruction emitter.
type Result struct {
	// GeometryCSV is the written geometry extract path, empty when the
	// geometry stage was skipped.
	GeometryCSV string

	// Tables lists the written ACS tables in configuration order.
	Tables []emit.TableSpec

	Rows     int // data rows across all tables
	Features int // geometry features written
}

// Run executes the configured extract and returns what was written.
func Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var snap *sqliteout.DB
	if cfg.SQLitePath != "" {
		db, closeFn, err := sqliteout.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite snapshot: %w", err)
		}
		defer closeFn()
		snap = db
	}

	res := &Result{}

	if !cfg.GeometryOnly {
		acs := census.NewClient(census.Options{
			BaseURL:   cfg.ACSBaseURL,
			Year:      cfg.Year,
			ChunkSize: cfg.ChunkSize,
		})
		for _, def := range cfg.Tables {
			spec, n, err := runTable(ctx, acs, cfg, snap, def)
			if err != nil {
				return nil, fmt.Errorf("table %s: %w", def.Code, err)
			}
			res.Tables = append(res.Tables, spec)
			res.Rows += n
		}
	}

	if !cfg.SkipGeometry {
		tig := tiger.NewClient(tiger.Options{
			QueryURL: cfg.TigerQueryURL,
			PageSize: cfg.PageSize,
		})
		path, n, err := runGeometry(ctx, tig, cfg, snap)
		if err != nil {
			return nil, err
		}
		res.GeometryCSV = path
		res.Features = n
	}

	return res, nil
}

// runTable fetches one ACS table end to end: variable lookup, the
// chunked tabular fetch, and the CSV (plus optional SQLite) writes.
func runTable(ctx context.Context, acs *census.Client, cfg *config.Config, snap *sqliteout.DB, def config.TableDef) (emit.TableSpec, int, error) {
	start := time.Now()

	vars, err := acs.Variables(ctx, def.Code)
	if err != nil {
		metrics.RecordStep("variables", err, time.Since(start))
		return emit.TableSpec{}, 0, err
	}

	table, err := acs.FetchTable(ctx, def.Code, vars, cfg.State, cfg.Counties)
	metrics.RecordStep("tabular", err, time.Since(start))
	if err != nil {
		return emit.TableSpec{}, 0, err
	}
	metrics.RecordRows(def.Code, int64(len(table.Rows)))

	path := csvout.TablePath(cfg.OutDir, def.Label, cfg.Year)
	if err := csvout.WriteTable(path, table); err != nil {
		return emit.TableSpec{}, 0, err
	}
	if snap != nil {
		if err := snap.WriteTable(ctx, emit.TableName(def.Label, def.Code), table); err != nil {
			return emit.TableSpec{}, 0, err
		}
	}

	log.Printf("table %s (%s): %d variables, %d rows -> %s",
		def.Code, def.Label, len(vars), len(table.Rows), path)

	return emit.TableSpec{
		Code:    def.Code,
		Label:   def.Label,
		Columns: table.Header,
		CSVPath: path,
	}, len(table.Rows), nil
}

// runGeometry fetches block-group shapes for every county and writes
// the geometry extract. Counties that fail are logged and skipped by
// the client, so a partial extract is still written.
func runGeometry(ctx context.Context, tig *tiger.Client, cfg *config.Config, snap *sqliteout.DB) (string, int, error) {
	start := time.Now()

	recs := tig.FetchAll(ctx, cfg.State, cfg.Counties)
	metrics.RecordStep("geometry", nil, time.Since(start))

	path := csvout.GeometryPath(cfg.OutDir, cfg.Year)
	if err := csvout.WriteGeometries(path, recs); err != nil {
		return "", 0, err
	}
	if snap != nil {
		if err := snap.WriteGeometries(ctx, recs); err != nil {
			return "", 0, err
		}
	}

	log.Printf("geometry: %d block groups across %d counties -> %s",
		len(recs), len(cfg.Counties), path)

	return path, len(recs), nil
}
