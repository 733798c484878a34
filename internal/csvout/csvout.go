// Package csvout writes the extract's flat-file outputs: one CSV per
// ACS table and one CSV for the block-group geometries.
package csvout

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"acsgeo/internal/census"
	"acsgeo/internal/tiger"
)

// GeometryHeader is the column layout of the geometry CSV.
var GeometryHeader = []string{"GEOID", "state", "county", "tract", "block group", "wkt"}

// TablePath names an ACS table extract: <Label>_<year>_BG.csv under dir.
func TablePath(dir, label string, year int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%d_BG.csv", label, year))
}

// GeometryPath names the geometry extract.
func GeometryPath(dir string, year int) string {
	return filepath.Join(dir, fmt.Sprintf("blockgroups_%d_geo.csv", year))
}

// WriteTable writes one merged ACS table to path.
func WriteTable(path string, t *census.Table) error {
	return write(path, t.Header, t.Rows)
}

// WriteGeometries writes the geometry records to path.
func WriteGeometries(path string, recs []tiger.Record) error {
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []string{
			r.GEOID, r.Key.State, r.Key.County, r.Key.Tract, r.Key.BlockGroup, r.WKT,
		})
	}
	return write(path, GeometryHeader, rows)
}

func write(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csvout: create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("csvout: write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("csvout: write rows: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("csvout: flush %s: %w", path, err)
	}
	return f.Close()
}
