// Package emit renders the PostGIS load instructions for the extract's
// CSV outputs.
//
// Nothing here touches a database: the output is SQL/psql text for a
// human (or a separate tool) to review and run. The only use of the
// DATABASE_URL environment value is decorative: it is parsed so the
// instructions can open with a ready-made psql invocation, and a value
// that fails to parse degrades to a comment rather than an error.
package emit

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// GeometryTable is the base table every per-ACS-table view joins onto.
const GeometryTable = "block_groups_geo"

// Options describes one run's outputs.
type Options struct {
	// Schema is the target schema name, e.g. "acs".
	Schema string

	// DatabaseURL is the optional connection string used only for the
	// psql hint in the header.
	DatabaseURL string

	// GeometryCSV is the path of the geometry extract, empty when the
	// geometry fetch was skipped.
	GeometryCSV string

	// Tables lists the fetched ACS tables in emission order.
	Tables []TableSpec
}

// TableSpec is one fetched ACS table: its code, the configured label
// the table/view names derive from, the full CSV column list, and the
// CSV path for the \copy line.
type TableSpec struct {
	Code    string
	Label   string
	Columns []string
	CSVPath string
}

// Instructions renders the complete instruction text: extension and
// schema creation, the geometry base table, one data table and one
// geometry-joined view per ACS table, and \copy lines for every CSV.
func Instructions(o Options) string {
	schema := o.Schema
	if schema == "" {
		schema = "acs"
	}

	var b strings.Builder
	b.WriteString("-- Load instructions for the ACS block-group extract.\n")
	b.WriteString("-- Review paths and names, then run in psql. Nothing below has been executed.\n")
	b.WriteString(connectHint(o.DatabaseURL))
	b.WriteString("\n")

	b.WriteString("CREATE EXTENSION IF NOT EXISTS postgis;\n")
	fmt.Fprintf(&b, "CREATE SCHEMA IF NOT EXISTS %s;\n\n", quoteIdent(schema))

	if o.GeometryCSV != "" {
		b.WriteString(geometryTableSQL(schema))
		b.WriteString("\n")
		fmt.Fprintf(&b,
			"\\copy %s.%s (%s) FROM '%s' WITH (FORMAT csv, HEADER true)\n\n",
			quoteIdent(schema), quoteIdent(GeometryTable),
			quoteList("geoid", "state", "county", "tract", "block_group", "wkt"),
			o.GeometryCSV,
		)
	}

	for _, t := range o.Tables {
		name := TableName(t.Label, t.Code)

		b.WriteString(dataTableSQL(schema, name, t.Columns))
		b.WriteString("\n")
		fmt.Fprintf(&b, "\\copy %s.%s FROM '%s' WITH (FORMAT csv, HEADER true)\n\n",
			quoteIdent(schema), quoteIdent(name), t.CSVPath)

		if o.GeometryCSV != "" {
			fmt.Fprintf(&b,
				"CREATE OR REPLACE VIEW %s.%s AS\n  SELECT d.*, g.%s, g.%s\n  FROM %s.%s d\n  JOIN %s.%s g USING (%s);\n\n",
				quoteIdent(schema), quoteIdent(name+"_geo"),
				quoteIdent("wkt"), quoteIdent("geom"),
				quoteIdent(schema), quoteIdent(name),
				quoteIdent(schema), quoteIdent(GeometryTable),
				quoteIdent("geoid"),
			)
		}
	}

	return b.String()
}

// TableName derives the SQL table name from a configured label, so
// "TenureByHHSize" becomes "tenure_by_hhsize". Labels that reduce to
// nothing fall back to the lowercased table code.
func TableName(label, code string) string {
	if name := slug(label); name != "" {
		return name
	}
	return strings.ToLower(code)
}

// connectHint turns DATABASE_URL into a psql invocation comment. The
// password is never echoed.
func connectHint(dsn string) string {
	if dsn == "" {
		return "-- Set DATABASE_URL to embed a psql connect hint here.\n"
	}
	cfg, err := pgconn.ParseConfig(dsn)
	if err != nil {
		return "-- DATABASE_URL did not parse as a connection string; connect manually.\n"
	}
	return fmt.Sprintf("-- Connect with: psql -h %s -p %d -U %s -d %s\n",
		cfg.Host, cfg.Port, cfg.User, cfg.Database)
}

// geometryTableSQL builds the geometry base table. The geom column is
// generated from the WKT text so spatial queries work immediately after
// the \copy, without a separate populate step.
func geometryTableSQL(schema string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s.%s (\n", quoteIdent(schema), quoteIdent(GeometryTable))
	b.WriteString("  \"geoid\" TEXT NOT NULL,\n")
	b.WriteString("  \"state\" TEXT NOT NULL,\n")
	b.WriteString("  \"county\" TEXT NOT NULL,\n")
	b.WriteString("  \"tract\" TEXT NOT NULL,\n")
	b.WriteString("  \"block_group\" TEXT NOT NULL,\n")
	b.WriteString("  \"wkt\" TEXT NOT NULL,\n")
	b.WriteString("  \"geom\" geometry(Geometry, 4326) GENERATED ALWAYS AS (ST_GeomFromText(\"wkt\", 4326)) STORED,\n")
	fmt.Fprintf(&b, "  CONSTRAINT %s PRIMARY KEY (\"geoid\")\n", quoteIdent(GeometryTable+"_pkey"))
	b.WriteString(");\n")
	return b.String()
}

// dataTableSQL builds one ACS data table. Estimates stay TEXT: the API
// delivers them as strings and this system passes them through
// unconverted; casting is the analyst's call.
func dataTableSQL(schema, name string, columns []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s.%s (\n", quoteIdent(schema), quoteIdent(name))
	for _, col := range columns {
		dbCol := columnName(col)
		if dbCol == "geoid" {
			fmt.Fprintf(&b, "  %s TEXT NOT NULL,\n", quoteIdent(dbCol))
			continue
		}
		fmt.Fprintf(&b, "  %s TEXT,\n", quoteIdent(dbCol))
	}
	fmt.Fprintf(&b, "  CONSTRAINT %s PRIMARY KEY (\"geoid\")\n", quoteIdent(name+"_pkey"))
	b.WriteString(");\n")
	return b.String()
}

// columnName maps CSV header names onto SQL column names: the key
// columns get lowercase snake_case, variable codes pass through as-is.
func columnName(csvName string) string {
	switch csvName {
	case "GEOID":
		return "geoid"
	case "NAME":
		return "name"
	case "block group":
		return "block_group"
	default:
		if csvName == strings.ToLower(csvName) {
			return csvName // state, county, tract
		}
		return csvName // variable codes keep their canonical form
	}
}

// quoteIdent double-quotes a SQL identifier, escaping embedded quotes.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteList(names ...string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = quoteIdent(n)
	}
	return strings.Join(out, ", ")
}
