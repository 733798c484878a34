// Package config defines the run configuration for the block-group
// extract. It is intentionally small, explicit, and dependency-free:
// every tunable is a flag with an environment-variable fallback, so a
// run can be reproduced from its command line alone.
//
// Precedence per setting:
//
//  1. The built-in default.
//  2. The environment variable, when set and parseable.
//  3. The command-line flag, when given.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
)

// Defaults mirror the Atlanta Regional Commission extract this tool was
// built for: Georgia block groups across the 21 ARC counties, six
// housing and demographics tables from the 2023 ACS 5-year release.
var (
	DefaultCounties = []string{
		"015", "013", "045", "057", "063", "067", "077", "089", "085", "097",
		"113", "117", "121", "135", "151", "153", "223", "231", "247", "255", "297",
	}

	DefaultTables = []TableDef{
		{Code: "B25024", Label: "UnitsInStructure"},
		{Code: "B25003", Label: "Tenure"},
		{Code: "B25009", Label: "TenureByHHSize"},
		{Code: "B11016", Label: "HouseholdSize"},
		{Code: "B19001", Label: "IncomeDist"},
		{Code: "B03002", Label: "RaceEthnicity"},
	}
)

// DefaultTigerQueryURL is the TIGERweb block-group layer used for
// geometry fetches. Layer 1 of Tracts_Blocks is "Census Block Groups".
const DefaultTigerQueryURL = "https://tigerweb.geo.census.gov/arcgis/rest/services/TIGERweb/Tracts_Blocks/MapServer/1/query"

// TableDef pairs an ACS table code with the label used for CSV file and
// SQL table naming.
type TableDef struct {
	Code  string
	Label string
}

// Config holds all process configuration. Fields are plain values so
// the struct can be copied freely after construction.
type Config struct {
	// What to fetch.
	Year     int        // ACS release year.
	State    string     // 2-digit state FIPS code.
	Counties []string   // 3-digit county FIPS codes.
	Tables   []TableDef // ACS tables, in fetch and emission order.

	// Stage selection.
	GeometryOnly bool // Skip the ACS table downloads entirely.
	SkipGeometry bool // Skip the TIGERweb geometry fetch.
	ValidateOnly bool // Report configuration issues and exit.

	// Outputs.
	OutDir     string // Directory for the CSV extracts.
	SQLitePath string // Optional local SQLite snapshot; empty disables it.
	Schema     string // Schema name used in the emitted SQL instructions.

	// DatabaseURL decorates the emitted instructions with a psql
	// connect hint. The process never connects to it.
	DatabaseURL string

	// Endpoints, overridable for tests and mirrors.
	ACSBaseURL    string
	TigerQueryURL string

	// Fetch tunables.
	ChunkSize int // Variables per ACS request.
	PageSize  int // Features per TIGERweb page.

	// Metrics.
	MetricsBackend string // "pushgateway", "datadog", or "none".
	PushGatewayURL string
	StatsdAddr     string
}

// LoadFromArgs builds a Config by defining flags on fs, seeding each
// flag's default from getenv, and then parsing args. Tests pass their
// own FlagSet and env map to stay hermetic.
func LoadFromArgs(fs *flag.FlagSet, getenv func(string) string, args []string) *Config {
	cfg := &Config{}

	strEnv := func(k, def string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return def
	}
	intEnv := func(k string, def int) int {
		if v := getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	boolEnv := func(k string, def bool) bool {
		if v := getenv(k); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		}
		return def
	}

	var counties, tables string

	fs.IntVar(&cfg.Year, "year", intEnv("ACS_YEAR", 2023), "ACS 5-year release year")
	fs.StringVar(&cfg.State, "state", strEnv("ACS_STATE", "13"), "2-digit state FIPS code")
	fs.StringVar(&counties, "counties", strEnv("ACS_COUNTIES", strings.Join(DefaultCounties, ",")), "comma-separated 3-digit county FIPS codes")
	fs.StringVar(&tables, "tables", strEnv("ACS_TABLES", FormatTables(DefaultTables)), "comma-separated code=label pairs of ACS tables")

	fs.BoolVar(&cfg.GeometryOnly, "geometry-only", boolEnv("GEOMETRY_ONLY", false), "skip ACS table downloads; fetch geometries only")
	fs.BoolVar(&cfg.SkipGeometry, "skip-geometry", boolEnv("SKIP_GEOMETRY", false), "skip the TIGERweb geometry fetch")
	fs.BoolVar(&cfg.ValidateOnly, "validate", false, "validate configuration and exit")

	fs.StringVar(&cfg.OutDir, "out-dir", strEnv("OUT_DIR", "."), "directory for CSV outputs")
	fs.StringVar(&cfg.SQLitePath, "sqlite", getenv("SQLITE_PATH"), "optional SQLite snapshot file (empty disables)")
	fs.StringVar(&cfg.Schema, "schema", strEnv("DB_SCHEMA", "acs"), "schema name in the emitted SQL instructions")

	fs.StringVar(&cfg.ACSBaseURL, "acs-url", strEnv("ACS_BASE_URL", "https://api.census.gov"), "Census data API base URL")
	fs.StringVar(&cfg.TigerQueryURL, "tiger-url", strEnv("TIGER_QUERY_URL", DefaultTigerQueryURL), "TIGERweb block-group layer query URL")

	fs.IntVar(&cfg.ChunkSize, "chunk-size", intEnv("ACS_CHUNK_SIZE", 20), "variables per ACS request")
	fs.IntVar(&cfg.PageSize, "page-size", intEnv("TIGER_PAGE_SIZE", 2000), "features per TIGERweb page")

	fs.StringVar(&cfg.MetricsBackend, "metrics-backend", strEnv("METRICS_BACKEND", "none"), "metrics backend: pushgateway, datadog, or none")
	fs.StringVar(&cfg.PushGatewayURL, "pushgateway-url", strEnv("PUSHGATEWAY_URL", "http://localhost:9091"), "Prometheus Pushgateway base URL")
	fs.StringVar(&cfg.StatsdAddr, "statsd-addr", strEnv("STATSD_ADDR", "127.0.0.1:8125"), "DogStatsD address")

	_ = fs.Parse(args)

	cfg.Counties = ParseCounties(counties)
	cfg.Tables = ParseTables(tables)
	cfg.DatabaseURL = getenv("DATABASE_URL")
	return cfg
}

// Load is the production entry point: process flags, os.Getenv, and
// os.Args.
func Load() *Config {
	return LoadFromArgs(flag.CommandLine, os.Getenv, os.Args[1:])
}

// ParseCounties splits a comma-separated county list, dropping blank
// entries. Codes are not normalized here; validation reports bad ones.
func ParseCounties(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseTables parses "code=label" pairs. A pair without a label reuses
// the code as its label.
func ParseTables(s string) []TableDef {
	var out []TableDef
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, label, found := strings.Cut(part, "=")
		code = strings.TrimSpace(code)
		label = strings.TrimSpace(label)
		if !found || label == "" {
			label = code
		}
		out = append(out, TableDef{Code: code, Label: label})
	}
	return out
}

// FormatTables renders table definitions back into the flag syntax.
func FormatTables(defs []TableDef) string {
	parts := make([]string, len(defs))
	for i, d := range defs {
		parts[i] = d.Code + "=" + d.Label
	}
	return strings.Join(parts, ",")
}
