package config

import (
	"flag"
	"reflect"
	"testing"
)

// newFlagSet returns a quiet flag set so parse errors in tests do not
// spam stderr.
func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(discard{})
	return fs
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func emptyEnv(string) string { return "" }

func TestLoadFromArgs_Defaults(t *testing.T) {
	t.Parallel()

	cfg := LoadFromArgs(newFlagSet(), emptyEnv, nil)

	if cfg.Year != 2023 {
		t.Errorf("Year = %d, want 2023", cfg.Year)
	}
	if cfg.State != "13" {
		t.Errorf("State = %q, want %q", cfg.State, "13")
	}
	if !reflect.DeepEqual(cfg.Counties, DefaultCounties) {
		t.Errorf("Counties = %v, want defaults", cfg.Counties)
	}
	if !reflect.DeepEqual(cfg.Tables, DefaultTables) {
		t.Errorf("Tables = %v, want defaults", cfg.Tables)
	}
	if cfg.ChunkSize != 20 || cfg.PageSize != 2000 {
		t.Errorf("ChunkSize/PageSize = %d/%d, want 20/2000", cfg.ChunkSize, cfg.PageSize)
	}
	if cfg.MetricsBackend != "none" {
		t.Errorf("MetricsBackend = %q, want none", cfg.MetricsBackend)
	}
	if cfg.GeometryOnly || cfg.SkipGeometry || cfg.ValidateOnly {
		t.Error("stage-selection flags should default to false")
	}
	if cfg.TigerQueryURL != DefaultTigerQueryURL {
		t.Errorf("TigerQueryURL = %q", cfg.TigerQueryURL)
	}
}

func TestLoadFromArgs_EnvFallback(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"ACS_YEAR":      "2019",
		"ACS_STATE":     "06",
		"ACS_COUNTIES":  "001,075",
		"ACS_TABLES":    "B01001=Age",
		"OUT_DIR":       "/tmp/acs",
		"DATABASE_URL":  "postgres://u@h/db",
		"SKIP_GEOMETRY": "true",
	}
	getenv := func(k string) string { return env[k] }

	cfg := LoadFromArgs(newFlagSet(), getenv, nil)

	if cfg.Year != 2019 {
		t.Errorf("Year = %d, want 2019", cfg.Year)
	}
	if cfg.State != "06" {
		t.Errorf("State = %q, want %q", cfg.State, "06")
	}
	if want := []string{"001", "075"}; !reflect.DeepEqual(cfg.Counties, want) {
		t.Errorf("Counties = %v, want %v", cfg.Counties, want)
	}
	if want := []TableDef{{Code: "B01001", Label: "Age"}}; !reflect.DeepEqual(cfg.Tables, want) {
		t.Errorf("Tables = %v, want %v", cfg.Tables, want)
	}
	if cfg.OutDir != "/tmp/acs" {
		t.Errorf("OutDir = %q", cfg.OutDir)
	}
	if cfg.DatabaseURL != "postgres://u@h/db" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if !cfg.SkipGeometry {
		t.Error("SkipGeometry should be true from env")
	}
}

func TestLoadFromArgs_FlagsOverrideEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{"ACS_YEAR": "2019", "ACS_STATE": "06"}
	getenv := func(k string) string { return env[k] }

	cfg := LoadFromArgs(newFlagSet(), getenv, []string{
		"-year", "2021",
		"-state", "48",
		"-geometry-only",
		"-chunk-size", "10",
	})

	if cfg.Year != 2021 {
		t.Errorf("Year = %d, want 2021 (flag over env)", cfg.Year)
	}
	if cfg.State != "48" {
		t.Errorf("State = %q, want %q", cfg.State, "48")
	}
	if !cfg.GeometryOnly {
		t.Error("GeometryOnly should be set")
	}
	if cfg.ChunkSize != 10 {
		t.Errorf("ChunkSize = %d, want 10", cfg.ChunkSize)
	}
}

func TestLoadFromArgs_BadEnvIntFallsBack(t *testing.T) {
	t.Parallel()

	getenv := func(k string) string {
		if k == "ACS_YEAR" {
			return "not-a-year"
		}
		return ""
	}
	cfg := LoadFromArgs(newFlagSet(), getenv, nil)
	if cfg.Year != 2023 {
		t.Errorf("Year = %d, want default 2023 when env is unparseable", cfg.Year)
	}
}

func TestParseCounties(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"015,013,121", []string{"015", "013", "121"}},
		{" 015 , , 121 ", []string{"015", "121"}},
		{"", nil},
		{",,,", nil},
	}
	for _, tc := range tests {
		if got := ParseCounties(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ParseCounties(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseTables(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []TableDef
	}{
		{
			"B25024=UnitsInStructure,B25003=Tenure",
			[]TableDef{{Code: "B25024", Label: "UnitsInStructure"}, {Code: "B25003", Label: "Tenure"}},
		},
		{
			// Missing label reuses the code.
			"B19001",
			[]TableDef{{Code: "B19001", Label: "B19001"}},
		},
		{
			"B19001=",
			[]TableDef{{Code: "B19001", Label: "B19001"}},
		},
		{"", nil},
	}
	for _, tc := range tests {
		if got := ParseTables(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ParseTables(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFormatTables_RoundTrip(t *testing.T) {
	t.Parallel()

	s := FormatTables(DefaultTables)
	if got := ParseTables(s); !reflect.DeepEqual(got, DefaultTables) {
		t.Errorf("round trip = %v, want %v", got, DefaultTables)
	}
}
