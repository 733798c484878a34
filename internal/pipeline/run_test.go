package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"acsgeo/internal/config"
)

// acsServer serves the variables lookup and the tabular endpoint for a
// single table with one county of data.
func acsServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/data/2023/acs/acs5/groups/B25003.json":
			fmt.Fprint(w, `{"variables":{
				"B25003_001E":{"label":"Total"},
				"B25003_002E":{"label":"Owner occupied"},
				"NAME":{"label":"Name"}}}`)
		case r.URL.Path == "/data/2023/acs/acs5":
			fmt.Fprint(w, `[
				["NAME","B25003_001E","B25003_002E","state","county","tract","block group"],
				["BG 1, Tract 9601","120","80","13","015","960100","1"],
				["BG 2, Tract 9601","95","40","13","015","960100","2"]]`)
		default:
			http.NotFound(w, r)
		}
	}))
}

// tigerServer serves one block-group feature for any county query.
func tigerServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("resultOffset") != "0" {
			fmt.Fprint(w, `{"features":[]}`)
			return
		}
		fmt.Fprint(w, `{"features":[{
			"properties":{"GEOID":"130159601001","STATE":"13","COUNTY":"015","TRACT":"960100","BLKGRP":"1"},
			"geometry":{"type":"Polygon","coordinates":[[[-84.5,33.9],[-84.4,33.9],[-84.4,34.0],[-84.5,33.9]]]}}]}`)
	}))
}

func testConfig(t *testing.T, acsURL, tigerURL string) *config.Config {
	t.Helper()
	return &config.Config{
		Year:          2023,
		State:         "13",
		Counties:      []string{"015"},
		Tables:        []config.TableDef{{Code: "B25003", Label: "Tenure"}},
		OutDir:        t.TempDir(),
		Schema:        "acs",
		ACSBaseURL:    acsURL,
		TigerQueryURL: tigerURL,
		ChunkSize:     20,
		PageSize:      10,
	}
}

func TestRun_FullExtract(t *testing.T) {
	t.Parallel()

	acs := acsServer(t)
	defer acs.Close()
	tig := tigerServer(t)
	defer tig.Close()

	cfg := testConfig(t, acs.URL, tig.URL)
	res, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Tables) != 1 {
		t.Fatalf("len(Tables) = %d, want 1", len(res.Tables))
	}
	spec := res.Tables[0]
	if spec.Code != "B25003" || spec.Label != "Tenure" {
		t.Errorf("spec = %+v", spec)
	}
	if res.Rows != 2 || res.Features != 1 {
		t.Errorf("Rows/Features = %d/%d, want 2/1", res.Rows, res.Features)
	}

	body, err := os.ReadFile(spec.CSVPath)
	if err != nil {
		t.Fatalf("read table CSV: %v", err)
	}
	if !strings.HasPrefix(string(body), "GEOID,NAME,state,county,tract,block group,B25003_001E,B25003_002E") {
		t.Errorf("table CSV header wrong:\n%s", body)
	}
	if !strings.Contains(string(body), "130159601001") {
		t.Error("table CSV missing derived GEOID")
	}

	geo, err := os.ReadFile(res.GeometryCSV)
	if err != nil {
		t.Fatalf("read geometry CSV: %v", err)
	}
	if !strings.Contains(string(geo), "POLYGON((-84.5 33.9, -84.4 33.9,") {
		t.Errorf("geometry CSV missing WKT:\n%s", geo)
	}
	if want := filepath.Join(cfg.OutDir, "blockgroups_2023_geo.csv"); res.GeometryCSV != want {
		t.Errorf("GeometryCSV = %q, want %q", res.GeometryCSV, want)
	}
}

func TestRun_GeometryOnly(t *testing.T) {
	t.Parallel()

	tig := tigerServer(t)
	defer tig.Close()

	// No ACS server at all: the table stage must not be touched.
	cfg := testConfig(t, "http://127.0.0.1:0", tig.URL)
	cfg.GeometryOnly = true

	res, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Tables) != 0 {
		t.Errorf("Tables = %v, want none", res.Tables)
	}
	if res.Features != 1 || res.GeometryCSV == "" {
		t.Errorf("Features = %d, GeometryCSV = %q", res.Features, res.GeometryCSV)
	}
}

func TestRun_SkipGeometry(t *testing.T) {
	t.Parallel()

	acs := acsServer(t)
	defer acs.Close()

	cfg := testConfig(t, acs.URL, "http://127.0.0.1:0")
	cfg.SkipGeometry = true

	res, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.GeometryCSV != "" || res.Features != 0 {
		t.Errorf("geometry stage ran: %+v", res)
	}
	if len(res.Tables) != 1 {
		t.Errorf("len(Tables) = %d, want 1", len(res.Tables))
	}
}

func TestRun_TableFailureAborts(t *testing.T) {
	t.Parallel()

	// A table whose variable lookup yields nothing is a hard failure.
	acs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"variables":{}}`)
	}))
	defer acs.Close()
	tig := tigerServer(t)
	defer tig.Close()

	cfg := testConfig(t, acs.URL, tig.URL)
	_, err := Run(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error when a table cannot be fetched")
	}
	if !strings.Contains(err.Error(), "B25003") {
		t.Errorf("error %q does not name the table", err)
	}
}

func TestRun_SQLiteSnapshot(t *testing.T) {
	t.Parallel()

	acs := acsServer(t)
	defer acs.Close()
	tig := tigerServer(t)
	defer tig.Close()

	cfg := testConfig(t, acs.URL, tig.URL)
	cfg.SQLitePath = filepath.Join(t.TempDir(), "snapshot.db")

	if _, err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("Run: %v", err)
	}
	info, err := os.Stat(cfg.SQLitePath)
	if err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("snapshot file is empty")
	}
}
