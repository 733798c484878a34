// This file adds a lightweight linter/validator for Config values. It
// performs static checks and returns a list of issues (errors and
// warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path names the offending setting (e.g. "counties[3]", "chunk-size").
// Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a
// single error where callers expect one.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue in the slice is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateConfig performs static validation of a Config. It does not
// mutate the config; callers decide whether warnings are fatal.
func ValidateConfig(c *Config) []Issue {
	var issues []Issue

	if c.Year < 2009 {
		// 2009 is the first ACS 5-year release.
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "year",
			Message:  fmt.Sprintf("year=%d; ACS 5-year estimates begin in 2009", c.Year),
		})
	}

	if !isFIPS(c.State, 2) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "state",
			Message:  fmt.Sprintf("state %q must be a 2-digit FIPS code", c.State),
		})
	}

	if len(c.Counties) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "counties",
			Message:  "at least one county FIPS code is required",
		})
	}
	for i, county := range c.Counties {
		if !isFIPS(county, 3) {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("counties[%d]", i),
				Message:  fmt.Sprintf("county %q must be a 3-digit FIPS code", county),
			})
		}
	}

	issues = append(issues, validateTables(c)...)

	if c.GeometryOnly && c.SkipGeometry {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "geometry-only",
			Message:  "geometry-only and skip-geometry together leave nothing to fetch",
		})
	}

	if c.ChunkSize <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "chunk-size",
			Message:  fmt.Sprintf("chunk-size=%d; must be positive", c.ChunkSize),
		})
	} else if c.ChunkSize > 49 {
		// The data API caps a single request at 50 variables and NAME
		// occupies one slot.
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "chunk-size",
			Message:  fmt.Sprintf("chunk-size=%d; requests with more than 49 table variables exceed the API's 50-variable limit", c.ChunkSize),
		})
	}

	if c.PageSize <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "page-size",
			Message:  fmt.Sprintf("page-size=%d; must be positive", c.PageSize),
		})
	}

	if strings.TrimSpace(c.OutDir) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "out-dir",
			Message:  "out-dir must not be empty",
		})
	}
	if strings.TrimSpace(c.Schema) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "schema",
			Message:  "schema must not be empty",
		})
	}

	issues = append(issues, validateMetrics(c)...)

	return issues
}

// validateTables checks the ACS table list.
func validateTables(c *Config) []Issue {
	var issues []Issue

	if len(c.Tables) == 0 && !c.GeometryOnly {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "tables",
			Message:  "no tables configured; use -geometry-only to fetch geometries alone",
		})
		return issues
	}

	seen := map[string]int{}
	for i, t := range c.Tables {
		path := fmt.Sprintf("tables[%d]", i)
		if strings.TrimSpace(t.Code) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  "table code must not be empty",
			})
			continue
		}
		if !isTableCode(t.Code) {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path,
				Message:  fmt.Sprintf("table code %q does not look like an ACS group (e.g. B25024); the variable lookup may fail", t.Code),
			})
		}
		if prev, dup := seen[t.Code]; dup {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  fmt.Sprintf("table %s already configured at tables[%d]", t.Code, prev),
			})
		}
		seen[t.Code] = i
	}

	return issues
}

// validateMetrics checks the metrics backend selection.
func validateMetrics(c *Config) []Issue {
	var issues []Issue

	known := map[string]struct{}{
		"":            {},
		"none":        {},
		"pushgateway": {},
		"datadog":     {},
	}
	if _, ok := known[c.MetricsBackend]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "metrics-backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; metrics will be disabled", c.MetricsBackend),
		})
		return issues
	}

	if c.MetricsBackend == "pushgateway" && strings.TrimSpace(c.PushGatewayURL) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "pushgateway-url",
			Message:  "pushgateway backend selected but pushgateway-url is empty",
		})
	}
	if c.MetricsBackend == "datadog" && strings.TrimSpace(c.StatsdAddr) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "statsd-addr",
			Message:  "datadog backend selected but statsd-addr is empty",
		})
	}

	return issues
}

// isFIPS reports whether s is exactly width digits.
func isFIPS(s string, width int) bool {
	if len(s) != width {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// isTableCode reports whether s looks like an ACS group code: a leading
// letter followed by five digits, with an optional trailing letter for
// race iterations (e.g. B25003B).
func isTableCode(s string) bool {
	if len(s) != 6 && len(s) != 7 {
		return false
	}
	if s[0] < 'A' || s[0] > 'Z' {
		return false
	}
	for i := 1; i < 6; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	if len(s) == 7 && (s[6] < 'A' || s[6] > 'Z') {
		return false
	}
	return true
}
