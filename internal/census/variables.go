package census

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"acsgeo/internal/metrics"
)

// Variables resolves the variable codes belonging to an ACS table by
// querying the group metadata endpoint and filtering the returned keys
// to those prefixed with the table code. The result is sorted, which
// matches the API's own numbering (B25024_001E, B25024_002E, ...).
//
// Transport errors and unexpected payload shapes propagate to the
// caller; there is nothing per-table to salvage without the variable
// list.
func (c *Client) Variables(ctx context.Context, table string) ([]string, error) {
	url := fmt.Sprintf("%s/data/%d/acs/acs5/groups/%s.json", c.baseURL, c.year, table)

	body, err := c.http.FetchBody(ctx, url)
	metrics.RecordRequest("acs_meta", err)
	if err != nil {
		return nil, fmt.Errorf("census: group metadata for %s: %w", table, err)
	}

	var meta struct {
		Variables map[string]json.RawMessage `json:"variables"`
	}
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("census: decode group metadata for %s: %w", table, err)
	}
	if meta.Variables == nil {
		return nil, fmt.Errorf("census: group metadata for %s has no variables object", table)
	}

	vars := make([]string, 0, len(meta.Variables))
	for code := range meta.Variables {
		if strings.HasPrefix(code, table) {
			vars = append(vars, code)
		}
	}
	if len(vars) == 0 {
		return nil, fmt.Errorf("census: group %s lists no variables with its own prefix", table)
	}
	sort.Strings(vars)
	return vars, nil
}
