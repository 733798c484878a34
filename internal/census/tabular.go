package census

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"acsgeo/internal/geoid"
	"acsgeo/internal/metrics"
)

// ErrCountyFailed marks a county whose tabular fetch could not be
// completed after retries. The caller must treat this as fatal for the
// table rather than silently omitting the county's rows; a partial
// table would corrupt the GEOID join downstream.
var ErrCountyFailed = errors.New("census: county fetch failed")

// Geographic key column names as the ACS API returns them.
var keyColumns = [4]string{"state", "county", "tract", "block group"}

// Table is one merged ACS table covering every requested county.
// Header is GEOID, NAME, the four key columns, then one column per
// variable code; Rows align with Header.
type Table struct {
	Code   string
	Header []string
	Rows   [][]string
}

// Chunks splits vars into consecutive chunks of at most size elements,
// preserving order and covering every variable exactly once.
func Chunks(vars []string, size int) [][]string {
	if size <= 0 || len(vars) == 0 {
		return nil
	}
	out := make([][]string, 0, (len(vars)+size-1)/size)
	for i := 0; i < len(vars); i += size {
		end := i + size
		if end > len(vars) {
			end = len(vars)
		}
		out = append(out, vars[i:end])
	}
	return out
}

// FetchTable downloads the given variables for every county and
// concatenates the per-county merged row sets in county order. Any
// county whose chunks cannot all be fetched fails the whole table with
// ErrCountyFailed.
func (c *Client) FetchTable(ctx context.Context, table string, vars []string, state string, counties []string) (*Table, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("census: table %s: no variables to fetch", table)
	}

	out := &Table{
		Code:   table,
		Header: append([]string{"GEOID", "NAME", "state", "county", "tract", "block group"}, vars...),
	}

	for _, county := range counties {
		rows, err := c.fetchCounty(ctx, table, vars, state, county)
		if err != nil {
			return nil, fmt.Errorf("census: table %s: %w", table, err)
		}
		out.Rows = append(out.Rows, rows...)
	}

	metrics.RecordRows(table, int64(len(out.Rows)))
	return out, nil
}

// countyRow accumulates one block group's values as chunks merge in.
type countyRow struct {
	key  geoid.Key
	name string
	vals []string
}

// fetchCounty fetches all variable chunks for one county and merges them
// horizontally on the geographic key. The first chunk fixes the row set
// and order; later chunks left-join onto it, with blanks where a chunk
// is missing a block group. Every chunk must succeed.
func (c *Client) fetchCounty(ctx context.Context, table string, vars []string, state, county string) ([][]string, error) {
	var (
		order []geoid.Key
		rows  = make(map[geoid.Key]*countyRow)
	)

	for i, chunk := range Chunks(vars, c.chunkSize) {
		data, err := c.fetchChunk(ctx, chunk, state, county)
		if err != nil {
			return nil, fmt.Errorf("%w: state %s county %s chunk %d: %v", ErrCountyFailed, state, county, i, err)
		}

		hdr, body := data[0], data[1:]
		idx, err := columnIndex(hdr)
		if err != nil {
			return nil, fmt.Errorf("%w: state %s county %s chunk %d: %v", ErrCountyFailed, state, county, i, err)
		}

		if i == 0 {
			for _, rec := range body {
				key, ok := rowKey(rec, idx)
				if !ok {
					continue
				}
				r := &countyRow{key: key, name: rec[idx["NAME"]]}
				order = append(order, key)
				rows[key] = r
				appendVars(r, rec, idx, chunk)
			}
			continue
		}

		// Left join: only block groups present in the first chunk
		// survive; blanks fill any key this chunk did not return.
		chunkRows := make(map[geoid.Key][]string, len(body))
		for _, rec := range body {
			key, ok := rowKey(rec, idx)
			if !ok {
				continue
			}
			chunkRows[key] = rec
		}
		for _, key := range order {
			r := rows[key]
			if rec, ok := chunkRows[key]; ok {
				appendVars(r, rec, idx, chunk)
			} else {
				r.vals = append(r.vals, make([]string, len(chunk))...)
			}
		}
	}

	// GEOID comes straight from concatenation; the API returns the key
	// components already zero-padded.
	out := make([][]string, 0, len(order))
	for _, key := range order {
		r := rows[key]
		rec := make([]string, 0, 6+len(r.vals))
		rec = append(rec, key.GEOID(), r.name, key.State, key.County, key.Tract, key.BlockGroup)
		rec = append(rec, r.vals...)
		out = append(out, rec)
	}
	return out, nil
}

// fetchChunk issues one ACS query for a (county, variable-chunk) pair.
// Retries happen inside the HTTP client; a returned error means the
// attempts are exhausted.
func (c *Client) fetchChunk(ctx context.Context, vars []string, state, county string) ([][]string, error) {
	// The API wants literal "block group:*" and a space between the
	// state and county clauses; both are percent-encoded by hand since
	// url.Values would also escape the colons and asterisk.
	url := fmt.Sprintf(
		"%s/data/%d/acs/acs5?get=NAME,%s&for=block%%20group:*&in=state:%s%%20county:%s",
		c.baseURL, c.year, strings.Join(vars, ","), state, county,
	)

	body, err := c.http.FetchBody(ctx, url)
	metrics.RecordRequest("acs", err)
	if err != nil {
		return nil, err
	}

	var data [][]string
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty response")
	}
	return data, nil
}

// columnIndex maps header names to positions and checks the columns the
// merge depends on are all present.
func columnIndex(hdr []string) (map[string]int, error) {
	idx := make(map[string]int, len(hdr))
	for i, name := range hdr {
		idx[name] = i
	}
	if _, ok := idx["NAME"]; !ok {
		return nil, fmt.Errorf("header missing NAME column")
	}
	for _, name := range keyColumns {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("header missing %q column", name)
		}
	}
	return idx, nil
}

// rowKey extracts the geographic key from one data row. Rows too short
// to carry the key columns are skipped.
func rowKey(rec []string, idx map[string]int) (geoid.Key, bool) {
	for _, name := range keyColumns {
		if idx[name] >= len(rec) {
			return geoid.Key{}, false
		}
	}
	return geoid.Key{
		State:      rec[idx["state"]],
		County:     rec[idx["county"]],
		Tract:      rec[idx["tract"]],
		BlockGroup: rec[idx["block group"]],
	}, true
}

// appendVars appends this chunk's variable values to r in chunk order,
// blank-filling columns the row is too short to carry.
func appendVars(r *countyRow, rec []string, idx map[string]int, chunk []string) {
	for _, v := range chunk {
		pos, ok := idx[v]
		if !ok || pos >= len(rec) {
			r.vals = append(r.vals, "")
			continue
		}
		r.vals = append(r.vals, rec[pos])
	}
}
