// Package tiger fetches block-group boundary geometries from the
// TIGERweb ArcGIS MapServer and normalizes them into WKT records keyed
// by GEOID.
//
// The spatial query endpoint pages its results; a county is fetched by
// advancing resultOffset until a page comes back short or empty. Unlike
// the tabular path, failures here are not retried: a broken page aborts
// the county, the caller logs it, and the run continues with the
// remaining counties.
package tiger

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"time"

	"github.com/zeebo/xxh3"

	"acsgeo/internal/geom"
	"acsgeo/internal/httpds"
	"acsgeo/internal/metrics"
)

// DefaultQueryURL is the TIGERweb block-group layer query endpoint.
const DefaultQueryURL = "https://tigerweb.geo.census.gov/arcgis/rest/services/TIGERweb/Tracts_Blocks/MapServer/1/query"

// DefaultPageSize is the resultRecordCount requested per page.
const DefaultPageSize = 2000

const defaultTimeout = 60 * time.Second

// Client pages through the TIGERweb spatial query endpoint.
type Client struct {
	http     *httpds.Client
	queryURL string
	pageSize int
}

// Options configures a Client. Zero values select production defaults;
// HTTP is injectable for tests.
type Options struct {
	QueryURL string
	PageSize int
	HTTP     *httpds.Client
}

// NewClient constructs a Client. The default HTTP client uses the
// endpoint's longer 60s timeout and no retries.
func NewClient(o Options) *Client {
	if o.QueryURL == "" {
		o.QueryURL = DefaultQueryURL
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.HTTP == nil {
		o.HTTP = httpds.NewClient(httpds.Config{Timeout: defaultTimeout})
	}
	return &Client{
		http:     o.HTTP,
		queryURL: o.QueryURL,
		pageSize: o.PageSize,
	}
}

// queryResponse is the GeoJSON FeatureCollection or error envelope the
// MapServer answers with. ArcGIS reports payload-level failures inside
// a 200 response, so Error must be checked before Features.
type queryResponse struct {
	Error    *queryError `json:"error"`
	Features []feature   `json:"features"`
}

type queryError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

type feature struct {
	Properties map[string]any `json:"properties"`
	Geometry   geom.Geometry  `json:"geometry"`
}

// FetchCounty pages through one county's block groups and returns the
// normalized records. Features that fail geometry or identifier
// normalization are dropped silently (counted in metrics); a transport
// or payload failure aborts the county.
func (c *Client) FetchCounty(ctx context.Context, state, county string) ([]Record, error) {
	var (
		out    []Record
		offset int
		seen   = make(map[uint64]struct{})
	)

	for {
		page, err := c.fetchPage(ctx, state, county, offset)
		if err != nil {
			return nil, fmt.Errorf("tiger: state %s county %s offset %d: %w", state, county, offset, err)
		}

		for _, f := range page {
			rec, ok := normalize(f)
			if !ok {
				continue
			}
			// Pages can overlap when the server restarts paging;
			// keep the first occurrence of each GEOID.
			h := xxh3.HashString(rec.GEOID)
			if _, dup := seen[h]; dup {
				metrics.RecordFeatures("dropped_duplicate", 1)
				continue
			}
			seen[h] = struct{}{}
			out = append(out, rec)
		}

		// A short or empty page is the last one.
		if len(page) == 0 || len(page) < c.pageSize {
			break
		}
		offset += len(page)
	}

	metrics.RecordFeatures("kept", int64(len(out)))
	return out, nil
}

// FetchAll fetches every county in order. A failed county is logged and
// skipped; geometry gaps are tolerable where tabular gaps are not.
func (c *Client) FetchAll(ctx context.Context, state string, counties []string) []Record {
	var out []Record
	for _, county := range counties {
		if err := ctx.Err(); err != nil {
			log.Printf("tiger: canceled before county %s: %v", county, err)
			return out
		}
		recs, err := c.FetchCounty(ctx, state, county)
		if err != nil {
			log.Printf("tiger: skipping county %s: %v", county, err)
			continue
		}
		log.Printf("tiger: county %s: %d block groups", county, len(recs))
		out = append(out, recs...)
	}
	return out
}

// fetchPage issues one spatial query page.
func (c *Client) fetchPage(ctx context.Context, state, county string, offset int) ([]feature, error) {
	params := url.Values{}
	params.Set("where", fmt.Sprintf("STATE='%s' AND COUNTY='%s'", state, county))
	params.Set("outFields", "GEOID,STATE,COUNTY,TRACT,BLKGRP")
	params.Set("returnGeometry", "true")
	params.Set("f", "geojson")
	params.Set("outSR", "4326")
	params.Set("resultRecordCount", strconv.Itoa(c.pageSize))
	params.Set("resultOffset", strconv.Itoa(offset))

	body, err := c.http.FetchBody(ctx, c.queryURL+"?"+params.Encode())
	metrics.RecordRequest("tiger", err)
	if err != nil {
		return nil, err
	}

	var resp queryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("server error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	return resp.Features, nil
}
