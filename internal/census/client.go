// Package census fetches American Community Survey 5-year estimates from
// the Census Bureau data API.
//
// Two operations are exposed: Variables resolves the variable codes
// belonging to an ACS table via the group metadata endpoint, and
// FetchTable downloads block-group estimates for a list of counties,
// splitting the variable list into fixed-size chunks (the API rejects
// over-long query strings) and merging the chunk responses back into one
// wide row set per county.
//
// All responses arrive as JSON arrays of strings; estimates are passed
// through as text, never converted.
package census

import (
	"time"

	"acsgeo/internal/httpds"
)

// DefaultBaseURL is the production Census data API host.
const DefaultBaseURL = "https://api.census.gov"

// Defaults for the tabular fetch path.
const (
	DefaultYear      = 2023
	DefaultChunkSize = 20

	defaultTimeout = 30 * time.Second
	defaultRetries = 4 // 5 attempts total
	retryDelay     = 2 * time.Second
)

// Client talks to the ACS data and metadata endpoints.
type Client struct {
	http      *httpds.Client
	baseURL   string
	year      int
	chunkSize int
}

// Options configures a Client. Zero values select the production
// defaults; HTTP is injectable for tests.
type Options struct {
	BaseURL   string
	Year      int
	ChunkSize int
	HTTP      *httpds.Client
}

// NewClient constructs a Client. The default HTTP client retries any
// non-2xx answer up to 5 attempts with a fixed 2s delay, matching the
// ACS endpoint's habit of transient failures under load.
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.Year <= 0 {
		o.Year = DefaultYear
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.HTTP == nil {
		o.HTTP = httpds.NewClient(httpds.Config{
			Timeout:        defaultTimeout,
			MaxRetries:     defaultRetries,
			InitialBackoff: retryDelay,
			RetryNonOK:     true,
		})
	}
	return &Client{
		http:      o.HTTP,
		baseURL:   o.BaseURL,
		year:      o.Year,
		chunkSize: o.ChunkSize,
	}
}
