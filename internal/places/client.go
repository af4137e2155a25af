// Package places implements the external places-lookup HTTP client consumed
// by the core's WHATSAT handler. It queries the Google Places "nearby
// search" endpoint through a retrying HTTP client, grounded on the same
// hashicorp/go-retryablehttp usage the teacher's artifact/gitlab client
// wraps around a third-party API, and always returns a JSON body — errors
// are encoded as the `{"error": ...}` object the wire protocol expects
// rather than surfaced as Go errors.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/prometheus/client_golang/prometheus"

	liberr "github.com/nabbar/proxyherd/errors"
	"github.com/nabbar/proxyherd/internal/errs"
	"github.com/nabbar/proxyherd/internal/metrics"
)

const (
	defaultBaseURL = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"
	requestTimeout = 5 * time.Second
	jsonIndent     = "   "
)

var collapseNewlines = regexp.MustCompile(`\n{2,}`)

// Lookup is the interface consumed by session handlers: given a coordinate
// and clamped radius/limit, it returns a places_json body ready to splice
// into a WHATSAT reply.
type Lookup interface {
	Lookup(ctx context.Context, lat, lon float64, radiusKM, maxResults int) string
}

// Client queries the Google Places nearby-search endpoint.
type Client struct {
	http    *retryablehttp.Client
	baseURL string
	apiKey  string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the places API base URL (used by tests).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// New builds a places Client. The API key is read by the caller from its
// environment and passed in explicitly; New never reads the environment
// itself so it stays testable.
func New(apiKey string, opts ...Option) (*Client, liberr.Error) {
	if apiKey == "" {
		return nil, liberr.New(errs.CodePlacesClientFailed.Uint16(), "places api key is empty")
	}

	h := retryablehttp.NewClient()
	h.RetryMax = 3
	h.HTTPClient.Timeout = requestTimeout
	h.Logger = nil

	c := &Client{
		http:    h,
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
	}

	for _, o := range opts {
		o(c)
	}

	return c, nil
}

// Lookup performs the nearby-search request and returns a pretty-printed,
// newline-collapsed JSON body, or an `{"error": ...}` JSON object on any
// failure — it never returns a Go error, matching the `places_lookup`
// interface the wire protocol expects.
func (c *Client) Lookup(ctx context.Context, lat, lon float64, radiusKM, maxResults int) string {
	timer := prometheus.NewTimer(metrics.PlacesLookupSeconds)
	defer timer.ObserveDuration()

	if radiusKM > 50 {
		radiusKM = 50
	}
	if maxResults > 20 {
		maxResults = 20
	}

	radiusM := radiusKM * 1000

	url := fmt.Sprintf("%s?location=%f,%f&radius=%d&key=%s", c.baseURL, lat, lon, radiusM, c.apiKey)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errorJSON(fmt.Sprintf("failed to build places request: %s", err.Error()), 0)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errorJSON(fmt.Sprintf("error accessing places api: %s", err.Error()), 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errorJSON("failed to retrieve data from places api", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errorJSON(fmt.Sprintf("error reading places api response: %s", err.Error()), resp.StatusCode)
	}

	return formatResults(body, maxResults)
}

func formatResults(body []byte, maxResults int) string {
	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return errorJSON(fmt.Sprintf("invalid places api response: %s", err.Error()), 0)
	}

	if results, ok := data["results"].([]interface{}); ok && len(results) > maxResults {
		data["results"] = results[:maxResults]
	}

	out, err := json.MarshalIndent(data, "", jsonIndent)
	if err != nil {
		return errorJSON(fmt.Sprintf("failed to encode places api response: %s", err.Error()), 0)
	}

	return collapseAndTrim(string(out))
}

// collapseAndTrim collapses runs of two or more newlines to one and strips
// trailing newlines, matching the wire format's places_json rule.
func collapseAndTrim(s string) string {
	s = collapseNewlines.ReplaceAllString(s, "\n")
	return strings.TrimRight(s, "\n")
}

func errorJSON(message string, status int) string {
	obj := map[string]interface{}{"error": message}
	if status != 0 {
		obj["status"] = status
	}

	out, err := json.Marshal(obj)
	if err != nil {
		return `{"error":"` + message + `"}`
	}

	return string(out)
}
