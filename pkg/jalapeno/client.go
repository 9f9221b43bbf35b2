// Package jalapeno is the client for the Jalapeno API: the upstream service
// that stores the network graph and the L3VPN prefix collections. The engine
// only sends queries here — path computation itself is upstream's job.
//
// Every call is a fresh query. The client holds no cache: topology may change
// between calls, and reconciliation is re-runnable by design.
package jalapeno

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jalapeno-sdn/srctl/pkg/util"
)

// DefaultBaseURL matches the Jalapeno API's default local deployment.
const DefaultBaseURL = "http://localhost:8000"

const defaultTimeout = 15 * time.Second

// Config carries the API server connection settings. Threaded explicitly
// through construction — there is no ambient client state.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the Jalapeno API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Jalapeno API client.
func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// MetricEndpoint maps a spec metric name to the API's endpoint segment.
// Returns "" for the default (hop-count) metric.
func MetricEndpoint(metric string) (string, error) {
	switch metric {
	case "":
		return "", nil
	case "low-latency":
		return "latency", nil
	case "least-utilized":
		return "utilization", nil
	default:
		return "", fmt.Errorf("%w: unsupported metric '%s'", util.ErrInvalidParameter, metric)
	}
}

// GraphQuery asks for ranked candidate paths between two nodes.
type GraphQuery struct {
	Graph       string
	Source      string
	Destination string
	Metric      string // spec metric name; "" for default
	Direction   string // "" defaults to outbound
	Limit       int    // max candidates to return; 0 for server default
}

// QueryGraphPath returns candidate paths in the upstream service's own
// ranking order for the requested metric. The engine trusts that order and
// never re-sorts.
func (c *Client) QueryGraphPath(ctx context.Context, q GraphQuery) ([]CandidatePath, error) {
	endpoint, err := MetricEndpoint(q.Metric)
	if err != nil {
		return nil, err
	}
	path := fmt.Sprintf("/api/v1/graphs/%s/shortest_path", url.PathEscape(q.Graph))
	if endpoint != "" {
		path += "/" + endpoint
	}
	path += "/best-paths"

	params := url.Values{}
	params.Set("source", q.Source)
	params.Set("destination", q.Destination)
	direction := q.Direction
	if direction == "" {
		direction = "outbound"
	}
	params.Set("direction", direction)
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var resp graphPathsResponse
	if err := c.get(ctx, "graph path query", path, params, &resp, classifyGraphError); err != nil {
		return nil, err
	}
	return resp.Paths, nil
}

// L3VPNQuery asks for VPN prefixes imported by a route-target.
type L3VPNQuery struct {
	RouteTarget string
	Collection  string
	Prefix      string // optional: restrict to one prefix
	ExactMatch  bool
	Limit       int
}

// QueryL3VPN returns the prefixes matching a route-target, optionally
// narrowed to a single prefix. An empty result is not an error; a route
// target the server does not know is reported as ErrNoMatch, distinctly
// from transport failures.
func (c *Client) QueryL3VPN(ctx context.Context, q L3VPNQuery) ([]VPNPrefix, error) {
	params := url.Values{}
	params.Set("route_target", q.RouteTarget)

	var path string
	if q.Prefix != "" {
		path = fmt.Sprintf("/api/v1/vpns/%s/prefixes/search", url.PathEscape(q.Collection))
		params.Set("prefix", q.Prefix)
		params.Set("prefix_exact", strconv.FormatBool(q.ExactMatch))
	} else {
		path = fmt.Sprintf("/api/v1/vpns/%s/prefixes/by-rt", url.PathEscape(q.Collection))
		limit := q.Limit
		if limit == 0 {
			limit = 100
		}
		params.Set("limit", strconv.Itoa(limit))
	}

	var resp vpnPrefixesResponse
	if err := c.get(ctx, "l3vpn prefix query", path, params, &resp, classifyL3VPNError); err != nil {
		return nil, err
	}
	return resp.Prefixes, nil
}

// get performs one API request and decodes the JSON response into out.
// classify maps a non-2xx status plus error body onto the failure taxonomy.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out interface{}, classify func(status int, msg string) error) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &util.UpstreamError{
			Endpoint: endpoint,
			Message:  err.Error(),
			Kind:     util.ErrUpstreamUnavailable,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &util.UpstreamError{
			Endpoint: endpoint,
			Message:  err.Error(),
			Kind:     util.ErrUpstreamUnavailable,
		}
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.text() != "" {
			msg = apiErr.text()
		}
		return &util.UpstreamError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Message:  msg,
			Kind:     classify(resp.StatusCode, msg),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &util.UpstreamError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Message:  fmt.Sprintf("decoding response: %v", err),
			Kind:     util.ErrUpstreamUnavailable,
		}
	}
	return nil
}

// classifyGraphError maps graph-query failures: a 4xx mentioning a node is
// an unknown source/destination; other 4xx means the graph does not exist.
func classifyGraphError(status int, msg string) error {
	if status == http.StatusNotFound || status == http.StatusBadRequest {
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "node") || strings.Contains(lower, "source") || strings.Contains(lower, "destination") {
			return util.ErrUnknownNode
		}
		return util.ErrGraphNotFound
	}
	return util.ErrUpstreamUnavailable
}

// classifyL3VPNError maps prefix-query failures: a 404 means the collection
// or route-target has no entries at all.
func classifyL3VPNError(status int, msg string) error {
	if status == http.StatusNotFound {
		return util.ErrNoMatch
	}
	return util.ErrUpstreamUnavailable
}
