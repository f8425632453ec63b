package spatial

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client queries a remote spatial-query service over HTTP.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for the service rooted at baseURL. A nil hc
// uses a client with a 10s timeout.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *Client) Query(ctx context.Context, x, y float64) (*Result, error) {
	q := url.Values{}
	q.Set("x", strconv.FormatFloat(x, 'f', -1, 64))
	q.Set("y", strconv.FormatFloat(y, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/spatial_data?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spatial query: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("spatial query: %s", resp.Status)
	}

	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decoding spatial result: %w", err)
	}
	return &res, nil
}

var _ Querier = (*Client)(nil)
