package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/tokodata/internal/apperr"
	"github.com/starford/tokodata/internal/models"
)

// Client is the remote tabular source. Reads are
// `GET {base}?table={name}&action=list`; mutations are form-encoded
// POSTs carrying the action and a JSON payload, the shape the upstream
// sheet endpoint accepts without a CORS preflight.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a Client for the given endpoint. timeout bounds a
// single round-trip; zero means no client-side timeout.
func NewClient(base string, timeout time.Duration) *Client {
	return &Client{
		base: base,
		http: &http.Client{Timeout: timeout},
	}
}

// List implements Source.
func (c *Client) List(ctx context.Context, table string) (models.Collection, error) {
	u := fmt.Sprintf("%s?table=%s&action=list", c.base, url.QueryEscape(table))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("source: build request for %s: %w", table, err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("source: list %s: %w", table, err)
	}
	return decodeRecords(body, table)
}

// Mutate sends a create/update/delete for one record of the named
// collection and returns the decoded response.
func (c *Client) Mutate(ctx context.Context, table, action string, payload models.Record) (models.Record, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("source: encode payload: %w", err)
	}

	form := url.Values{}
	form.Set("table", table)
	form.Set("action", action)
	form.Set("payload", string(raw))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("source: build request for %s: %w", table, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("source: %s %s: %w", action, table, err)
	}

	var out models.Record
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("source: decode %s response: %w", action, apperr.ErrFormat)
	}
	return out, nil
}

// do executes the request and returns the body of a 2xx response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d", apperr.ErrTransport, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", apperr.ErrTransport, err)
	}
	return body, nil
}
