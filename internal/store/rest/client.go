// Package rest implements the analytics store interface against a
// PostgREST-compatible HTTP backend.
package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ahmedrzakhan/portfolio-analytics/internal/config"
	"github.com/ahmedrzakhan/portfolio-analytics/internal/store"
)

// Client talks to the remote analytics store over its REST interface.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

// NewClient creates a REST store client from configuration.
func NewClient(cfg config.Store, log *zap.Logger) (*Client, error) {
	base := strings.TrimRight(cfg.URL, "/")
	if _, err := url.Parse(base); err != nil || base == "" {
		return nil, fmt.Errorf("invalid analytics store URL %q: %w", cfg.URL, err)
	}

	log.Info("Analytics store client created", zap.String("url", base))

	return &Client{
		baseURL: base,
		apiKey:  cfg.APIKey,
		http: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
		},
		log: log,
	}, nil
}

func (c *Client) Insert(ctx context.Context, table string, records any) error {
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, table)
	return c.write(ctx, endpoint, records, "return=minimal")
}

func (c *Client) Upsert(ctx context.Context, table string, records any, conflictKey string) error {
	endpoint := fmt.Sprintf("%s/%s?on_conflict=%s", c.baseURL, table, url.QueryEscape(conflictKey))
	return c.write(ctx, endpoint, records, "resolution=merge-duplicates,return=minimal")
}

func (c *Client) Delete(ctx context.Context, table string, filter store.Filter) error {
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, table, encodeFilter(filter))

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build delete request: %w", err)
	}
	c.setHeaders(req)

	return c.do(req, nil)
}

func (c *Client) Query(ctx context.Context, table string, filter store.Filter, dest any) error {
	endpoint := fmt.Sprintf("%s/%s?select=*", c.baseURL, table)
	if len(filter) > 0 {
		endpoint += "&" + encodeFilter(filter)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build query request: %w", err)
	}
	c.setHeaders(req)

	return c.do(req, dest)
}

func (c *Client) RPC(ctx context.Context, name string, params any, dest any) error {
	endpoint := fmt.Sprintf("%s/rpc/%s", c.baseURL, name)

	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal rpc params: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build rpc request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, dest)
}

// write POSTs records to endpoint with the given Prefer header.
func (c *Client) write(ctx context.Context, endpoint string, records any, prefer string) error {
	body, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build write request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", prefer)

	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("store request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Warn("Failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("store returned %d: %s", resp.StatusCode, string(snippet))
	}

	if dest == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode store response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func encodeFilter(filter store.Filter) string {
	values := url.Values{}
	for column, expr := range filter {
		values.Set(column, expr)
	}
	return values.Encode()
}
