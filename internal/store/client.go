package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Client is a Store that talks to a remote NewHandler server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for baseURL. A zero timeout means 30 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Upsert implements Store.
func (c *Client) Upsert(ctx context.Context, entity Entity, records []Record) (int, error) {
	if err := checkBatch(records); err != nil {
		return 0, err
	}

	var resp batchResponse
	if err := c.do(ctx, http.MethodPost, c.path(entity, "batch"), batchRequest{Records: records}, &resp); err != nil {
		return 0, fmt.Errorf("failed to write %s batch: %w", entity, err)
	}
	return resp.Inserted, nil
}

// CountMigrated implements Store.
func (c *Client) CountMigrated(ctx context.Context, entity Entity) (int, error) {
	var resp countResponse
	if err := c.do(ctx, http.MethodGet, c.path(entity, "count"), nil, &resp); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", entity, err)
	}
	return resp.Count, nil
}

// Lookup implements Store.
func (c *Client) Lookup(ctx context.Context, entity Entity, key string) (Record, bool, error) {
	var rec Record
	err := c.do(ctx, http.MethodGet, c.path(entity, "records", url.PathEscape(key)), nil, &rec)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("failed to look up %s %s: %w", entity, key, err)
	}
	return rec, true, nil
}

// SumQuantity implements Store.
func (c *Client) SumQuantity(ctx context.Context, entity Entity) (decimal.Decimal, error) {
	var resp quantityResponse
	if err := c.do(ctx, http.MethodGet, c.path(entity, "quantity"), nil, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum %s quantity: %w", entity, err)
	}
	q, err := decimal.NewFromString(resp.Quantity)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid quantity %q: %w", resp.Quantity, err)
	}
	return q, nil
}

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("store returned %d: %s", e.Code, e.Message)
}

func (c *Client) path(entity Entity, parts ...string) string {
	return c.baseURL + "/v1/" + string(entity) + "/" + strings.Join(parts, "/")
}

// do sends one JSON request and decodes the JSON answer into out.
func (c *Client) do(ctx context.Context, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil || eb.Error.Message == "" {
			return &StatusError{Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return &StatusError{Code: resp.StatusCode, Message: eb.Error.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
