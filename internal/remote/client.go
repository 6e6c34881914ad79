package remote

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/section6nz/3scale-sync/internal/metrics"
	"github.com/section6nz/3scale-sync/internal/syncerr"
	"github.com/section6nz/3scale-sync/pkg/logging"
)

const apiPrefix = "/admin/api"

// Client talks to the 3scale Admin API. It implements API.
type Client struct {
	cfg     Config
	reads   *retryablehttp.Client
	writes  *retryablehttp.Client
	metrics *metrics.Recorder
}

var _ API = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithMetrics records every request in r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(c *Client) {
		c.metrics = r
	}
}

// NewClient creates a client for cfg.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid remote config: %w", err)
	}

	c := &Client{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}

	var err error
	if c.reads, err = c.newHTTPClient(cfg.RetryMax); err != nil {
		return nil, err
	}
	// A blind retry of a create can hit a false "already exists"; reconcilers
	// re-read state instead.
	if c.writes, err = c.newHTTPClient(0); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) newHTTPClient(retryMax int) (*retryablehttp.Client, error) {
	rc := retryablehttp.NewClient()
	rc.RetryMax = retryMax
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.HTTPClient.Timeout = c.cfg.Timeout
	rc.Logger = leveledLogger{}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.ResponseLogHook = func(_ retryablehttp.Logger, resp *http.Response) {
		c.metrics.ObserveRequest(resp.Request.Method, resp.StatusCode)
	}

	if c.cfg.InsecureSkipVerify {
		transport, ok := rc.HTTPClient.Transport.(*http.Transport)
		if !ok {
			return nil, fmt.Errorf("unexpected transport type %T", rc.HTTPClient.Transport)
		}
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return rc, nil
}

// do performs one Admin API call. Reads and deletes carry params in the query
// string, other writes send them form-encoded. out, when non-nil, receives the
// decoded JSON body.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, out interface{}) error {
	op := method + " " + path

	values := url.Values{}
	for k, v := range params {
		values[k] = v
	}
	values.Set("access_token", c.cfg.AccessToken)

	endpoint := c.cfg.AdminURL + apiPrefix + path
	var body interface{}
	if method == http.MethodGet || method == http.MethodDelete {
		endpoint += "?" + values.Encode()
	} else {
		body = strings.NewReader(values.Encode())
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return &syncerr.RemoteError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	client := c.writes
	if method == http.MethodGet {
		client = c.reads
	}

	// PassthroughErrorHandler hands back the last response together with a
	// "giving up" error once retries run out; the response is what matters.
	resp, err := client.Do(req)
	if resp == nil {
		c.metrics.ObserveRequest(method, 0)
		if err == nil {
			err = fmt.Errorf("no response")
		}
		return &syncerr.RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &syncerr.RemoteError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	logging.Debug("remote", "%s -> %d", op, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &syncerr.RemoteError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &syncerr.RemoteError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// doItem performs a call whose response wraps one entity under key,
// e.g. {"service": {...}}.
func (c *Client) doItem(ctx context.Context, method, path string, params url.Values, key string, out interface{}) error {
	var envelope map[string]json.RawMessage
	if err := c.do(ctx, method, path, params, &envelope); err != nil {
		return err
	}
	raw, ok := envelope[key]
	if !ok {
		return &syncerr.RemoteError{Op: method + " " + path, Err: fmt.Errorf("response has no %q object", key)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &syncerr.RemoteError{Op: method + " " + path, Err: fmt.Errorf("decode %s: %w", key, err)}
	}
	return nil
}

// listEnvelope reads a single-page collection such as
// {"plans": [{"application_plan": {...}}]}.
func listEnvelope[T any](ctx context.Context, c *Client, path, collection, item string, params url.Values) ([]T, error) {
	var envelope map[string]json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, params, &envelope); err != nil {
		return nil, err
	}
	return unwrapItems[T](envelope[collection], item)
}

// listPaged walks every page of a paginated collection.
func listPaged[T any](ctx context.Context, c *Client, path, collection, item string) ([]T, error) {
	var (
		all  []T
		prev json.RawMessage
	)
	for page := 1; ; page++ {
		params := url.Values{
			"page":     {strconv.Itoa(page)},
			"per_page": {strconv.Itoa(c.cfg.PerPage)},
		}
		var envelope map[string]json.RawMessage
		if err := c.do(ctx, http.MethodGet, path, params, &envelope); err != nil {
			return nil, err
		}
		raw := envelope[collection]
		// Older tenants ignore pagination and answer every page with the full list.
		if prev != nil && bytes.Equal(prev, raw) {
			return all, nil
		}
		items, err := unwrapItems[T](raw, item)
		if err != nil {
			return nil, fmt.Errorf("GET %s page %d: %w", path, page, err)
		}
		all = append(all, items...)
		if len(items) != c.cfg.PerPage {
			return all, nil
		}
		prev = raw
	}
}

func unwrapItems[T any](raw json.RawMessage, item string) ([]T, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var wrapped []map[string]T
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode %s list: %w", item, err)
	}
	out := make([]T, 0, len(wrapped))
	for _, w := range wrapped {
		v, ok := w[item]
		if !ok {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func isMissing(err error) bool {
	return syncerr.StatusCode(err) == http.StatusNotFound
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

// leveledLogger routes retryablehttp logs through pkg/logging.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, kv ...interface{}) {
	logging.Warn("remote", "%s %s", msg, formatKV(kv))
}

func (leveledLogger) Warn(msg string, kv ...interface{}) {
	logging.Warn("remote", "%s %s", msg, formatKV(kv))
}

func (leveledLogger) Info(msg string, kv ...interface{}) {
	logging.Debug("remote", "%s %s", msg, formatKV(kv))
}

func (leveledLogger) Debug(msg string, kv ...interface{}) {
	logging.Debug("remote", "%s %s", msg, formatKV(kv))
}

func formatKV(kv []interface{}) string {
	var sb strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		key := fmt.Sprint(kv[i])
		val := fmt.Sprint(kv[i+1])
		// Request URLs carry the access token in the query string.
		if key == "url" {
			val = redactToken(val)
		}
		fmt.Fprintf(&sb, "%s=%s", key, val)
	}
	return sb.String()
}

func redactToken(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has("access_token") {
		q.Set("access_token", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
