// Package api is the HTTP client for the phonebook REST API.
//
// Every phonebook call is authorized with the user key sent as the
// "Authorization" query parameter. Keys are created with CreateUser.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Makepad-fr/phonebook/internal/model"
)

const (
	// AuthParam is the query parameter carrying the user key.
	AuthParam = "Authorization"

	tracerName     = "github.com/Makepad-fr/phonebook/internal/api"
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// EntryList is the body of the list endpoint.
type EntryList struct {
	Entries []model.Entry `json:"entries"`
}

// User is the body returned when a key is created.
type User struct {
	UserKey string `json:"userkey"`
}

// Client talks to one phonebook server. It is safe for concurrent use.
type Client struct {
	base   *url.URL
	http   *http.Client
	log    *slog.Logger
	tracer trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default transport.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a client for the server at baseURL. The URL may carry a path
// prefix; "api/..." is appended to it. Any query string is ignored.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q: scheme and host required", baseURL)
	}
	u.RawQuery = ""
	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}

	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: defaultTimeout},
		log:    slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the server URL requests are resolved against.
func (c *Client) BaseURL() string { return c.base.String() }

// ListEntries returns all entries visible to key.
func (c *Client) ListEntries(ctx context.Context, key string) ([]model.Entry, error) {
	var out EntryList
	if err := c.do(ctx, http.MethodGet, key, nil, &out, "api", "phonebook"); err != nil {
		return nil, err
	}
	if out.Entries == nil {
		out.Entries = []model.Entry{}
	}
	return out.Entries, nil
}

// GetEntry fetches a single entry.
func (c *Client) GetEntry(ctx context.Context, key string, id int64) (model.Entry, error) {
	var out model.Entry
	err := c.do(ctx, http.MethodGet, key, nil, &out, "api", "phonebook", strconv.FormatInt(id, 10))
	return out, err
}

// CreateEntry stores a new entry. The response body is not used.
func (c *Client) CreateEntry(ctx context.Context, key string, f model.Fields) error {
	return c.do(ctx, http.MethodPost, key, f, nil, "api", "phonebook")
}

// UpdateEntry replaces the four fields of an existing entry.
func (c *Client) UpdateEntry(ctx context.Context, key string, id int64, f model.Fields) error {
	return c.do(ctx, http.MethodPut, key, f, nil, "api", "phonebook", strconv.FormatInt(id, 10))
}

func (c *Client) DeleteEntry(ctx context.Context, key string, id int64) error {
	return c.do(ctx, http.MethodDelete, key, nil, nil, "api", "phonebook", strconv.FormatInt(id, 10))
}

// CreateUser asks the server for a fresh user key.
func (c *Client) CreateUser(ctx context.Context) (string, error) {
	var out User
	if err := c.do(ctx, http.MethodPost, "", struct{}{}, &out, "api", "user"); err != nil {
		return "", err
	}
	if out.UserKey == "" {
		return "", fmt.Errorf("POST api/user: empty userkey in response")
	}
	return out.UserKey, nil
}

// endpoint builds the request URL. An empty key omits the auth parameter.
func (c *Client) endpoint(key string, elem ...string) *url.URL {
	u := c.base.JoinPath(elem...)
	if key != "" {
		q := url.Values{}
		q.Set(AuthParam, key)
		u.RawQuery = q.Encode()
	}
	return u
}

func (c *Client) do(ctx context.Context, method, key string, in, out any, elem ...string) error {
	u := c.endpoint(key, elem...)
	path := u.Path

	ctx, span := c.tracer.Start(ctx, method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.target", path),
		))
	defer span.End()

	err := c.roundTrip(ctx, span, method, u, in, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, span trace.Span, method string, u *url.URL, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s %s: marshal body: %w", method, u.Path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, u.Path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", "method", method, "path", u.Path, "err", err)
		return fmt.Errorf("%s %s: %w", method, u.Path, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.log.Debug("request", "method", method, "path", u.Path, "status", resp.StatusCode, "took", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return &StatusError{Method: method, Path: u.Path, StatusCode: resp.StatusCode}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, u.Path, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%s %s: decode body: %w", method, u.Path, err)
	}
	return nil
}
