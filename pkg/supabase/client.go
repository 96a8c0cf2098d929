// Package supabase is a small client for a Supabase project's REST surface
// (PostgREST). Queries are built fluently and translated into PostgREST
// query strings:
//
//	client, _ := supabase.New(url, key)
//
//	var users []models.User
//	err := client.From("users").
//	    Select("*").
//	    Eq("active", true).
//	    Gte("age", 18).
//	    Order("registered_at", supabase.Desc).
//	    Execute(ctx, &users)
//
// A Client is immutable after New and safe for concurrent use. Connection
// reuse is left to the underlying *http.Client.
package supabase

import (
	"errors"
	"fmt"
	gohttp "net/http"
	"net/url"
	"strings"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/config"
)

// ErrMissingConfig is returned when the endpoint or access key is empty.
var ErrMissingConfig = errors.New("supabase: endpoint URL and access key are required")

const restPath = "/rest/v1"

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sends every request through hc.
func WithHTTPClient(hc *gohttp.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSchema selects a non-default Postgres schema via the
// Accept-Profile/Content-Profile headers.
func WithSchema(schema string) Option {
	return func(c *Client) { c.schema = schema }
}

// Client is a handle on one Supabase project.
type Client struct {
	baseURL string
	restURL string
	key     string
	schema  string
	http    *gohttp.Client
}

// New returns a Client for the project at baseURL authenticated with key.
func New(baseURL, key string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	key = strings.TrimSpace(key)
	if baseURL == "" || key == "" {
		return nil, ErrMissingConfig
	}

	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("supabase: invalid endpoint URL %q", baseURL)
	}

	c := &Client{
		baseURL: baseURL,
		restURL: baseURL + restPath,
		key:     key,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FromConfig builds a Client from SUPABASE_URL and SUPABASE_KEY, plus
// SUPABASE_SCHEMA when set. Explicit opts win over the configured schema.
func FromConfig(opts ...Option) (*Client, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if schema := config.SupabaseSchema(); schema != "" {
		opts = append([]Option{WithSchema(schema)}, opts...)
	}
	return New(config.SupabaseURL(), config.SupabaseKey(), opts...)
}

// URL returns the project endpoint the client talks to.
func (c *Client) URL() string { return c.baseURL }

// From starts a query against table.
func (c *Client) From(table string) *QueryBuilder {
	return newBuilder(c, table, gohttp.MethodGet)
}

// RPC starts a call to the server-side function fn with params as its
// named arguments.
func (c *Client) RPC(fn string, params any) *QueryBuilder {
	q := newBuilder(c, "rpc/"+fn, gohttp.MethodPost)
	if params == nil {
		params = map[string]any{}
	}
	q.body = params
	return q
}

// schemaName is the Postgres schema the client reads and writes.
func (c *Client) schemaName() string {
	if c.schema == "" {
		return "public"
	}
	return c.schema
}

func (c *Client) profileHeaders(method string) map[string]string {
	h := map[string]string{}
	if c.schema != "" {
		if method == gohttp.MethodGet || method == gohttp.MethodHead {
			h["Accept-Profile"] = c.schema
		} else {
			h["Content-Profile"] = c.schema
		}
	}
	return h
}
