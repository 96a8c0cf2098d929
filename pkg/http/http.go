// Package http provides the fluent JSON HTTP client the hosted backend
// client is built on.
//
// Usage:
//
//	resp, err := http.Get(base + "/rest/v1/users?select=*").
//	    Header("apikey", key).
//	    Bearer(key).
//	    WithContext(ctx).
//	    Send()
//
//	var users []models.User
//	err = resp.JSON(&users)
//
// Requests are sent once and are bounded only by their context. Retrying
// and deadlines are left to the caller.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	gohttp "net/http"
	"time"
)

// DefaultClient is used by requests that do not set their own client.
var DefaultClient = &gohttp.Client{
	Transport: &gohttp.Transport{
		Proxy:               gohttp.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

// ------------------- Request -------------------

// Request is a fluent HTTP request builder.
type Request struct {
	method  string
	url     string
	headers map[string]string
	body    interface{}
	ctx     context.Context
	client  *gohttp.Client
}

// Get starts a GET request.
func Get(url string) *Request { return NewRequest(gohttp.MethodGet, url) }

// Post starts a POST request.
func Post(url string) *Request { return NewRequest(gohttp.MethodPost, url) }

// Patch starts a PATCH request.
func Patch(url string) *Request { return NewRequest(gohttp.MethodPatch, url) }

// Delete starts a DELETE request.
func Delete(url string) *Request { return NewRequest(gohttp.MethodDelete, url) }

// NewRequest starts a request with an arbitrary method.
func NewRequest(method, url string) *Request {
	return &Request{
		method:  method,
		url:     url,
		headers: map[string]string{"Accept": "application/json"},
		ctx:     context.Background(),
	}
}

// Header adds a single header to the request.
func (r *Request) Header(key, value string) *Request {
	r.headers[key] = value
	return r
}

// Headers merges a map of headers.
func (r *Request) Headers(h map[string]string) *Request {
	for k, v := range h {
		r.headers[k] = v
	}
	return r
}

// Bearer sets the Authorization: Bearer <token> header.
func (r *Request) Bearer(token string) *Request {
	return r.Header("Authorization", "Bearer "+token)
}

// Body sets the request body. v is marshalled to JSON unless it is a string
// or []byte.
func (r *Request) Body(v interface{}) *Request {
	r.body = v
	return r
}

// WithContext sets the parent context.
func (r *Request) WithContext(ctx context.Context) *Request {
	r.ctx = ctx
	return r
}

// Client sends the request through c instead of DefaultClient.
func (r *Request) Client(c *gohttp.Client) *Request {
	r.client = c
	return r
}

// ------------------- Send -------------------

// Send executes the request once and buffers the response body. A non-2xx
// status is not an error here; check Response.OK.
func (r *Request) Send() (*Response, error) {
	body, ct, err := r.buildBody()
	if err != nil {
		return nil, err
	}

	req, err := gohttp.NewRequestWithContext(r.ctx, r.method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("http: build request: %w", err)
	}

	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	if ct != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", ct)
	}

	client := r.client
	if client == nil {
		client = DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: %s %s: %w", r.method, r.url, err)
	}

	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("http: read body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Raw:        raw,
	}, nil
}

func (r *Request) buildBody() (io.Reader, string, error) {
	if r.body == nil {
		return nil, "", nil
	}
	switch v := r.body.(type) {
	case string:
		return bytes.NewBufferString(v), "text/plain", nil
	case []byte:
		return bytes.NewReader(v), "application/octet-stream", nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("http: marshal body: %w", err)
		}
		return bytes.NewReader(b), "application/json", nil
	}
}

// ------------------- Response -------------------

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Headers    gohttp.Header
	Raw        []byte
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON unmarshals the response body into dest.
func (r *Response) JSON(dest interface{}) error {
	if err := json.Unmarshal(r.Raw, dest); err != nil {
		return fmt.Errorf("http: decode JSON: %w", err)
	}
	return nil
}

// Text returns the response body as a string.
func (r *Response) Text() string {
	return string(r.Raw)
}

// Header returns a single response header value.
func (r *Response) Header(key string) string {
	return r.Headers.Get(key)
}
