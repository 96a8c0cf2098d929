package http_test

import (
	"context"
	"encoding/json"
	"io"
	gohttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/http"
)

type roundTripFunc func(*gohttp.Request) (*gohttp.Response, error)

func (f roundTripFunc) RoundTrip(r *gohttp.Request) (*gohttp.Response, error) { return f(r) }

func TestSend_JSONBodyAndHeaders(t *testing.T) {
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		assert.Equal(t, gohttp.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		assert.Equal(t, "k", r.Header.Get("apikey"))

		var in map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		w.WriteHeader(gohttp.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"echo": in["name"]})
	}))
	defer srv.Close()

	resp, err := http.Post(srv.URL).
		Header("apikey", "k").
		Bearer("k").
		Body(map[string]any{"name": "Juan Pérez"}).
		Send()
	require.NoError(t, err)
	require.True(t, resp.OK())

	var out map[string]string
	require.NoError(t, resp.JSON(&out))
	assert.Equal(t, "Juan Pérez", out["echo"])
}

func TestSend_NonSuccessIsNotTransportError(t *testing.T) {
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, _ *gohttp.Request) {
		gohttp.Error(w, "nope", gohttp.StatusConflict)
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL).Send()
	require.NoError(t, err)

	assert.False(t, resp.OK())
	assert.Equal(t, gohttp.StatusConflict, resp.StatusCode)
	assert.Contains(t, resp.Text(), "nope")
}

func TestSend_NoDefaultDeadline(t *testing.T) {
	var hasDeadline bool
	c := &gohttp.Client{Transport: roundTripFunc(func(r *gohttp.Request) (*gohttp.Response, error) {
		_, hasDeadline = r.Context().Deadline()
		return &gohttp.Response{StatusCode: gohttp.StatusOK, Body: io.NopCloser(strings.NewReader("")), Request: r}, nil
	})}

	_, err := http.Get("http://example.invalid/").Client(c).Send()
	require.NoError(t, err)
	assert.False(t, hasDeadline)
}

func TestSend_ContextDeadline(t *testing.T) {
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := http.Get(srv.URL).WithContext(ctx).Send()
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDefaultClientTransportSwap(t *testing.T) {
	prev := http.DefaultClient.Transport
	t.Cleanup(func() { http.DefaultClient.Transport = prev })
	http.DefaultClient.Transport = roundTripFunc(func(r *gohttp.Request) (*gohttp.Response, error) {
		return &gohttp.Response{
			StatusCode: gohttp.StatusOK,
			Header:     gohttp.Header{"X-Test": []string{"1"}},
			Body:       io.NopCloser(strings.NewReader(`ok`)),
			Request:    r,
		}, nil
	})

	resp, err := http.Delete("http://example.invalid/x").Send()
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text())
	assert.Equal(t, "1", resp.Header("X-Test"))
}
