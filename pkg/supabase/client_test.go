package supabase_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/supabase"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/supabase/supabasetest"
)

type person struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Active bool   `json:"active"`
}

func seed(t *testing.T, srv *supabasetest.Server, c *supabase.Client) {
	t.Helper()
	srv.Defaults("people", func() supabasetest.Row { return supabasetest.Row{"active": true} })

	rows := []map[string]any{
		{"name": "Ana", "age": 17},
		{"name": "Luis", "age": 42},
		{"name": "Eva", "age": 30, "active": false},
		{"name": "Sol", "age": 30},
	}
	err := c.From("people").Insert(rows).Execute(context.Background(), nil)
	require.NoError(t, err)
}

func TestNew_Validation(t *testing.T) {
	_, err := supabase.New("", "key")
	assert.ErrorIs(t, err, supabase.ErrMissingConfig)

	_, err = supabase.New("https://x.supabase.co", " ")
	assert.ErrorIs(t, err, supabase.ErrMissingConfig)

	_, err = supabase.New("not a url", "key")
	assert.Error(t, err)

	c, err := supabase.New("https://x.supabase.co/", "key")
	require.NoError(t, err)
	assert.Equal(t, "https://x.supabase.co", c.URL())
}

func TestEncode(t *testing.T) {
	c, err := supabase.New("https://x.supabase.co", "key")
	require.NoError(t, err)

	got := c.From("users").
		Select("*").
		Eq("active", true).
		Gte("age", 18).
		Order("registered_at", supabase.Desc).
		Order("id", supabase.Asc).
		Encode()

	assert.Equal(t, "users?active=eq.true&age=gte.18&order=registered_at.desc%2Cid.asc&select=%2A", got)
}

func TestInsertReturnsRepresentation(t *testing.T) {
	srv := supabasetest.New(t)
	c := srv.Client(t)
	srv.Defaults("people", func() supabasetest.Row { return supabasetest.Row{"active": true} })

	var created []person
	err := c.From("people").Insert(map[string]any{"name": "Juan Pérez", "age": 25}).Execute(context.Background(), &created)
	require.NoError(t, err)

	require.Len(t, created, 1)
	assert.Equal(t, int64(1), created[0].ID)
	assert.Equal(t, "Juan Pérez", created[0].Name)
	assert.True(t, created[0].Active)
}

func TestFiltersAndOrder(t *testing.T) {
	srv := supabasetest.New(t)
	c := srv.Client(t)
	seed(t, srv, c)

	var adults []person
	err := c.From("people").
		Select("*").
		Eq("active", true).
		Gte("age", 18).
		Order("age", supabase.Desc).
		Execute(context.Background(), &adults)
	require.NoError(t, err)

	require.Len(t, adults, 2)
	assert.Equal(t, "Luis", adults[0].Name)
	assert.Equal(t, "Sol", adults[1].Name)
}

func TestSelectColumnsAndLimit(t *testing.T) {
	srv := supabasetest.New(t)
	c := srv.Client(t)
	seed(t, srv, c)

	var rows []map[string]any
	err := c.From("people").Select("age").Order("id", supabase.Asc).Limit(2).Execute(context.Background(), &rows)
	require.NoError(t, err)

	assert.Equal(t, []map[string]any{{"age": float64(17)}, {"age": float64(42)}}, rows)
}

func TestSingle(t *testing.T) {
	srv := supabasetest.New(t)
	c := srv.Client(t)
	seed(t, srv, c)

	var p person
	require.NoError(t, c.From("people").Select("*").Eq("id", 2).Single().Execute(context.Background(), &p))
	assert.Equal(t, "Luis", p.Name)

	err := c.From("people").Select("*").Eq("id", 99).Single().Execute(context.Background(), &p)
	assert.True(t, supabase.IsNoRows(err), "got %v", err)
}

func TestUpdateAndDelete(t *testing.T) {
	srv := supabasetest.New(t)
	c := srv.Client(t)
	seed(t, srv, c)
	ctx := context.Background()

	var updated []person
	require.NoError(t, c.From("people").Update(map[string]any{"name": "Ana María"}).Eq("id", 1).Execute(ctx, &updated))
	require.Len(t, updated, 1)
	assert.Equal(t, "Ana María", updated[0].Name)

	var deleted []person
	require.NoError(t, c.From("people").Delete().Eq("age", 30).Execute(ctx, &deleted))
	assert.Len(t, deleted, 2)
	assert.Len(t, srv.Rows("people"), 2)
}

func TestEmbeddedResource(t *testing.T) {
	srv := supabasetest.New(t)
	c := srv.Client(t)
	srv.Relate("people", "pets", "person_id")
	ctx := context.Background()

	require.NoError(t, c.From("people").Insert(map[string]any{"name": "Ana"}).Execute(ctx, nil))
	require.NoError(t, c.From("pets").Insert(map[string]any{"person_id": 1, "kind": "cat"}).Execute(ctx, nil))

	var out []struct {
		Name string `json:"name"`
		Pets []struct {
			Kind string `json:"kind"`
		} `json:"pets"`
	}
	require.NoError(t, c.From("people").Select("name,pets(*)").Execute(ctx, &out))
	require.Len(t, out, 1)
	require.Len(t, out[0].Pets, 1)
	assert.Equal(t, "cat", out[0].Pets[0].Kind)

	err := c.From("pets").Insert(map[string]any{"person_id": 7, "kind": "dog"}).Execute(ctx, nil)
	var apiErr *supabase.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "23503", apiErr.Code)
}

func TestRPC(t *testing.T) {
	srv := supabasetest.New(t)
	c := srv.Client(t)
	srv.HandleRPC("add", func(_ *supabasetest.Server, params map[string]any) (any, error) {
		return map[string]any{"sum": params["a"].(float64) + params["b"].(float64)}, nil
	})

	var out struct {
		Sum float64 `json:"sum"`
	}
	require.NoError(t, c.RPC("add", map[string]int{"a": 2, "b": 3}).Execute(context.Background(), &out))
	assert.Equal(t, 5.0, out.Sum)

	err := c.RPC("missing", nil).Execute(context.Background(), nil)
	var apiErr *supabase.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "PGRST202", apiErr.Code)
}

func TestWrongKeyIsRejected(t *testing.T) {
	srv := supabasetest.New(t)
	c, err := supabase.New(srv.URL, "wrong")
	require.NoError(t, err)

	err = c.From("people").Select("*").Execute(context.Background(), nil)
	var apiErr *supabase.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Contains(t, apiErr.Error(), "Invalid API key")
}

func TestWithSchema_SelectsProfile(t *testing.T) {
	srv := supabasetest.New(t)
	ctx := context.Background()
	shop := srv.Client(t, supabase.WithSchema("shop"))

	err := shop.From("people").Select("*").Execute(ctx, nil)
	var apiErr *supabase.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "PGRST106", apiErr.Code)

	err = shop.From("people").Insert(map[string]any{"name": "Ana"}).Execute(ctx, nil)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "PGRST106", apiErr.Code)

	srv.ExposeSchema("shop")
	assert.NoError(t, shop.From("people").Insert(map[string]any{"name": "Ana"}).Execute(ctx, nil))
}

func TestWithHTTPClient_SendsAuthHeaders(t *testing.T) {
	var seen http.Header
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		seen = r.Header.Clone()
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Header: http.Header{}}, nil
	})}
	c, err := supabase.New("https://x.supabase.co", "key", supabase.WithHTTPClient(hc), supabase.WithSchema("shop"))
	require.NoError(t, err)

	require.NoError(t, c.From("people").Select("*").Execute(context.Background(), nil))
	assert.Equal(t, "key", seen.Get("apikey"))
	assert.Equal(t, "Bearer key", seen.Get("Authorization"))
	assert.Equal(t, "shop", seen.Get("Accept-Profile"))
	assert.Empty(t, seen.Get("Content-Profile"))
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestFailNext(t *testing.T) {
	srv := supabasetest.New(t)
	c := srv.Client(t)
	srv.FailNext(&supabase.Error{Status: http.StatusServiceUnavailable, Message: "maintenance"})

	err := c.From("people").Select("*").Execute(context.Background(), nil)
	assert.ErrorContains(t, err, "status 503")

	assert.NoError(t, c.From("people").Select("*").Execute(context.Background(), nil))
}
