package supabase

import (
	"context"
	"fmt"
	gohttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/http"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/logger"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/metrics"
)

// Direction is a sort direction for Order.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// QueryBuilder accumulates one PostgREST request. Builders are not safe for
// concurrent use; start a new one per query with Client.From.
type QueryBuilder struct {
	client  *Client
	path    string
	method  string
	params  url.Values
	order   []string
	body    any
	headers map[string]string
}

func newBuilder(c *Client, path, method string) *QueryBuilder {
	return &QueryBuilder{
		client:  c,
		path:    path,
		method:  method,
		params:  url.Values{},
		headers: map[string]string{},
	}
}

// Select chooses the returned columns, including embedded resources such as
// "*,orders(*)".
func (q *QueryBuilder) Select(columns string) *QueryBuilder {
	q.params.Set("select", columns)
	return q
}

// Insert turns the query into an insert of row (a struct, map, or slice of
// them). The inserted rows are returned.
func (q *QueryBuilder) Insert(row any) *QueryBuilder {
	q.method = gohttp.MethodPost
	q.body = row
	q.headers["Prefer"] = "return=representation"
	return q
}

// Update turns the query into a PATCH of fields on every matching row. The
// updated rows are returned.
func (q *QueryBuilder) Update(fields any) *QueryBuilder {
	q.method = gohttp.MethodPatch
	q.body = fields
	q.headers["Prefer"] = "return=representation"
	return q
}

// Delete turns the query into a delete of every matching row. The deleted
// rows are returned.
func (q *QueryBuilder) Delete() *QueryBuilder {
	q.method = gohttp.MethodDelete
	q.headers["Prefer"] = "return=representation"
	return q
}

// Eq filters column = value.
func (q *QueryBuilder) Eq(column string, value any) *QueryBuilder {
	return q.filter(column, "eq", value)
}

// Gte filters column >= value.
func (q *QueryBuilder) Gte(column string, value any) *QueryBuilder {
	return q.filter(column, "gte", value)
}

// Order appends a sort key. Calls accumulate in order of precedence.
func (q *QueryBuilder) Order(column string, dir Direction) *QueryBuilder {
	suffix := ".asc"
	if dir == Desc {
		suffix = ".desc"
	}
	q.order = append(q.order, column+suffix)
	return q
}

// Limit caps the number of returned rows.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.params.Set("limit", fmt.Sprint(n))
	return q
}

// Single asks for exactly one row as a JSON object instead of an array.
// Zero or several rows produce an *Error with code PGRST116.
func (q *QueryBuilder) Single() *QueryBuilder {
	q.headers["Accept"] = "application/vnd.pgrst.object+json"
	return q
}

func (q *QueryBuilder) filter(column, op string, value any) *QueryBuilder {
	q.params.Add(column, op+"."+formatValue(value))
	return q
}

// Encode returns the request target relative to the REST root, e.g.
// "users?age=gte.18&select=%2A".
func (q *QueryBuilder) Encode() string {
	params := url.Values{}
	for k, v := range q.params {
		params[k] = append([]string(nil), v...)
	}
	if len(q.order) > 0 {
		params.Set("order", strings.Join(q.order, ","))
	}
	if enc := params.Encode(); enc != "" {
		return q.path + "?" + enc
	}
	return q.path
}

// Execute sends the request and decodes the JSON response into dest. dest
// may be nil when the body is not needed. A non-2xx status is returned as
// an *Error.
func (q *QueryBuilder) Execute(ctx context.Context, dest any) error {
	c := q.client
	target := c.restURL + "/" + q.Encode()

	req := http.NewRequest(q.method, target).
		WithContext(ctx).
		Header("apikey", c.key).
		Bearer(c.key).
		Headers(c.profileHeaders(q.method)).
		Headers(q.headers)
	if c.http != nil {
		req.Client(c.http)
	}
	if q.body != nil {
		req.Body(q.body)
	}

	start := time.Now()
	resp, err := req.Send()
	if err != nil {
		metrics.ObserveHostedRequest(q.method, q.path, 0, start)
		return fmt.Errorf("supabase: %s %s: %w", q.method, q.path, err)
	}
	metrics.ObserveHostedRequest(q.method, q.path, resp.StatusCode, start)
	logger.WithCtx(ctx).Debug("supabase request", "method", q.method, "path", q.path, "status", resp.StatusCode)

	if !resp.OK() {
		return decodeError(resp)
	}

	if dest == nil || len(resp.Raw) == 0 {
		return nil
	}
	if err := resp.JSON(dest); err != nil {
		return fmt.Errorf("supabase: %s %s: %w", q.method, q.path, err)
	}
	return nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}
