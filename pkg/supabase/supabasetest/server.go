// Package supabasetest runs an in-memory stand-in for a Supabase project.
// Its REST side understands the PostgREST subset pkg/supabase emits:
// comparison filters, order, limit, column and embedded-resource selects,
// single-object responses, inserts, updates, deletes and RPC calls. Its
// Realtime side accepts channel joins for postgres_changes and pushes every
// row written through the REST side to the matching subscribers.
package supabasetest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/supabase"
)

// Key is the access key the server accepts.
const Key = "test-anon-key"

// Row is one stored record.
type Row = map[string]any

// RPCFunc implements a server-side function. A returned *supabase.Error is
// sent with its Status.
type RPCFunc func(s *Server, params map[string]any) (any, error)

type relation struct {
	child string
	fk    string
}

// Server is the fake endpoint. Its zero value is not usable; call New.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	tables    map[string][]Row
	nextID    map[string]int64
	defaults  map[string]func() Row
	relations map[string][]relation // parent table → children
	rpcs      map[string]RPCFunc
	failNext  *supabase.Error
	requests  []string
	schemas   map[string]bool
	subs      map[*subscriber]bool
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		tables:    map[string][]Row{},
		nextID:    map[string]int64{},
		defaults:  map[string]func() Row{},
		relations: map[string][]relation{},
		rpcs:      map[string]RPCFunc{},
		schemas:   map[string]bool{"public": true},
		subs:      map[*subscriber]bool{},
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Get(supabase.RealtimePath, s.handleRealtime)
	r.With(s.auth, s.profile).Route("/rest/v1", func(r chi.Router) {
		r.Post("/rpc/{fn}", s.handleRPC)
		r.Get("/{table}", s.handleSelect)
		r.Post("/{table}", s.handleInsert)
		r.Patch("/{table}", s.handleUpdate)
		r.Delete("/{table}", s.handleDelete)
	})

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Client returns a supabase.Client pointed at the server.
func (s *Server) Client(t testing.TB, opts ...supabase.Option) *supabase.Client {
	t.Helper()
	c, err := supabase.New(s.URL, Key, opts...)
	require.NoError(t, err)
	return c
}

// Defaults sets the column values filled in on insert when absent.
func (s *Server) Defaults(table string, fn func() Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults[table] = fn
}

// Relate declares child.fk → parent.id so parent selects may embed child
// rows and child inserts are checked against existing parents.
func (s *Server) Relate(parent, child, fk string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relations[parent] = append(s.relations[parent], relation{child: child, fk: fk})
}

// HandleRPC registers a server-side function.
func (s *Server) HandleRPC(name string, fn RPCFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rpcs[name] = fn
}

// ExposeSchema lets clients address schema besides public.
func (s *Server) ExposeSchema(schema string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas[schema] = true
}

// FailNext makes the next request answer with e.
func (s *Server) FailNext(e *supabase.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = e
}

// Rows returns a copy of the stored rows of table.
func (s *Server) Rows(table string) []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Row, 0, len(s.tables[table]))
	for _, row := range s.tables[table] {
		out = append(out, copyRow(row))
	}
	return out
}

// Requests returns "METHOD /path?query" for every request received so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// InsertLocked stores row in table assigning id and defaults. It must only
// be called from an RPCFunc, which already runs under the server lock.
func (s *Server) InsertLocked(table string, row Row) (Row, error) {
	return s.insertLocked(table, row)
}

// ─── middleware ──────────────────────────────────────────────────────────────

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.RequestURI())
		fail := s.failNext
		s.failNext = nil
		s.mu.Unlock()

		if fail != nil {
			writeError(w, fail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != Key || r.Header.Get("Authorization") != "Bearer "+Key {
			writeError(w, &supabase.Error{Status: http.StatusUnauthorized, Code: "401", Message: "Invalid API key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// profile rejects Accept-Profile/Content-Profile schemas that are not exposed.
func (s *Server) profile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, h := range []string{"Accept-Profile", "Content-Profile"} {
			schema := r.Header.Get(h)
			if schema == "" {
				continue
			}
			s.mu.Lock()
			ok := s.schemas[schema]
			s.mu.Unlock()
			if !ok {
				writeError(w, &supabase.Error{
					Status:  http.StatusNotAcceptable,
					Code:    "PGRST106",
					Message: "Invalid schema: " + schema,
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// ─── handlers ────────────────────────────────────────────────────────────────

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	s.mu.Lock()
	rows, err := s.matchLocked(table, r)
	if err == nil {
		rows, err = s.shapeLocked(table, rows, r)
	}
	s.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}
	s.respond(w, r, http.StatusOK, rows)
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, badRequest(err.Error()))
		return
	}
	var batch []Row
	if strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
		err = json.Unmarshal(raw, &batch)
	} else {
		var one Row
		err = json.Unmarshal(raw, &one)
		batch = []Row{one}
	}
	if err != nil {
		writeError(w, badRequest("invalid JSON body"))
		return
	}

	s.mu.Lock()
	var created []Row
	for _, in := range batch {
		row, err := s.insertLocked(table, in)
		if err != nil {
			s.mu.Unlock()
			writeError(w, err)
			return
		}
		created = append(created, row)
	}
	shaped, err := s.shapeLocked(table, created, r)
	s.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}
	s.respondWrite(w, r, http.StatusCreated, shaped)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	var fields Row
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, badRequest("invalid JSON body"))
		return
	}

	s.mu.Lock()
	rows, err := s.matchLocked(table, r)
	if err != nil {
		s.mu.Unlock()
		writeError(w, err)
		return
	}
	for _, row := range rows {
		old := copyRow(row)
		for k, v := range fields {
			row[k] = v
		}
		s.publishLocked(table, supabase.ChangeUpdate, row, old)
	}
	shaped, err := s.shapeLocked(table, rows, r)
	s.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}
	s.respondWrite(w, r, http.StatusOK, shaped)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	s.mu.Lock()
	rows, err := s.matchLocked(table, r)
	if err != nil {
		s.mu.Unlock()
		writeError(w, err)
		return
	}
	for _, rel := range s.relations[table] {
		for _, parent := range rows {
			for _, child := range s.tables[rel.child] {
				if sameValue(child[rel.fk], parent["id"]) {
					s.mu.Unlock()
					writeError(w, &supabase.Error{
						Status:  http.StatusConflict,
						Code:    "23503",
						Message: fmt.Sprintf("update or delete on table %q violates foreign key constraint on table %q", table, rel.child),
					})
					return
				}
			}
		}
	}
	kept := s.tables[table][:0]
	for _, row := range s.tables[table] {
		if !containsRow(rows, row) {
			kept = append(kept, row)
		}
	}
	s.tables[table] = kept
	deleted := make([]Row, 0, len(rows))
	for _, row := range rows {
		deleted = append(deleted, copyRow(row))
		s.publishLocked(table, supabase.ChangeDelete, nil, row)
	}
	s.mu.Unlock()

	s.respondWrite(w, r, http.StatusOK, deleted)
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "fn")

	params := map[string]any{}
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil && err != io.EOF {
		writeError(w, badRequest("invalid JSON body"))
		return
	}

	s.mu.Lock()
	fn, ok := s.rpcs[name]
	if !ok {
		s.mu.Unlock()
		writeError(w, &supabase.Error{
			Status:  http.StatusNotFound,
			Code:    "PGRST202",
			Message: fmt.Sprintf("Could not find the function public.%s in the schema cache", name),
		})
		return
	}
	out, err := fn(s, params)
	s.mu.Unlock()

	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ─── storage ─────────────────────────────────────────────────────────────────

func (s *Server) insertLocked(table string, in Row) (Row, error) {
	row := Row{}
	if fn := s.defaults[table]; fn != nil {
		for k, v := range fn() {
			row[k] = v
		}
	}
	for k, v := range in {
		row[k] = v
	}

	for parent, rels := range s.relations {
		for _, rel := range rels {
			if rel.child != table {
				continue
			}
			found := false
			for _, p := range s.tables[parent] {
				if sameValue(p["id"], row[rel.fk]) {
					found = true
					break
				}
			}
			if !found {
				return nil, &supabase.Error{
					Status:  http.StatusConflict,
					Code:    "23503",
					Message: fmt.Sprintf("insert or update on table %q violates foreign key constraint", table),
				}
			}
		}
	}

	s.nextID[table]++
	row["id"] = s.nextID[table]
	s.tables[table] = append(s.tables[table], row)
	s.publishLocked(table, supabase.ChangeInsert, row, nil)
	return row, nil
}

// matchLocked returns the live rows of table passing every filter in r.
func (s *Server) matchLocked(table string, r *http.Request) ([]Row, error) {
	type cond struct{ column, op, value string }
	var conds []cond
	for column, values := range r.URL.Query() {
		switch column {
		case "select", "order", "limit", "offset":
			continue
		}
		for _, v := range values {
			op, value, ok := strings.Cut(v, ".")
			if !ok {
				return nil, badRequest("malformed filter " + column + "=" + v)
			}
			conds = append(conds, cond{column, op, value})
		}
	}

	var out []Row
	for _, row := range s.tables[table] {
		keep := true
		for _, c := range conds {
			ok, err := compare(row[c.column], c.op, c.value)
			if err != nil {
				return nil, err
			}
			if !ok {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, row)
		}
	}
	return out, nil
}

// shapeLocked applies order, limit and select to rows, returning copies.
func (s *Server) shapeLocked(table string, rows []Row, r *http.Request) ([]Row, error) {
	q := r.URL.Query()

	sorted := append([]Row(nil), rows...)
	if order := q.Get("order"); order != "" {
		keys := strings.Split(order, ",")
		sort.SliceStable(sorted, func(i, j int) bool {
			for _, k := range keys {
				column, dir, _ := strings.Cut(k, ".")
				c := compareValues(sorted[i][column], sorted[j][column])
				if c == 0 {
					continue
				}
				if dir == "desc" {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			return nil, badRequest("invalid limit")
		}
		if n < len(sorted) {
			sorted = sorted[:n]
		}
	}

	selectExpr := q.Get("select")
	if selectExpr == "" {
		selectExpr = "*"
	}

	out := make([]Row, 0, len(sorted))
	for _, row := range sorted {
		shaped, err := s.project(table, row, selectExpr)
		if err != nil {
			return nil, err
		}
		out = append(out, shaped)
	}
	return out, nil
}

func (s *Server) project(table string, row Row, expr string) (Row, error) {
	out := Row{}
	for _, item := range splitTopLevel(expr) {
		item = strings.TrimSpace(item)
		switch {
		case item == "*":
			for k, v := range row {
				out[k] = v
			}
		case strings.HasSuffix(item, ")"):
			open := strings.Index(item, "(")
			child, inner := item[:open], item[open+1:len(item)-1]
			rel, ok := s.relationLocked(table, child)
			if !ok {
				return nil, &supabase.Error{
					Status:  http.StatusBadRequest,
					Code:    "PGRST200",
					Message: fmt.Sprintf("Could not find a relationship between %q and %q", table, child),
				}
			}
			embedded := []Row{}
			for _, c := range s.tables[child] {
				if sameValue(c[rel.fk], row["id"]) {
					shaped, err := s.project(child, c, inner)
					if err != nil {
						return nil, err
					}
					embedded = append(embedded, shaped)
				}
			}
			out[child] = embedded
		default:
			out[item] = row[item]
		}
	}
	return out, nil
}

func (s *Server) relationLocked(parent, child string) (relation, bool) {
	for _, rel := range s.relations[parent] {
		if rel.child == child {
			return rel, true
		}
	}
	return relation{}, false
}

// ─── responses ───────────────────────────────────────────────────────────────

func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, rows []Row) {
	if strings.Contains(r.Header.Get("Accept"), "vnd.pgrst.object+json") {
		if len(rows) != 1 {
			writeError(w, &supabase.Error{
				Status:  http.StatusNotAcceptable,
				Code:    supabase.CodeNoRows,
				Message: "JSON object requested, multiple (or no) rows returned",
				Details: fmt.Sprintf("The result contains %d rows", len(rows)),
			})
			return
		}
		writeJSON(w, status, rows[0])
		return
	}
	writeJSON(w, status, rows)
}

func (s *Server) respondWrite(w http.ResponseWriter, r *http.Request, status int, rows []Row) {
	if !strings.Contains(r.Header.Get("Prefer"), "return=representation") {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.respond(w, r, status, rows)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	e, ok := err.(*supabase.Error)
	if !ok {
		e = &supabase.Error{Status: http.StatusInternalServerError, Code: "XX000", Message: err.Error()}
	}
	writeJSON(w, e.Status, e)
}

func badRequest(msg string) *supabase.Error {
	return &supabase.Error{Status: http.StatusBadRequest, Code: "PGRST100", Message: msg}
}

// ─── value helpers ───────────────────────────────────────────────────────────

func compare(v any, op, raw string) (bool, error) {
	if op == "is" {
		return (raw == "null" && v == nil) || (raw != "null" && formatAny(v) == raw), nil
	}

	c := compareValues(v, parseLiteral(v, raw))
	switch op {
	case "eq":
		return c == 0, nil
	case "neq":
		return c != 0, nil
	case "gt":
		return c > 0, nil
	case "gte":
		return c >= 0, nil
	case "lt":
		return c < 0, nil
	case "lte":
		return c <= 0, nil
	default:
		return false, badRequest("unsupported operator " + op)
	}
}

// parseLiteral converts raw into the type of the stored value it is compared
// with.
func parseLiteral(stored any, raw string) any {
	switch stored.(type) {
	case bool:
		return raw == "true"
	case float64, int64, int:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	}
	return raw
}

func compareValues(a, b any) int {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba:
				return -1
			default:
				return 1
			}
		}
	}
	return strings.Compare(formatAny(a), formatAny(b))
}

func sameValue(a, b any) bool {
	return a != nil && b != nil && compareValues(a, b) == 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func formatAny(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func splitTopLevel(expr string) []string {
	var parts []string
	depth, start := 0, 0
	for i, ch := range expr {
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, expr[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, expr[start:])
}

func copyRow(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func containsRow(rows []Row, row Row) bool {
	for _, r := range rows {
		if sameValue(r["id"], row["id"]) {
			return true
		}
	}
	return false
}
