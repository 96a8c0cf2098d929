package supabase

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/http"
)

// CodeNoRows is the PostgREST code for a Single() query that matched zero
// or several rows.
const CodeNoRows = "PGRST116"

// Error is a non-2xx answer from the REST API.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("supabase: status %d", e.Status)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

// IsNoRows reports whether err is the PostgREST "no rows" answer to Single().
func IsNoRows(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeNoRows
}

func decodeError(resp *http.Response) error {
	e := &Error{Status: resp.StatusCode}
	// PostgREST sends a JSON object; gateways in front of it may not.
	var body struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
		Hint    json.RawMessage `json:"hint"`
	}
	if err := json.Unmarshal(resp.Raw, &body); err != nil {
		e.Message = resp.Text()
		return e
	}
	e.Code = body.Code
	e.Message = body.Message
	e.Details = rawString(body.Details)
	e.Hint = rawString(body.Hint)
	return e
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
