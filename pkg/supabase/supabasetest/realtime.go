package supabasetest

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/supabase"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// subscriber is one joined Realtime channel.
type subscriber struct {
	conn    *websocket.Conn
	topic   string
	filters []supabase.ChangeFilter

	wmu sync.Mutex
}

func (sub *subscriber) send(f supabase.Frame) error {
	sub.wmu.Lock()
	defer sub.wmu.Unlock()
	_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return sub.conn.WriteJSON(f)
}

func (sub *subscriber) reply(to supabase.Frame, status string, response any) error {
	payload, err := json.Marshal(map[string]any{"status": status, "response": response})
	if err != nil {
		return err
	}
	return sub.send(supabase.Frame{Topic: to.Topic, Event: supabase.EventReply, Payload: payload, Ref: to.Ref})
}

// matches reports the schema of the first filter selecting kind on table.
func (sub *subscriber) matches(table, kind string) (string, bool) {
	for _, f := range sub.filters {
		if f.Table == table && (f.Event == "*" || f.Event == kind) {
			return f.Schema, true
		}
	}
	return "", false
}

// Subscribers returns how many joined channels watch table.
func (s *Server) Subscribers(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for sub := range s.subs {
		if _, ok := sub.matches(table, "*"); ok {
			n++
		}
	}
	return n
}

// DropSubscribers closes every Realtime connection without a close
// handshake, as a crashed server would.
func (s *Server) DropSubscribers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		sub.conn.Close()
		delete(s.subs, sub)
	}
}

func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("apikey") != Key {
		writeError(w, &supabase.Error{Status: http.StatusUnauthorized, Code: "401", Message: "Invalid API key"})
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	sub := &subscriber{conn: conn}
	defer func() {
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		var f supabase.Frame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}

		switch f.Event {
		case supabase.EventJoin:
			var p supabase.JoinPayload
			if err := json.Unmarshal(f.Payload, &p); err != nil {
				_ = sub.reply(f, "error", map[string]string{"reason": "invalid join payload"})
				continue
			}
			if reason := s.checkJoin(p); reason != "" {
				_ = sub.reply(f, "error", map[string]string{"reason": reason})
				continue
			}
			// The reply goes out under the lock so no change can overtake it.
			s.mu.Lock()
			sub.topic = f.Topic
			sub.filters = p.Config.PostgresChanges
			s.subs[sub] = true
			_ = sub.reply(f, "ok", map[string]any{"postgres_changes": p.Config.PostgresChanges})
			s.mu.Unlock()
		case supabase.EventHeartbeat:
			_ = sub.reply(f, "ok", map[string]any{})
		case supabase.EventLeave:
			s.mu.Lock()
			delete(s.subs, sub)
			s.mu.Unlock()
			_ = sub.reply(f, "ok", map[string]any{})
		}
	}
}

func (s *Server) checkJoin(p supabase.JoinPayload) string {
	if p.AccessToken != Key {
		return "invalid access token"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range p.Config.PostgresChanges {
		if !s.schemas[f.Schema] {
			return "invalid schema: " + f.Schema
		}
	}
	return ""
}

// publishLocked pushes one row change to every subscriber of table. Either
// record or old may be nil.
func (s *Server) publishLocked(table, kind string, record, old Row) {
	if len(s.subs) == 0 {
		return
	}
	for sub := range s.subs {
		schema, ok := sub.matches(table, kind)
		if !ok {
			continue
		}
		data := map[string]any{
			"schema":           schema,
			"table":            table,
			"type":             kind,
			"commit_timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		}
		if record != nil {
			data["record"] = record
		}
		if old != nil {
			data["old_record"] = old
		}
		payload, err := json.Marshal(map[string]any{"data": data, "ids": []int{1}})
		if err != nil {
			continue
		}
		_ = sub.send(supabase.Frame{Topic: sub.topic, Event: supabase.EventPostgresChanges, Payload: payload})
	}
}
