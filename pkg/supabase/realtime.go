package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	gohttp "net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/logger"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/metrics"
)

// RealtimePath is where a project serves its Realtime socket.
const RealtimePath = "/realtime/v1/websocket"

const (
	realtimeVersion = "1.0.0"
	writeWait       = 10 * time.Second
	heartbeatPeriod = 25 * time.Second
	readWait        = 2 * heartbeatPeriod
	joinRef         = "1"
)

// Phoenix channel events spoken on the Realtime socket.
const (
	EventJoin            = "phx_join"
	EventLeave           = "phx_leave"
	EventReply           = "phx_reply"
	EventError           = "phx_error"
	EventClose           = "phx_close"
	EventHeartbeat       = "heartbeat"
	EventSystem          = "system"
	EventPostgresChanges = "postgres_changes"
)

// Row change types.
const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
)

// Frame is one message on the Realtime socket.
type Frame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref,omitempty"`
}

// ChangeFilter selects the row changes a channel receives. Event "*"
// matches every change type.
type ChangeFilter struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
}

// JoinConfig is the channel configuration sent with phx_join.
type JoinConfig struct {
	PostgresChanges []ChangeFilter `json:"postgres_changes"`
}

// JoinPayload is the payload of a phx_join frame.
type JoinPayload struct {
	Config      JoinConfig `json:"config"`
	AccessToken string     `json:"access_token,omitempty"`
}

// Reply is the payload of a phx_reply frame.
type Reply struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response,omitempty"`
}

// Change is one row change pushed by Realtime. Record holds the new row;
// OldRecord holds the previous one for updates and deletes, which may be
// just the primary key unless the table has full replica identity.
type Change struct {
	Schema          string          `json:"schema"`
	Table           string          `json:"table"`
	Type            string          `json:"type"`
	CommitTimestamp string          `json:"commit_timestamp"`
	Record          json.RawMessage `json:"record,omitempty"`
	OldRecord       json.RawMessage `json:"old_record,omitempty"`
}

// ChangeHandler receives changes in arrival order on the subscription's read
// loop. A slow handler delays the changes behind it.
type ChangeHandler func(Change)

// ErrChannelClosed is returned when the server ends a subscription.
var ErrChannelClosed = errors.New("supabase: realtime channel closed by server")

// Subscribe streams every insert, update and delete on table to handler
// until ctx ends or the socket fails. Once connected, ctx ending is a clean
// stop and returns nil.
func (c *Client) Subscribe(ctx context.Context, table string, handler ChangeHandler) error {
	endpoint, err := c.realtimeURL()
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{Proxy: gohttp.ProxyFromEnvironment, HandshakeTimeout: writeWait}
	conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("supabase: realtime connect: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("supabase: realtime connect: %w", err)
	}

	ch := &channel{conn: conn, topic: "realtime:" + table}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = ch.write(Frame{Topic: ch.topic, Event: EventLeave, Payload: json.RawMessage(`{}`), Ref: ch.nextRef()})
		_ = ch.writeClose()
		conn.Close()
	})
	defer stop()

	log := logger.WithCtx(ctx).With("table", table, "topic", ch.topic)

	if err := ch.join(c, table); err != nil {
		return ch.outcome(ctx, err)
	}
	log.Info("realtime subscribed")

	done := make(chan struct{})
	defer close(done)
	go ch.heartbeat(done)

	for {
		f, err := ch.read()
		if err != nil {
			return ch.outcome(ctx, err)
		}
		if f.Topic != ch.topic {
			continue
		}

		switch f.Event {
		case EventPostgresChanges:
			var p struct {
				Data Change `json:"data"`
			}
			if err := json.Unmarshal(f.Payload, &p); err != nil {
				log.Warn("realtime: undecodable change", "error", err)
				continue
			}
			metrics.RecordRealtimeChange(p.Data.Table, p.Data.Type)
			handler(p.Data)
		case EventSystem:
			var p struct {
				Status  string `json:"status"`
				Message string `json:"message"`
			}
			_ = json.Unmarshal(f.Payload, &p)
			if p.Status == "error" {
				return fmt.Errorf("supabase: realtime %s: %s", table, p.Message)
			}
			log.Debug("realtime system message", "message", p.Message)
		case EventError, EventClose:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w (%s)", ErrChannelClosed, f.Event)
		}
	}
}

// realtimeURL maps the project URL onto its Realtime socket.
func (c *Client) realtimeURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("supabase: invalid endpoint URL %q", c.baseURL)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = RealtimePath
	u.RawQuery = url.Values{"apikey": {c.key}, "vsn": {realtimeVersion}}.Encode()
	return u.String(), nil
}

// channel is one joined topic on a socket. Writes come from the read loop,
// the heartbeat and the ctx watcher, so they are serialised.
type channel struct {
	conn  *websocket.Conn
	topic string
	ref   atomic.Int64
	wmu   sync.Mutex
}

// nextRef numbers frames after the join, which is always ref 1.
func (ch *channel) nextRef() string {
	return strconv.FormatInt(ch.ref.Add(1)+1, 10)
}

func (ch *channel) write(f Frame) error {
	ch.wmu.Lock()
	defer ch.wmu.Unlock()
	_ = ch.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return ch.conn.WriteJSON(f)
}

func (ch *channel) writeClose() error {
	ch.wmu.Lock()
	defer ch.wmu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	return ch.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

func (ch *channel) read() (Frame, error) {
	_ = ch.conn.SetReadDeadline(time.Now().Add(readWait))
	var f Frame
	err := ch.conn.ReadJSON(&f)
	return f, err
}

// join subscribes the topic to every change on table and waits for the
// server's answer.
func (ch *channel) join(c *Client, table string) error {
	payload, err := json.Marshal(JoinPayload{
		Config: JoinConfig{PostgresChanges: []ChangeFilter{
			{Event: "*", Schema: c.schemaName(), Table: table},
		}},
		AccessToken: c.key,
	})
	if err != nil {
		return err
	}
	if err := ch.write(Frame{Topic: ch.topic, Event: EventJoin, Payload: payload, Ref: joinRef}); err != nil {
		return fmt.Errorf("supabase: realtime join %s: %w", table, err)
	}

	for {
		f, err := ch.read()
		if err != nil {
			return fmt.Errorf("supabase: realtime join %s: %w", table, err)
		}
		if f.Event != EventReply || f.Ref != joinRef {
			continue
		}
		var r Reply
		if err := json.Unmarshal(f.Payload, &r); err != nil {
			return fmt.Errorf("supabase: realtime join %s: %w", table, err)
		}
		if r.Status != "ok" {
			return fmt.Errorf("supabase: realtime join %s refused: %s", table, r.Response)
		}
		return nil
	}
}

func (ch *channel) heartbeat(done <-chan struct{}) {
	ticker := time.NewTicker(heartbeatPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			err := ch.write(Frame{Topic: "phoenix", Event: EventHeartbeat, Payload: json.RawMessage(`{}`), Ref: ch.nextRef()})
			if err != nil {
				return
			}
		}
	}
}

// outcome turns a socket error into Subscribe's result. Errors caused by
// ctx ending are a normal stop.
func (ch *channel) outcome(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return fmt.Errorf("%w: %v", ErrChannelClosed, err)
	}
	return fmt.Errorf("supabase: realtime %s: %w", ch.topic, err)
}
