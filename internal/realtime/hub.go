// Package realtime fans row changes out to websocket subscribers. Each
// connection registers scoped subscriptions (topic plus optional filter);
// a broadcast emits one frame per matching scope, echoing that scope's own
// filter so clients can route without guessing.
package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// Client heartbeats arrive well inside this window.
	readWait = 90 * time.Second
)

// Kind mirrors the change kinds the client feed understands.
type Kind string

const (
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

type frame struct {
	Op     string          `json:"op"`
	Topic  string          `json:"topic,omitempty"`
	Filter string          `json:"filter,omitempty"`
	Kind   Kind            `json:"kind,omitempty"`
	New    json.RawMessage `json:"new,omitempty"`
	Old    json.RawMessage `json:"old,omitempty"`
	Ref    int             `json:"ref,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type scope struct {
	topic  string
	filter string
}

type client struct {
	ws     *websocket.Conn
	wmu    sync.Mutex
	mu     sync.Mutex
	scopes map[scope]struct{}
}

func (c *client) send(f frame) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(f)
}

func (c *client) subscribe(s scope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scopes[s] = struct{}{}
}

func (c *client) unsubscribe(s scope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.scopes, s)
}

func (c *client) snapshot() []scope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]scope, 0, len(c.scopes))
	for s := range c.scopes {
		out = append(out, s)
	}
	return out
}

// Hub tracks connections and routes broadcasts to their scopes.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The dev store serves local tooling; skip origin checks.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// HandleWS upgrades the request and serves the subscription protocol until
// the peer goes away.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	c := &client{ws: ws, scopes: make(map[scope]struct{})}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		ws.Close()
	}()

	for {
		ws.SetReadDeadline(time.Now().Add(readWait))
		var f frame
		if err := ws.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read failed", slog.String("error", err.Error()))
			}
			return
		}

		switch f.Op {
		case "subscribe":
			c.subscribe(scope{topic: f.Topic, filter: f.Filter})
			if err := c.send(frame{Op: "ok", Topic: f.Topic, Filter: f.Filter, Ref: f.Ref}); err != nil {
				return
			}
		case "unsubscribe":
			c.unsubscribe(scope{topic: f.Topic, filter: f.Filter})
		case "heartbeat":
			// The read deadline reset above is the whole point.
		default:
			c.send(frame{Op: "error", Ref: f.Ref, Error: "unknown op: " + f.Op})
		}
	}
}

// Broadcast emits a change to every scope it matches. newRow and oldRow are
// serialized once; filters are evaluated against the row's own fields.
func (h *Hub) Broadcast(topic string, kind Kind, newRow, oldRow any) {
	newRaw, fields := marshalRow(newRow)
	oldRaw, oldFields := marshalRow(oldRow)
	if fields == nil {
		fields = oldFields
	}

	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		for _, s := range c.snapshot() {
			if s.topic != topic || !matchFilter(s.filter, fields) {
				continue
			}
			err := c.send(frame{
				Op:     "change",
				Topic:  topic,
				Filter: s.filter,
				Kind:   kind,
				New:    newRaw,
				Old:    oldRaw,
			})
			if err != nil {
				h.logger.Debug("broadcast write failed", slog.String("error", err.Error()))
			}
		}
	}
}

func marshalRow(row any) (json.RawMessage, map[string]any) {
	if row == nil {
		return nil, nil
	}
	raw, err := json.Marshal(row)
	if err != nil {
		return nil, nil
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return raw, nil
	}
	return raw, fields
}

// matchFilter evaluates a "column=eq.value" filter against a row. An empty
// filter matches everything; an unparseable one matches nothing.
func matchFilter(filter string, fields map[string]any) bool {
	if filter == "" {
		return true
	}
	column, value, ok := strings.Cut(filter, "=eq.")
	if !ok {
		return false
	}
	got, ok := fields[column].(string)
	return ok && got == value
}
