// Package feed maintains the change-feed connection to the data store and
// fans row-change frames out to per-scope subscriptions. Delivery is at
// least once and unordered across rows; the caches merge idempotently.
package feed

import "encoding/json"

// Kind discriminates the events a subscription yields.
type Kind string

const (
	// KindConnected is delivered once per successful (re-)establishment of
	// the subscription, before any change events from the new connection.
	KindConnected Kind = "connected"
	KindInsert    Kind = "insert"
	KindUpdate    Kind = "update"
	KindDelete    Kind = "delete"
)

// Event is one row-level change (or a connection notice) on a topic. New and
// Old are the raw rows as the store serialized them; consumers decode at
// their own boundary so optional fields stay visible in the target types.
type Event struct {
	Topic string
	Kind  Kind
	New   json.RawMessage
	Old   json.RawMessage
}

// frame is the wire format, both directions.
type frame struct {
	Op     string          `json:"op"` // subscribe, unsubscribe, heartbeat, ok, change, error
	Topic  string          `json:"topic,omitempty"`
	Filter string          `json:"filter,omitempty"`
	Kind   Kind            `json:"kind,omitempty"`
	New    json.RawMessage `json:"new,omitempty"`
	Old    json.RawMessage `json:"old,omitempty"`
	Ref    int             `json:"ref,omitempty"`
	Error  string          `json:"error,omitempty"`
}

const (
	opSubscribe   = "subscribe"
	opUnsubscribe = "unsubscribe"
	opHeartbeat   = "heartbeat"
	opOK          = "ok"
	opChange      = "change"
	opError       = "error"
)
