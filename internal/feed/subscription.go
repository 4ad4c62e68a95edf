package feed

import (
	"fmt"
	"log/slog"
	"sync"
)

// subscriptionBuffer bounds how far a slow consumer may lag before events
// are dropped. A cache recovers from a drop on its next explicit reload.
const subscriptionBuffer = 64

// Subscription is a cancellable handle on one (topic, filter) scope. Events
// arrive on Events(); dropping the handle via Close stops all delivery.
type Subscription struct {
	Topic  string
	Filter string

	client *Client
	logger *slog.Logger

	mu     sync.Mutex
	events chan Event
	closed bool
}

// Subscribe registers a scope and asks the server to start streaming it.
// One subscription per (topic, filter) pair is enough for a page lifetime;
// subscribing the same scope again replaces the previous handle.
func (c *Client) Subscribe(topic, filter string) (*Subscription, error) {
	s := &Subscription{
		Topic:  topic,
		Filter: filter,
		client: c,
		logger: c.logger,
		events: make(chan Event, subscriptionBuffer),
	}

	key := topic + "|" + filter
	c.mu.Lock()
	if prev, ok := c.subs[key]; ok {
		prev.markClosed()
	}
	c.subs[key] = s
	c.mu.Unlock()

	if err := c.sendSubscribe(s); err != nil {
		c.mu.Lock()
		delete(c.subs, key)
		c.mu.Unlock()
		return nil, fmt.Errorf("feed: subscribing to %s: %w", topic, err)
	}
	return s, nil
}

// Events yields connected/insert/update/delete events for the scope. The
// channel is closed when the subscription is.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close stops delivery and tells the server to drop the scope. Safe to call
// more than once.
func (s *Subscription) Close() {
	key := s.Topic + "|" + s.Filter
	c := s.client
	c.mu.Lock()
	if c.subs[key] == s {
		delete(c.subs, key)
	}
	c.mu.Unlock()

	// Best effort: the connection may already be gone.
	_ = c.write(frame{Op: opUnsubscribe, Topic: s.Topic, Filter: s.Filter})

	s.markClosed()
}

func (s *Subscription) markClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

// deliver hands an event to the consumer without ever blocking the read
// loop. Overflow is logged and dropped.
func (s *Subscription) deliver(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("change feed subscriber lagging, dropping event",
			slog.String("topic", s.Topic),
			slog.String("kind", string(ev.Kind)),
		)
	}
}
