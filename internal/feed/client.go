package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jeyaram1023/doubt-wala/internal/config"
)

// Conn is the minimal connection surface the client needs. *websocket.Conn
// satisfies it; tests substitute a scripted fake.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

// DialFunc opens one feed connection.
type DialFunc func(ctx context.Context) (Conn, error)

// Dial returns a DialFunc for the store's websocket endpoint. storeURL is
// the http(s) base URL; the scheme is rewritten to ws(s).
func Dial(storeURL, token string) DialFunc {
	wsURL := strings.Replace(storeURL, "http", "ws", 1) + "/api/realtime"
	return func(ctx context.Context) (Conn, error) {
		header := http.Header{}
		if token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
		dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
		conn, _, err := dialer.DialContext(ctx, wsURL, header)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// Options configures a Client. Zero fields fall back to the shared config
// constants.
type Options struct {
	Dial        DialFunc
	Logger      *slog.Logger
	BaseDelay   time.Duration // reconnect delay is BaseDelay * attempt number
	MaxAttempts int
	Heartbeat   time.Duration
}

// Client owns one websocket connection and any number of per-scope
// subscriptions on it. After a transport drop it reconnects with bounded,
// linearly paced attempts and resubscribes every active scope; when the
// attempts are exhausted it gives up, closes Lost(), and makes no further
// transport calls.
type Client struct {
	dial        DialFunc
	logger      *slog.Logger
	baseDelay   time.Duration
	maxAttempts int
	heartbeat   time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	conn    Conn
	subs    map[string]*Subscription // keyed by topic|filter
	pending map[int]*Subscription    // subscribe refs awaiting an ok frame
	nextRef int

	wmu sync.Mutex // serializes writes to conn

	lost     chan struct{}
	lostOnce sync.Once
}

// NewClient creates a feed client. Connect must be called before Subscribe.
func NewClient(opts Options) *Client {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = config.FeedReconnectBaseDelay
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = config.FeedMaxReconnectAttempts
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 30 * time.Second
	}
	return &Client{
		dial:        opts.Dial,
		logger:      opts.Logger,
		baseDelay:   opts.BaseDelay,
		maxAttempts: opts.MaxAttempts,
		heartbeat:   opts.Heartbeat,
		subs:        make(map[string]*Subscription),
		pending:     make(map[int]*Subscription),
		lost:        make(chan struct{}),
	}
}

// Connect dials the feed and starts the read loop. It blocks only for the
// initial handshake.
func (c *Client) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("feed: connecting: %w", err)
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.run()
	return nil
}

// Lost is closed once reconnection has been abandoned. Consumers surface
// this as a "live updates unavailable" state.
func (c *Client) Lost() <-chan struct{} {
	return c.lost
}

// Close tears down the connection and every subscription.
func (c *Client) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	subs := make([]*Subscription, 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	for _, s := range subs {
		s.Close()
	}
}

// run drives one connection session at a time, reconnecting between them.
func (c *Client) run() {
	for {
		c.session()
		if c.ctx.Err() != nil {
			return
		}
		if !c.reconnect() {
			c.logger.Warn("change feed lost, giving up reconnection",
				slog.Int("attempts", c.maxAttempts),
			)
			c.lostOnce.Do(func() { close(c.lost) })
			return
		}
	}
}

// session reads frames until the connection drops or the client is closed.
// A heartbeat ticker keeps intermediaries from idling the connection out.
func (c *Client) session() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}

	sessionCtx, stop := context.WithCancel(c.ctx)
	defer stop()

	go func() {
		ticker := time.NewTicker(c.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-sessionCtx.Done():
				return
			case <-ticker.C:
				if err := c.write(frame{Op: opHeartbeat}); err != nil {
					return
				}
			}
		}
	}()

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			if c.ctx.Err() == nil {
				c.logger.Warn("change feed connection dropped", slog.String("error", err.Error()))
			}
			conn.Close()
			return
		}
		c.handle(f)
	}
}

// handle routes one inbound frame.
func (c *Client) handle(f frame) {
	switch f.Op {
	case opOK:
		c.mu.Lock()
		sub := c.pending[f.Ref]
		delete(c.pending, f.Ref)
		c.mu.Unlock()
		if sub != nil {
			sub.deliver(Event{Topic: sub.Topic, Kind: KindConnected})
		}
	case opChange:
		c.mu.Lock()
		var matched []*Subscription
		for _, s := range c.subs {
			// The server echoes the subscription's own filter on frames it
			// emits for that scope, so matching is exact.
			if s.Topic == f.Topic && s.Filter == f.Filter {
				matched = append(matched, s)
			}
		}
		c.mu.Unlock()
		for _, s := range matched {
			s.deliver(Event{Topic: f.Topic, Kind: f.Kind, New: f.New, Old: f.Old})
		}
	case opHeartbeat:
		// server echo, nothing to do
	case opError:
		c.logger.Warn("change feed server error", slog.String("error", f.Error))
	}
}

// reconnect attempts to re-establish the connection with a linearly
// increasing delay, then resubscribes all active scopes. It returns false
// once the attempt budget is spent.
func (c *Client) reconnect() bool {
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		delay := c.baseDelay * time.Duration(attempt)
		select {
		case <-c.ctx.Done():
			return false
		case <-time.After(delay):
		}

		conn, err := c.dial(c.ctx)
		if err != nil {
			c.logger.Warn("change feed reconnect failed",
				slog.Int("attempt", attempt),
				slog.Int("max", c.maxAttempts),
				slog.String("error", err.Error()),
			)
			continue
		}

		c.mu.Lock()
		c.conn = conn
		subs := make([]*Subscription, 0, len(c.subs))
		for _, s := range c.subs {
			subs = append(subs, s)
		}
		c.mu.Unlock()

		// Every previously active scope comes back, not just the one that
		// noticed the drop.
		ok := true
		for _, s := range subs {
			if err := c.sendSubscribe(s); err != nil {
				ok = false
				break
			}
		}
		if !ok {
			conn.Close()
			continue
		}

		c.logger.Info("change feed reconnected", slog.Int("attempt", attempt))
		return true
	}
	return false
}

func (c *Client) write(f frame) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("feed: not connected")
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return conn.WriteJSON(f)
}

func (c *Client) sendSubscribe(s *Subscription) error {
	c.mu.Lock()
	c.nextRef++
	ref := c.nextRef
	c.pending[ref] = s
	c.mu.Unlock()
	return c.write(frame{Op: opSubscribe, Topic: s.Topic, Filter: s.Filter, Ref: ref})
}
