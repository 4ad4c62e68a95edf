package view

import (
	"sync"
	"time"

	"github.com/jeyaram1023/doubt-wala/internal/config"
)

// Level classifies a notice.
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

// Notice is a transient banner: one line, one level, a posting time.
type Notice struct {
	Level   Level
	Message string
	At      time.Time
}

// Notifier holds the single visible notice. A new notice replaces the old
// one; each failure produces exactly one. Expiry is judged against the
// posting time, so rendering stays pure.
type Notifier struct {
	mu      sync.Mutex
	current *Notice
	ttl     time.Duration
}

// NewNotifier creates a notifier with the standard visibility window.
func NewNotifier() *Notifier {
	return &Notifier{ttl: config.NotificationTimeout}
}

// Info posts an informational notice.
func (n *Notifier) Info(message string, now time.Time) {
	n.post(LevelInfo, message, now)
}

// Error posts a failure notice.
func (n *Notifier) Error(message string, now time.Time) {
	n.post(LevelError, message, now)
}

func (n *Notifier) post(level Level, message string, now time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = &Notice{Level: level, Message: message, At: now}
}

// Active returns the visible notice, if one was posted within the window.
func (n *Notifier) Active(now time.Time) (Notice, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil || now.Sub(n.current.At) >= n.ttl {
		return Notice{}, false
	}
	return *n.current, true
}

// Clear drops the current notice.
func (n *Notifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = nil
}
