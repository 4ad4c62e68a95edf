// Package cache holds the authoritative in-memory collections for one page
// scope: either the full question list, or one question's answers plus the
// current user's votes. All merge operations are idempotent by id, so feed
// delivery may duplicate or reorder without corrupting state. The caches are
// not safe for concurrent use; the board layer touches them from a single
// goroutine.
package cache

import "errors"

// ErrNotReady is a programming-contract violation: an operation was invoked
// on a scope that has not been loaded. It is deliberately outside the
// user-facing error taxonomy.
var ErrNotReady = errors.New("cache: scope not loaded")

// State is the per-scope lifecycle. Applies never transition out of Ready;
// Failed goes back to Loading only through an explicit retry of LoadAll.
type State int

const (
	Empty State = iota
	Loading
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}
