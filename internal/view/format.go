// Package view projects cached entities into render-ready text. Everything
// here is pure: formatting never touches the network or the caches.
package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeyaram1023/doubt-wala/internal/model"
)

// RelativeTime renders how long ago t was, the way feeds do: "just now",
// then minutes, hours, days, and finally a plain date.
func RelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		return fmt.Sprintf("%d minute%s ago", m, plural(m))
	case d < 24*time.Hour:
		h := int(d.Hours())
		return fmt.Sprintf("%d hour%s ago", h, plural(h))
	case d < 30*24*time.Hour:
		days := int(d.Hours() / 24)
		return fmt.Sprintf("%d day%s ago", days, plural(days))
	default:
		return t.Format("Jan 2, 2006")
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// Truncate shortens s to at most max runes, appending an ellipsis when it
// had to cut.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	return strings.TrimSpace(string(r[:max-1])) + "…"
}

// DisplayName resolves what to show for a row's author: the joined display
// name when the join is present, else "Anonymous". The user id is never
// shown.
func DisplayName(a *model.Author) string {
	if a == nil || strings.TrimSpace(a.DisplayName) == "" {
		return "Anonymous"
	}
	return a.DisplayName
}

// VoteBadge renders a signed total the way the answer list shows it.
func VoteBadge(votes int) string {
	if votes > 0 {
		return fmt.Sprintf("+%d", votes)
	}
	return fmt.Sprintf("%d", votes)
}

// TagLine joins tags for a one-line summary; empty input renders nothing.
func TagLine(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return "[" + strings.Join(tags, ", ") + "]"
}
