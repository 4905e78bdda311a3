package downloader

import (
	"sync"
	"time"
)

// Line is one captured output line with its arrival time.
type Line struct {
	Time   time.Time
	Stream string
	Text   string
}

// Ring is a bounded buffer of recent output lines. Older lines are evicted
// so a long transfer never grows memory without bound.
type Ring struct {
	mu    sync.Mutex
	lines []Line
	next  int
	full  bool
}

// NewRing creates a ring holding at most capacity lines.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{lines: make([]Line, capacity)}
}

// Append stores a line, evicting the oldest when full.
func (r *Ring) Append(stream, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lines[r.next] = Line{Time: time.Now().UTC(), Stream: stream, Text: text}
	r.next++
	if r.next == len(r.lines) {
		r.next = 0
		r.full = true
	}
}

// Snapshot returns the retained lines, oldest first.
func (r *Ring) Snapshot() []Line {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		out := make([]Line, r.next)
		copy(out, r.lines[:r.next])
		return out
	}
	out := make([]Line, 0, len(r.lines))
	out = append(out, r.lines[r.next:]...)
	out = append(out, r.lines[:r.next]...)
	return out
}

// Tail returns up to n of the newest lines, oldest first.
func (r *Ring) Tail(n int) []Line {
	all := r.Snapshot()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// Len reports how many lines are retained.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.lines)
	}
	return r.next
}
