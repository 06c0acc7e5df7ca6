// Package eventlog keeps a bounded in-process ring of recent governance
// events (stage transitions, blocks, retries) for the events API and CLI.
// Constructed once per process and passed by handle; capacity overflow
// drops the oldest entries.
package eventlog

import (
	"sync"
	"time"
)

// Event is one recorded governance event.
type Event struct {
	At         time.Time `json:"at"`
	Type       string    `json:"type"` // e.g. "plan_created", "execution_blocked"
	ArtifactID string    `json:"artifact_id,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

// DefaultCapacity bounds the ring when the caller passes none.
const DefaultCapacity = 512

// Log is a fixed-capacity append-only ring. Safe for concurrent use.
type Log struct {
	mu    sync.Mutex
	buf   []Event
	head  int // index of oldest entry
	count int
	clock func() time.Time
}

// New returns a Log holding at most capacity events (DefaultCapacity if
// capacity <= 0).
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{buf: make([]Event, capacity), clock: time.Now}
}

// Append records an event, evicting the oldest when full.
func (l *Log) Append(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e.At.IsZero() {
		e.At = l.clock().UTC()
	}
	idx := (l.head + l.count) % len(l.buf)
	l.buf[idx] = e
	if l.count < len(l.buf) {
		l.count++
	} else {
		l.head = (l.head + 1) % len(l.buf)
	}
}

// Recent returns up to n events, newest first. n <= 0 returns all retained.
func (l *Log) Recent(n int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 || n > l.count {
		n = l.count
	}
	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		idx := (l.head + l.count - 1 - i) % len(l.buf)
		out = append(out, l.buf[idx])
	}
	return out
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}
