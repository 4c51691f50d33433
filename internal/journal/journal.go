// Package journal is the durable, insert-only log of project storage
// requests.
package journal

import (
	"context"
	"sync"
	"time"
)

// Entry is one recorded request. The account secret is deliberately not part
// of this type; it can never reach the sink.
type Entry struct {
	ID               string
	UserName         string
	RequestedQuotaGB *float64 // nil when the request named no capacity
	CreatedAt        time.Time
}

// Recorder persists entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// InMemory keeps entries in process memory. Used in tests and when no
// Postgres DSN is configured.
type InMemory struct {
	mu      sync.Mutex
	entries []Entry
}

// NewInMemory creates an empty journal.
func NewInMemory() *InMemory {
	return &InMemory{}
}

func (j *InMemory) Record(ctx context.Context, e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return nil
}

// Entries returns a copy of everything recorded so far.
func (j *InMemory) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}
