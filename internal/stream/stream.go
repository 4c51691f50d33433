// Package stream fan-outs provisioning events to SSE subscribers.
package stream

import (
	"context"
	"sync"
	"time"
)

// Event describes one successfully provisioned request.
type Event struct {
	Identity   string    `json:"identity"`
	UsageClass string    `json:"usage_class"`
	Pool       string    `json:"pool,omitempty"`
	QuotaBytes int64     `json:"quota_bytes,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Stream delivers events to all active subscribers.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (s *Stream) Publish(evt Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking provisioning.
		}
	}
}
