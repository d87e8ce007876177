package stream

import (
	"context"
	"sync"
	"time"
)

// SecurityEvent describes an authentication or authorization decision worth
// surfacing to operators in real time: logins, revocations, denied checks.
type SecurityEvent struct {
	Kind      string    `json:"kind"`
	UserID    string    `json:"user_id,omitempty"`
	GymID     string    `json:"gym_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Event kinds published by the HTTP layer.
const (
	EventLogin        = "login"
	EventLogout       = "logout"
	EventLogoutAll    = "logout_all"
	EventAuthFailed   = "auth_failed"
	EventAccessDenied = "access_denied"
)

// Stream fan-outs security events to all active subscribers (SSE clients).
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan SecurityEvent
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan SecurityEvent)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan SecurityEvent {
	ch := make(chan SecurityEvent, 16)

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
func (s *Stream) Publish(evt SecurityEvent) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
