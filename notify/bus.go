// ABOUTME: In-process event bus for session notifications
// ABOUTME: Subscribers register explicitly and detach with the function Subscribe returns

// Package notify carries session events from the handlers to whoever
// listens: the audit log in the server, user-facing messages in the CLI.
package notify

import (
	"sync"
	"time"
)

// Kind names a session event.
type Kind string

const (
	SessionEstablished Kind = "session.established" // login set a cookie
	SessionRefreshed   Kind = "session.refreshed"   // refresh replaced the cookie
	SessionCleared     Kind = "session.cleared"     // clear or logout removed the cookie
	SessionRejected    Kind = "session.rejected"    // upstream refused a token or credentials
)

// Level is the presentation severity of an event.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Event is one notification. UserID is empty when no user is known.
type Event struct {
	Kind      Kind
	Level     Level
	Message   string
	UserID    string
	RequestID string
	At        time.Time
}

type subscriber struct {
	id uint64
	fn func(Event)
}

// Bus fans events out to subscribers. The zero value is ready to use.
// Delivery is synchronous and in subscription order, so subscribers must
// not block.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscriber
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns the function that removes it.
// Calling the returned function more than once is harmless.
func (b *Bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers e to every current subscriber. A nil bus drops the event.
// At is filled in when unset.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(e)
	}
}

// Len returns the number of current subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
