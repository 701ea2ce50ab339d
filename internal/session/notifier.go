// Package session publishes authentication state changes to in-process
// listeners.
package session

import (
	"sync"
	"time"
)

// Kind is the type of a session change.
type Kind string

const (
	SignedUp  Kind = "signed_up"
	SignedIn  Kind = "signed_in"
	SignedOut Kind = "signed_out"
)

// Event describes one session change of one user.
type Event struct {
	Kind   Kind      `json:"kind"`
	UserID int64     `json:"user_id"`
	Email  string    `json:"email"`
	At     time.Time `json:"at"`
}

// Listener receives events. It runs on the publisher's goroutine and must not
// block.
type Listener func(Event)

// Notifier fans events out to subscribed listeners.
type Notifier struct {
	mu        sync.RWMutex
	next      uint64
	listeners map[uint64]Listener
	order     []uint64
}

func NewNotifier() *Notifier {
	return &Notifier{listeners: make(map[uint64]Listener)}
}

// Subscribe registers l and returns the function that removes it. The
// returned function may be called any number of times.
func (n *Notifier) Subscribe(l Listener) (unsubscribe func()) {
	n.mu.Lock()
	n.next++
	id := n.next
	n.listeners[id] = l
	n.order = append(n.order, id)
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.listeners, id)
			for i, v := range n.order {
				if v == id {
					n.order = append(n.order[:i:i], n.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish calls every listener subscribed before the call, in subscription
// order. A zero At is set to the current time.
func (n *Notifier) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	n.mu.RLock()
	snapshot := make([]Listener, 0, len(n.order))
	for _, id := range n.order {
		snapshot = append(snapshot, n.listeners[id])
	}
	n.mu.RUnlock()

	for _, l := range snapshot {
		l(e)
	}
}

// Len returns the number of active subscriptions.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}
