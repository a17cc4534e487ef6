package auth

import (
	"sync"

	"github.com/Kush1612/BuckIt/pkg/api"
	"github.com/Kush1612/BuckIt/pkg/logger"
)

// Event names a session change.
type Event string

const (
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
)

// Listener receives session changes. user is nil after sign-out.
type Listener func(event Event, user *api.User)

// Notifier fans session changes out to subscribers.
type Notifier struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener
}

// NewNotifier returns a notifier with no subscribers.
func NewNotifier() *Notifier {
	return &Notifier{listeners: map[int]Listener{}}
}

// Default is the process-wide notifier.
var Default = NewNotifier()

// OnAuthStateChange subscribes cb and returns a function that removes it.
// Calling the returned function more than once is harmless.
func (n *Notifier) OnAuthStateChange(cb Listener) (unsubscribe func()) {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = cb
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.listeners, id)
			n.mu.Unlock()
		})
	}
}

// Publish delivers event to every subscriber. A panicking subscriber is
// logged and does not stop delivery to the others.
func (n *Notifier) Publish(event Event, user *api.User) {
	n.mu.RLock()
	listeners := make([]Listener, 0, len(n.listeners))
	for _, l := range n.listeners {
		listeners = append(listeners, l)
	}
	n.mu.RUnlock()

	logger.Debug("Auth state changed", "event", event, "listeners", len(listeners))
	for _, l := range listeners {
		deliver(l, event, user)
	}
}

func deliver(l Listener, event Event, user *api.User) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Auth listener panicked", "event", event, "panic", r)
		}
	}()
	l(event, user)
}

// Len returns the number of subscribers.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}
