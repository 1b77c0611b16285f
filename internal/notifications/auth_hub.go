// Package notifications delivers auth-state transitions to in-process subscribers.
package notifications

import (
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"

	"wallhub/internal/models"
	"wallhub/internal/observability"
)

// AuthListener receives a pushed auth-state transition.
type AuthListener func(event models.AuthEvent, session *models.Session)

// AuthHub fans auth events out to registered listeners.
type AuthHub struct {
	mu        sync.RWMutex
	listeners map[uint64]AuthListener
	nextID    uint64
}

// NewAuthHub creates an empty hub.
func NewAuthHub() *AuthHub {
	return &AuthHub{listeners: make(map[uint64]AuthListener)}
}

// Subscribe registers fn and returns a function that releases it. Calling
// the returned function more than once is harmless.
func (h *AuthHub) Subscribe(fn AuthListener) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

// Publish delivers the event to every listener in subscription order on the
// caller's goroutine. A panicking listener is logged and does not stop
// delivery to the others.
func (h *AuthHub) Publish(event models.AuthEvent, session *models.Session) {
	for _, fn := range h.snapshot() {
		deliver(fn, event, session)
	}
}

// Len returns the number of registered listeners.
func (h *AuthHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

func (h *AuthHub) snapshot() []AuthListener {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]uint64, 0, len(h.listeners))
	for id := range h.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]AuthListener, 0, len(ids))
	for _, id := range ids {
		out = append(out, h.listeners[id])
	}
	return out
}

func deliver(fn AuthListener, event models.AuthEvent, session *models.Session) {
	defer func() {
		if r := recover(); r != nil {
			observability.Logger.Error("PANIC in auth listener",
				slog.String("event", string(event)),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	fn(event, session)
}
