// Package subscribers keeps the chat users that receive notifications.
// Registrations live in memory and are lost on restart.
package subscribers

import (
	"cmp"
	"slices"
	"sync"
)

// Subscriber is a chat user and the chat notifications are delivered to.
type Subscriber struct {
	UserID int64
	ChatID int64
}

// Registry is a concurrency-safe user → chat mapping.
type Registry struct {
	mu     sync.Mutex
	chatOf map[int64]int64
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{chatOf: make(map[int64]int64)}
}

// Register creates or updates the subscriber for userID. It reports whether
// the user was not registered before.
func (r *Registry) Register(userID, chatID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, known := r.chatOf[userID]
	r.chatOf[userID] = chatID
	return !known
}

// List returns a snapshot of every subscriber ordered by user id.
func (r *Registry) List() []Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := make([]Subscriber, 0, len(r.chatOf))
	for user, chat := range r.chatOf {
		subs = append(subs, Subscriber{UserID: user, ChatID: chat})
	}

	slices.SortFunc(subs, func(a, b Subscriber) int {
		return cmp.Compare(a.UserID, b.UserID)
	})
	return subs
}

// Len returns the number of subscribers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.chatOf)
}
