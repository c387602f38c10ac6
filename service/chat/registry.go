package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	errs "PChat/tools/errs"
)

// Hooks fire on genuine presence transitions: OnOnline only on 0->1,
// OnOffline only on 1->0. A supersession is neither. Hooks are invoked
// synchronously, outside the registry lock.
type Hooks struct {
	OnOnline  func(userID string)
	OnOffline func(userID string, lastSeen time.Time)
}

// Registry is the source of truth for "is user U reachable". At most one
// live client per user: registering a second one closes the first with a
// superseded reason. Lookup is the hot path (every fan-out and presence
// push), so it takes only the read lock.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]*Client
	byConn map[string]*Client
	clock  func() time.Time
	hooks  Hooks
}

func NewRegistry(hooks Hooks) *Registry {
	return NewRegistryWithClock(hooks, time.Now)
}

// NewRegistryWithClock injects the clock for tests.
func NewRegistryWithClock(hooks Hooks, clock func() time.Time) *Registry {
	return &Registry{
		byUser: make(map[string]*Client),
		byConn: make(map[string]*Client),
		clock:  clock,
		hooks:  hooks,
	}
}

// Register stores the client in both directions. An existing client for
// the same user is superseded: removed, then closed after the lock drops.
// The online hook fires only when the user had no live client before.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	old := r.byUser[c.UserID]
	if old != nil {
		delete(r.byConn, old.ID)
	}
	r.byUser[c.UserID] = c
	r.byConn[c.ID] = c
	r.mu.Unlock()

	if old != nil {
		old.Close(websocket.ClosePolicyViolation, errs.ErrSuperseded.Msg)
		return
	}
	if r.hooks.OnOnline != nil {
		r.hooks.OnOnline(c.UserID)
	}
}

// Unregister removes the client; idempotent. A client superseded earlier
// is already gone from the index, so its late disconnect is a no-op and
// cannot double-fire the offline hook.
func (r *Registry) Unregister(c *Client) {
	r.mu.Lock()
	cur, ok := r.byConn[c.ID]
	if !ok || cur != c {
		r.mu.Unlock()
		return
	}
	delete(r.byConn, c.ID)
	last := false
	if r.byUser[c.UserID] == c {
		delete(r.byUser, c.UserID)
		last = true
	}
	now := r.clock()
	r.mu.Unlock()

	if last && r.hooks.OnOffline != nil {
		r.hooks.OnOffline(c.UserID, now)
	}
}

// Lookup returns the user's live client, or nil.
func (r *Registry) Lookup(userID string) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byUser[userID]
}

// Online reports whether the user has a live client.
func (r *Registry) Online(userID string) bool {
	return r.Lookup(userID) != nil
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
