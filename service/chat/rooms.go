package chat

import "sync"

// room holds the live subscribers of one conversation. Its own mutex
// serializes publishes, which is what gives FIFO per room without
// serializing unrelated conversations.
type room struct {
	mu    sync.Mutex
	conns map[string]*Client // conn id -> client
}

// Router maintains conversation -> subscribers and the reverse index
// conn -> conversations, so UnsubscribeAll is proportional to the rooms
// the connection was actually in. The router does not validate
// membership; callers check that before subscribing or publishing.
type Router struct {
	mu     sync.RWMutex
	rooms  map[string]*room
	byConn map[string]map[string]struct{} // conn id -> set of conversation ids
}

func NewRouter() *Router {
	return &Router{
		rooms:  make(map[string]*room),
		byConn: make(map[string]map[string]struct{}),
	}
}

// Subscribe adds the client to the room; no-op when already subscribed.
// The room insertion happens under rt.mu: releasing it first would let a
// concurrent last-unsubscribe delete the room and strand the new
// subscriber on an orphaned object. Lock order rt.mu then rm.mu, same as
// removeLocked.
func (rt *Router) Subscribe(conversationID string, c *Client) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rm := rt.rooms[conversationID]
	if rm == nil {
		rm = &room{conns: make(map[string]*Client)}
		rt.rooms[conversationID] = rm
	}
	if rt.byConn[c.ID] == nil {
		rt.byConn[c.ID] = make(map[string]struct{})
	}
	rt.byConn[c.ID][conversationID] = struct{}{}
	rm.mu.Lock()
	rm.conns[c.ID] = c
	rm.mu.Unlock()
}

// Unsubscribe removes the client from the room; safe when not subscribed.
func (rt *Router) Unsubscribe(conversationID string, c *Client) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.removeLocked(conversationID, c.ID)
}

// UnsubscribeAll removes the client from every room it was in. Called on
// disconnect, before any presence computation.
func (rt *Router) UnsubscribeAll(c *Client) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	for conversationID := range rt.byConn[c.ID] {
		rt.removeLocked(conversationID, c.ID)
	}
	delete(rt.byConn, c.ID)
}

// caller holds rt.mu
func (rt *Router) removeLocked(conversationID, connID string) {
	rm := rt.rooms[conversationID]
	if rm == nil {
		return
	}
	rm.mu.Lock()
	delete(rm.conns, connID)
	empty := len(rm.conns) == 0
	rm.mu.Unlock()
	if empty {
		delete(rt.rooms, conversationID)
	}
	if set := rt.byConn[connID]; set != nil {
		delete(set, conversationID)
		if len(set) == 0 {
			delete(rt.byConn, connID)
		}
	}
}

// Publish enqueues the payload to every current subscriber. Publishes on
// the same room serialize on the room mutex, so every recipient observes
// them in the same order; order across recipients is unspecified.
func (rt *Router) Publish(conversationID string, payload []byte) {
	rt.publish(conversationID, "", payload)
}

// PublishExcept skips the named user's connection (typing indicators do
// not echo to the sender).
func (rt *Router) PublishExcept(conversationID, exceptUserID string, payload []byte) {
	rt.publish(conversationID, exceptUserID, payload)
}

func (rt *Router) publish(conversationID, exceptUserID string, payload []byte) {
	if len(payload) == 0 {
		return
	}
	rt.mu.RLock()
	rm := rt.rooms[conversationID]
	rt.mu.RUnlock()
	if rm == nil {
		return
	}
	rm.mu.Lock()
	for _, c := range rm.conns {
		if exceptUserID != "" && c.UserID == exceptUserID {
			continue
		}
		c.Enqueue(payload)
	}
	rm.mu.Unlock()
}

// PublishEvent wraps payload in the event envelope and publishes it.
func (rt *Router) PublishEvent(conversationID, event string, payload any) {
	rt.Publish(conversationID, EncodeEvent(event, payload))
}

func (rt *Router) PublishEventExcept(conversationID, exceptUserID, event string, payload any) {
	rt.PublishExcept(conversationID, exceptUserID, EncodeEvent(event, payload))
}

// Subscribed reports whether the client is currently in the room.
func (rt *Router) Subscribed(conversationID string, c *Client) bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	_, ok := rt.byConn[c.ID][conversationID]
	return ok
}
