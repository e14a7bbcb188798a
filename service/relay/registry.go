package relay

import "sync"

// Registry is the per-instance store of live connections and channel
// membership. Connections are mutated concurrently by their own read loops,
// so all access goes through one RWMutex; entries for different connections
// never alias.
type Registry struct {
	mu       sync.RWMutex
	conns    map[string]*Client
	channels map[string]map[string]*Client
	joined   map[string]map[string]struct{} // connID -> set of channelIDs
}

func NewRegistry() *Registry {
	return &Registry{
		conns:    make(map[string]*Client),
		channels: make(map[string]map[string]*Client),
		joined:   make(map[string]map[string]struct{}),
	}
}

// Register stores the client under its connection id, overwriting any
// previous state for that id. There is at most one authentication per
// connection, so overwrite is the idempotent behaviour.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.ID] = c
}

func (r *Registry) Get(connID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	return c, ok
}

// Join adds the connection to a channel's member set. Authorization is the
// caller's job; Join never checks it.
func (r *Registry) Join(connID, channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[connID]
	if !ok {
		return
	}
	set, ok := r.channels[channelID]
	if !ok {
		set = make(map[string]*Client)
		r.channels[channelID] = set
	}
	set[connID] = c

	js, ok := r.joined[connID]
	if !ok {
		js = make(map[string]struct{})
		r.joined[connID] = js
	}
	js[channelID] = struct{}{}
}

func (r *Registry) Leave(connID, channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(connID, channelID)
}

func (r *Registry) leaveLocked(connID, channelID string) {
	if set, ok := r.channels[channelID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.channels, channelID)
		}
	}
	if js, ok := r.joined[connID]; ok {
		delete(js, channelID)
		if len(js) == 0 {
			delete(r.joined, connID)
		}
	}
}

// Remove drops the connection and all its memberships. A no-op when the id
// was never registered; safe to call repeatedly.
func (r *Registry) Remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for channelID := range r.joined[connID] {
		r.leaveLocked(connID, channelID)
	}
	delete(r.conns, connID)
}

// Members returns a snapshot of the channel's current members.
func (r *Registry) Members(channelID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.channels[channelID]
	out := make([]*Client, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// InChannel reports whether the connection is currently a member.
func (r *Registry) InChannel(connID, channelID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.channels[channelID]
	if !ok {
		return false
	}
	_, ok = set[connID]
	return ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
