// Package realtime turns database change notifications into cache
// invalidations and refetch pings for open table views.
package realtime

import "sync"

// Hub broadcasts refetch pings per table. Listeners receive an empty struct
// when the table changed and should reload it.
type Hub struct {
	mu        sync.RWMutex
	listeners map[string]map[chan struct{}]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{listeners: make(map[string]map[chan struct{}]struct{})}
}

// Subscribe returns a channel that receives pings for table. The caller must
// call Unsubscribe when done.
func (h *Hub) Subscribe(table string) chan struct{} {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	if h.listeners[table] == nil {
		h.listeners[table] = make(map[chan struct{}]struct{})
	}
	h.listeners[table][ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a listener channel.
func (h *Hub) Unsubscribe(table string, ch chan struct{}) {
	h.mu.Lock()
	if set, ok := h.listeners[table]; ok {
		if _, ok := set[ch]; ok {
			delete(set, ch)
			close(ch)
		}
		if len(set) == 0 {
			delete(h.listeners, table)
		}
	}
	h.mu.Unlock()
}

// Broadcast pings every listener of table. A listener with a ping already
// queued is skipped; it reloads once for both changes.
func (h *Hub) Broadcast(table string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.listeners[table] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Listeners returns the number of listeners of table.
func (h *Hub) Listeners(table string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners[table])
}
