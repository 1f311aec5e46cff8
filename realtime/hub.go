package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"levelranks/core"
)

type subscriber struct {
	ch     chan core.Event
	player core.PlayerID
}

// Hub is a simple pub/sub for broadcasting events to channels.
type Hub struct {
	mu      sync.RWMutex
	subs    map[int]subscriber
	next    int
	dropped uint64
}

func NewHub() *Hub { return &Hub{subs: map[int]subscriber{}} }

// Subscribe receives every event.
func (h *Hub) Subscribe(buffer int) (int, <-chan core.Event) {
	return h.SubscribePlayer(buffer, "")
}

// SubscribePlayer receives only the events of one player. An empty id
// subscribes to all players.
func (h *Hub) SubscribePlayer(buffer int, player core.PlayerID) (int, <-chan core.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	ch := make(chan core.Event, buffer)
	h.subs[id] = subscriber{ch: ch, player: player}
	return id, ch
}

func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(s.ch)
	}
}

// Broadcast never blocks; events for a full subscriber are dropped.
// Sends happen under the read lock so Unsubscribe cannot close a channel
// mid-send.
func (h *Hub) Broadcast(_ context.Context, ev core.Event) {
	var dropped uint64
	h.mu.RLock()
	for _, s := range h.subs {
		if s.player != "" && s.player != ev.PlayerID {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			dropped++
		}
	}
	h.mu.RUnlock()
	if dropped > 0 {
		h.mu.Lock()
		h.dropped += dropped
		h.mu.Unlock()
	}
}

// Dropped returns how many deliveries were skipped on full subscribers.
func (h *Hub) Dropped() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Subscribers returns the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// MarshalJSON is a helper to convert events to JSON bytes for WebSocket/SSE.
func MarshalJSON(ev core.Event) []byte {
	b, _ := json.Marshal(ev)
	return b
}
