package websocket

import (
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"levelranks/core"
	"levelranks/identity"
	"levelranks/realtime"
)

const writeWait = 5 * time.Second

// Handler returns an http.Handler that upgrades to WebSocket and streams
// events from the hub. A ?player= query restricts the stream to one player.
func Handler(hub *realtime.Hub) http.Handler {
	upgrader := gorillaws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var player core.PlayerID
		if raw := r.URL.Query().Get("player"); raw != "" {
			id, err := identity.Normalize(raw)
			if err != nil {
				http.Error(w, "invalid player", http.StatusBadRequest)
				return
			}
			player = id
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var (
			id int
			ch <-chan core.Event
		)
		if player != "" {
			id, ch = hub.SubscribePlayer(256, player)
		} else {
			id, ch = hub.Subscribe(256)
		}
		defer hub.Unsubscribe(id)

		// the read pump only notices the client going away
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.NextReader(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(gorillaws.TextMessage, realtime.MarshalJSON(ev)); err != nil {
					return
				}
			}
		}
	})
}
