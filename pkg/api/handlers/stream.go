package handlers

import (
	"net/http"

	"github.com/cbodonnell/statexfer/pkg/log"
	"github.com/cbodonnell/statexfer/pkg/metrics"
	"nhooyr.io/websocket"
)

// Subscriber hands out serialized state frames.
type Subscriber interface {
	Subscribe() (<-chan []byte, func())
}

// HandleStateStream upgrades to a websocket and sends one binary frame per
// state change. Client messages are ignored.
func HandleStateStream(subscriber Subscriber, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			log.Error("Failed to upgrade to WebSocket: %v", err)
			return
		}
		defer conn.Close(websocket.StatusInternalError, "")

		m.StreamClients.Inc()
		defer m.StreamClients.Dec()
		log.Debug("New state stream client %s", r.RemoteAddr)

		frames, unsubscribe := subscriber.Subscribe()
		defer unsubscribe()

		ctx := conn.CloseRead(r.Context())
		for {
			select {
			case <-ctx.Done():
				log.Trace("State stream closed for %s", r.RemoteAddr)
				conn.Close(websocket.StatusNormalClosure, "")
				return
			case b := <-frames:
				if err := conn.Write(ctx, websocket.MessageBinary, b); err != nil {
					log.Debug("Failed to write state frame to %s: %v", r.RemoteAddr, err)
					return
				}
			}
		}
	}
}
