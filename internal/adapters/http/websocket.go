package http

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	"github.com/vibepin/vibepin/internal/core/domain"
	"github.com/vibepin/vibepin/internal/pkg/geospatial"
	"github.com/vibepin/vibepin/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to live updates.
type wsMessage struct {
	Action   string  `json:"action"`   // "subscribe" | "unsubscribe"
	Channel  string  `json:"channel"`  // "posts" | "moderation" (default: posts)
	Category string  `json:"category"` // category filter (optional, "" = all)
	Lat      float64 `json:"lat"`      // viewport center (optional)
	Lng      float64 `json:"lng"`
	Radius   float64 `json:"radius"` // viewport radius in meters (0 = no filter)
}

// WebSocketHandler returns a handler that upgrades to WebSocket and relays
// live post events from NATS to connected clients.
// Clients send JSON: {"action":"subscribe","channel":"posts","category":"rant"}
// An optional lat/lng/radius restricts new-post events to a map viewport;
// the filter runs here so the broker fan-out stays category-keyed.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		remoteAddr := c.RemoteAddr().String()
		log.Printf("ws client connected: %s", remoteAddr)

		var mu sync.Mutex
		subs := make(map[string]*nats.Subscription) // subject -> subscription

		// Helper: thread-safe write
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		// postRelay forwards a new-post event, applying an optional viewport
		// filter against the post location.
		postRelay := func(lat, lng, radius float64) nats.MsgHandler {
			return func(msg *nats.Msg) {
				if radius > 0 {
					var post domain.Post
					if err := json.Unmarshal(msg.Data, &post); err != nil {
						return
					}
					d := geospatial.Haversine(lat, lng, post.Location.Lat, post.Location.Lng)
					if d > radius {
						return
					}
				}
				_ = writeJSON(json.RawMessage(msg.Data))
			}
		}

		// Auto-subscribe to all new posts by default
		defaultSubject := "posts.created.>"
		sub, err := nc.Subscribe(defaultSubject, postRelay(0, 0, 0))
		if err != nil {
			log.Printf("ws default subscribe error: %v", err)
			return
		}
		subs[defaultSubject] = sub

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		// Read client messages for subscribe/unsubscribe
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			// Build NATS subject
			channel := m.Channel
			if channel == "" {
				channel = "posts"
			}

			var subject string
			switch channel {
			case "posts":
				if m.Category != "" {
					if _, ok := domain.ParseCategory(m.Category); !ok {
						_ = writeJSON(map[string]string{"error": "unknown category: " + m.Category})
						continue
					}
					subject = "posts.created." + m.Category
				} else {
					subject = "posts.created.>"
				}
			case "moderation":
				subject = "posts.removed.>"
			default:
				_ = writeJSON(map[string]string{"error": "unknown channel: " + channel})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				var handler nats.MsgHandler
				if channel == "posts" {
					handler = postRelay(m.Lat, m.Lng, m.Radius)
				} else {
					handler = func(msg *nats.Msg) { _ = writeJSON(map[string]string{"removed": string(msg.Data)}) }
				}
				s, err := nc.Subscribe(subject, handler)
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				subs[subject] = s
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				if s, exists := subs[subject]; exists {
					_ = s.Unsubscribe()
					delete(subs, subject)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		// Cleanup
		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		log.Printf("ws client disconnected: %s", remoteAddr)
	}
}
