package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket stream of colony events using a small subscribe protocol:
// the client sends {"type":"connection_init"}, then any number of
// {"type":"subscribe","id":"...","payload":{"colonyId":"...","kinds":[...]}}
// messages; the server replies with "next" frames per event and "complete"
// when a subscription ends. An empty kinds list means all event types.

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type subscribePayload struct {
	ColonyID string   `json:"colonyId"`
	Kinds    []string `json:"kinds"`
}

// TraceWSHandler handles /v1/trace/ws
func (s *Server) TraceWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	// Track subscriptions: id -> colonyID and channel
	type sub struct {
		colonyID string
		ch       chan SSEEvent
	}
	subs := map[string]sub{}

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	write := func(v any) error { return conn.WriteJSON(v) }

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "connection_init":
			_ = write(wsMessage{Type: "connection_ack"})
			// Keepalive
			go func() {
				ticker := time.NewTicker(20 * time.Second)
				defer ticker.Stop()
				for range ticker.C {
					if err := write(wsMessage{Type: "ping"}); err != nil {
						return
					}
				}
			}()
		case "ping":
			_ = write(wsMessage{Type: "pong"})
		case "subscribe":
			var pl subscribePayload
			_ = json.Unmarshal(msg.Payload, &pl)
			if pl.ColonyID == "" {
				_ = write(wsMessage{Type: "error", ID: msg.ID, Payload: []byte(`{"message":"colonyId required"}`)})
				_ = write(wsMessage{Type: "complete", ID: msg.ID})
				continue
			}
			pr := s.getPrincipal(r)
			if _, ok := s.Registry.Get(pr.Tenant, pl.ColonyID); !ok {
				_ = write(wsMessage{Type: "error", ID: msg.ID, Payload: []byte(`{"message":"colony not found"}`)})
				_ = write(wsMessage{Type: "complete", ID: msg.ID})
				continue
			}
			kinds := map[string]struct{}{}
			for _, k := range pl.Kinds {
				kinds[strings.ToLower(k)] = struct{}{}
			}
			ch := s.Broker.Subscribe(pl.ColonyID)
			subs[msg.ID] = sub{colonyID: pl.ColonyID, ch: ch}
			// Fanout goroutine
			go func(id string, c chan SSEEvent, kinds map[string]struct{}) {
				for evt := range c {
					if len(kinds) > 0 {
						if _, ok := kinds[strings.ToLower(evt.Type)]; !ok {
							continue
						}
					}
					payload, _ := json.Marshal(map[string]any{"event": evt.Type, "data": evt.Data})
					_ = write(wsMessage{Type: "next", ID: id, Payload: payload})
				}
				_ = write(wsMessage{Type: "complete", ID: id})
			}(msg.ID, ch, kinds)
		case "complete":
			if s0, ok := subs[msg.ID]; ok {
				s.Broker.Unsubscribe(s0.colonyID, s0.ch)
				delete(subs, msg.ID)
			}
		default:
			// ignore
		}
	}
	// Cleanup
	for id, s0 := range subs {
		s.Broker.Unsubscribe(s0.colonyID, s0.ch)
		delete(subs, id)
	}
}
