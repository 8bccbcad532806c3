// Package main runs a demo WebSocket client that tails colony trace events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	post := func(path string, body []byte) *http.Response {
		req, _ := http.NewRequest(http.MethodPost, base+path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-Id", "t_demo")
		req.Header.Set("X-Role", "admin")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			log.Fatal(err)
		}
		return resp
	}

	// Register a small problem
	resp := post("/v1/problems", []byte(`{"name":"demo","matrix":[[0,1,2],[1,0,1],[2,1,0]]}`))
	var prob struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&prob); err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	log.Printf("Problem ID: %s", prob.ID)

	// Spin up a colony over it
	resp = post("/v1/colonies", []byte(`{"problemId":"`+prob.ID+`","ants":2,"seed":42}`))
	var colony struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&colony); err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	log.Printf("Colony ID: %s", colony.ID)

	// Connect WS
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/trace/ws"}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	hdr.Set("X-Role", "admin")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	// connection_init
	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	// subscribe to every trace event of the colony
	pl, _ := json.Marshal(map[string]any{"colonyId": colony.ID})
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: pl}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
		}
	}()

	// Run one iteration so trace events flow
	time.Sleep(500 * time.Millisecond)
	resp = post("/v1/colonies/"+colony.ID+"/iterate", []byte(`{}`))
	_ = resp.Body.Close()

	// Wait briefly to receive a few messages
	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
