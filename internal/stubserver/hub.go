package stubserver

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"storefront/internal/domain"
)

type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	kitchen bool
}

// hub fans push events out to connected websocket clients. Clients that
// emit join-kitchen additionally receive new-order events.
type hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

func newHub() *hub {
	return &hub{
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		clients:  make(map[*wsClient]struct{}),
	}
}

func (h *hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &wsClient{conn: conn}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, client)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		var f wsFrame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}
		if f.Event == domain.EventJoinKitchen {
			h.mu.Lock()
			client.kitchen = true
			h.mu.Unlock()
		}
	}
}

func (h *hub) broadcast(event string, data interface{}, kitchenOnly bool) {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Printf("broadcast %s: %v", event, err)
		return
	}
	frame := wsFrame{Event: event, Data: raw}

	h.mu.Lock()
	targets := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		if kitchenOnly && !client.kitchen {
			continue
		}
		targets = append(targets, client)
	}
	h.mu.Unlock()

	for _, client := range targets {
		client.writeMu.Lock()
		err := client.conn.WriteJSON(frame)
		client.writeMu.Unlock()
		if err != nil {
			log.Printf("push to client failed: %v", err)
		}
	}
}
