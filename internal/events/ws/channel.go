package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"storefront/internal/events"
)

// frame is the wire format of the push channel: one JSON object per
// message, carrying the event name and its payload.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Channel is a websocket-backed events.Channel. Handlers registered via
// On are dispatched from a single read loop, so for one channel they
// run in message arrival order.
type Channel struct {
	url    string
	header http.Header

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[string][]events.Handler
	done     chan struct{}
}

func NewChannel(url string, header http.Header) *Channel {
	return &Channel{
		url:      url,
		header:   header,
		handlers: make(map[string][]events.Handler),
	}
}

func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return errors.New("already connected")
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		return err
	}
	if resp != nil {
		resp.Body.Close()
	}
	c.conn = conn
	c.done = make(chan struct{})
	go c.readLoop(conn, c.done)
	return nil
}

func (c *Channel) Disconnect() error {
	c.mu.Lock()
	conn := c.conn
	done := c.done
	c.conn = nil
	c.done = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	err := conn.Close()
	if done != nil {
		<-done
	}
	return err
}

func (c *Channel) On(event string, h events.Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], h)
}

func (c *Channel) Emit(event string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errors.New("not connected")
	}
	return c.conn.WriteJSON(frame{Event: event, Data: raw})
}

func (c *Channel) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("push channel closed: %v", err)
			}
			return
		}
		if f.Event == "" {
			continue
		}
		c.mu.Lock()
		handlers := append([]events.Handler(nil), c.handlers[f.Event]...)
		c.mu.Unlock()
		for _, h := range handlers {
			h(f.Data)
		}
	}
}
