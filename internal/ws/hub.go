package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/contrib/websocket"

	"go-stock-ledger/pkg/logger"
)

// Event is pushed to every connected client after a committed change so open
// screens can reload instead of waiting for their next poll.
type Event struct {
	Type       string    `json:"type"`
	Action     string    `json:"action"`
	ProductIDs []string  `json:"product_ids,omitempty"`
	User       string    `json:"user,omitempty"`
	Message    string    `json:"message"`
	At         time.Time `json:"at"`
}

const TypeStockUpdate = "stock_update"

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Hub struct {
	clients    map[Conn]bool
	Register   chan Conn
	Unregister chan Conn
	Broadcast  chan []byte
	done       chan struct{}
	log        *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[Conn]bool),
		Register:   make(chan Conn),
		Unregister: make(chan Conn),
		Broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		log:        log.WithComponent("ws"),
	}
}

// Publish queues ev for broadcast. A full queue drops the event; clients
// converge on their next poll.
func (h *Hub) Publish(ev Event) {
	if ev.Type == "" {
		ev.Type = TypeStockUpdate
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		h.log.Errorw("encode event", "error", err)
		return
	}
	select {
	case h.Broadcast <- msg:
	default:
		h.log.Warnw("broadcast queue full, event dropped", "action", ev.Action)
	}
}

// Join hands conn to the hub. It reports false once the hub has stopped.
func (h *Hub) Join(conn Conn) bool {
	select {
	case h.Register <- conn:
		return true
	case <-h.done:
		return false
	}
}

// Leave detaches conn. After the hub has stopped it returns at once, since Run
// already closed every connection on its way out.
func (h *Hub) Leave(conn Conn) {
	select {
	case h.Unregister <- conn:
	case <-h.done:
	}
}

// Done is closed when Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Run owns the client set until ctx is done, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			return

		case conn := <-h.Register:
			h.clients[conn] = true
			h.log.Debugw("client connected", "clients", len(h.clients))

		case conn := <-h.Unregister:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}

		case message := <-h.Broadcast:
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
		}
	}
}
