package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Inbound
	MsgTurn MessageType = "turn"

	// Outbound
	MsgReply  MessageType = "reply"
	MsgTyping MessageType = "typing"
	MsgError  MessageType = "error"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// TurnPayload is the inbound payload for a user message
type TurnPayload struct {
	Message string `json:"message"`
}

// ReplyPayload is the outbound payload carrying the turn reply
type ReplyPayload struct {
	Reply string `json:"reply"`
}

// Hub manages one WebSocket connection per session. Reconnecting replaces the
// previous connection.
type Hub struct {
	conns map[string]*Connection

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
}

// Connection represents one session's WebSocket connection
type Connection struct {
	SessionID string
	Send      chan []byte
	Hub       *Hub
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		conns:      make(map[string]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if existing, ok := h.conns[conn.SessionID]; ok {
				close(existing.Send)
			}
			h.conns[conn.SessionID] = conn
			h.mu.Unlock()
			log.Printf("[WS] Session %s connected", conn.SessionID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if existing, ok := h.conns[conn.SessionID]; ok && existing == conn {
				delete(h.conns, conn.SessionID)
				close(conn.Send)
				log.Printf("[WS] Session %s disconnected", conn.SessionID)
			}
			h.mu.Unlock()
		}
	}
}

// Register adds a connection to the hub
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection from the hub
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// SendToSession pushes a typed message to one session, dropping it when the
// session is not connected or its buffer is full.
func (h *Hub) SendToSession(sessionID string, msgType MessageType, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[WS] Marshal error: %v", err)
		return
	}
	envelope, err := json.Marshal(&Message{Type: msgType, Payload: data})
	if err != nil {
		log.Printf("[WS] Marshal error: %v", err)
		return
	}

	h.mu.RLock()
	conn, ok := h.conns[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	select {
	case conn.Send <- envelope:
	default:
		log.Printf("[WS] Send buffer full for session %s, dropping message", sessionID)
	}
}
