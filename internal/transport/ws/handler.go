package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192

	turnTimeout = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// TurnFunc processes one user message and returns the reply
type TurnFunc func(ctx context.Context, sessionID, message string) (string, error)

// Handler handles WebSocket connections
type Handler struct {
	hub        *Hub
	handleTurn TurnFunc
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, handleTurn TurnFunc) *Handler {
	return &Handler{
		hub:        hub,
		handleTurn: handleTurn,
	}
}

// SessionWS handles GET /v1/ws/sessions/{sessionId}
func (h *Handler) SessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	if sessionID == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	conn := &Connection{
		SessionID: sessionID,
		Send:      make(chan []byte, 64),
		Hub:       h.hub,
	}
	h.hub.Register(conn)

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.hub.SendToSession(conn.SessionID, MsgError, map[string]string{"error": "invalid message format"})
			continue
		}
		if msg.Type != MsgTurn {
			continue
		}

		var turn TurnPayload
		if err := json.Unmarshal(msg.Payload, &turn); err != nil {
			h.hub.SendToSession(conn.SessionID, MsgError, map[string]string{"error": "invalid turn payload"})
			continue
		}

		// One turn per session at a time: process inline on the read loop.
		h.hub.SendToSession(conn.SessionID, MsgTyping, map[string]bool{"typing": true})
		ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
		reply, err := h.handleTurn(ctx, conn.SessionID, turn.Message)
		cancel()
		if err != nil {
			log.Printf("[WS] Turn failed for session %s: %v", conn.SessionID, err)
			h.hub.SendToSession(conn.SessionID, MsgError, map[string]string{"error": "turn processing failed"})
			continue
		}
		h.hub.SendToSession(conn.SessionID, MsgReply, &ReplyPayload{Reply: reply})
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
