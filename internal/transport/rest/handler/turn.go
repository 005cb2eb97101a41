package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"traflow/internal/router"
)

// TurnHandler handles conversational turn endpoints
type TurnHandler struct {
	router *router.Router
}

// NewTurnHandler creates a new turn handler
func NewTurnHandler(r *router.Router) *TurnHandler {
	return &TurnHandler{router: r}
}

// TurnRequest is the request body for a conversational turn
type TurnRequest struct {
	Message string `json:"message"`
}

// Post handles POST /v1/sessions/{sessionId}/turns
func (h *TurnHandler) Post(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := h.router.HandleTurn(r.Context(), sessionID, req.Message)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
