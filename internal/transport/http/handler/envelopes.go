package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-gateway-auth/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// GroupEnvelope wraps single-group responses.
type GroupEnvelope struct {
	Group *domain.Group `json:"group,omitempty"`
	Error string        `json:"error,omitempty"`
}

// GroupsEnvelope wraps group list responses.
type GroupsEnvelope struct {
	Data  []domain.Group `json:"data"`
	Error string         `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
