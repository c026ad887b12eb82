package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-gateway-auth/internal/application/group"
	"github.com/go-gateway-auth/internal/domain"
	"github.com/go-gateway-auth/internal/transport/http/middleware"
)

// GroupHandler serves the JSON group management endpoints.
// Routes are mounted behind middleware.RequireLogin.
type GroupHandler struct {
	svc group.Service
}

func NewGroupHandler(svc group.Service) *GroupHandler {
	return &GroupHandler{svc: svc}
}

type groupIDRequest struct {
	GroupID string `json:"id"`
}

func currentUser(r *http.Request) string {
	sess, _ := middleware.SessionFromContext(r.Context())
	if sess == nil {
		return ""
	}
	return sess.Username
}

// writeGroupError maps service errors to status codes.
func writeGroupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "group not found")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "group changed concurrently, please retry")
	default:
		slog.Error("group request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *GroupHandler) Manage(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.List(r.Context(), currentUser(r))
	if err != nil {
		writeGroupError(w, err)
		return
	}
	if groups == nil {
		groups = []domain.Group{}
	}
	writeJSON(w, http.StatusOK, GroupsEnvelope{Data: groups})
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.GroupInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	g, err := h.svc.Create(r.Context(), currentUser(r), in)
	if err != nil {
		writeGroupError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, GroupEnvelope{Group: g})
}

func (h *GroupHandler) View(w http.ResponseWriter, r *http.Request) {
	groupID := r.URL.Query().Get("id")
	if groupID == "" {
		writeError(w, http.StatusBadRequest, "id required")
		return
	}
	g, err := h.svc.Get(r.Context(), currentUser(r), groupID)
	if err != nil {
		writeGroupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GroupEnvelope{Group: g})
}

func (h *GroupHandler) AddMembers(w http.ResponseWriter, r *http.Request) {
	h.changeMembers(w, r, h.svc.AddMembers)
}

func (h *GroupHandler) RemoveMembers(w http.ResponseWriter, r *http.Request) {
	h.changeMembers(w, r, h.svc.RemoveMembers)
}

func (h *GroupHandler) changeMembers(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, username string, in domain.GroupMembersInput) (*domain.Group, error)) {
	var in domain.GroupMembersInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	g, err := op(r.Context(), currentUser(r), in)
	if err != nil {
		writeGroupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GroupEnvelope{Group: g})
}

func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, h.svc.Delete, "group deleted")
}

func (h *GroupHandler) Leave(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, h.svc.Leave, "left group")
}

func (h *GroupHandler) byID(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, username, groupID string) error, msg string) {
	var req groupIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GroupID == "" {
		writeError(w, http.StatusBadRequest, "id required")
		return
	}
	if err := op(r.Context(), currentUser(r), req.GroupID); err != nil {
		writeGroupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: msg})
}
