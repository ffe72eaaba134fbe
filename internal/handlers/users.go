package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/acp-registry/apiserver/internal/store"
	"github.com/acp-registry/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// ModerationService is the workflow the user routes call into.
type ModerationService interface {
	ListActive(ctx context.Context) ([]types.ActiveUser, error)
	ListPending(ctx context.Context) ([]types.PendingUser, error)
	Submit(ctx context.Context, profile types.Profile) (types.PendingUser, error)
	Approve(ctx context.Context, id int64) (types.ActiveUser, error)
}

// UserHandler provides HTTP handlers for registration and moderation.
type UserHandler struct {
	service ModerationService
	logger  *slog.Logger
}

// NewUserHandler constructs a handler with the provided service.
func NewUserHandler(service ModerationService, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: service, logger: logger}
}

// UserRouter registers the registration and moderation routes.
func UserRouter(r chi.Router, service ModerationService, logger *slog.Logger) {
	handler := NewUserHandler(service, logger)

	r.Get("/users", handler.ListActive)
	r.Get("/users/pending", handler.ListPending)
	r.Post("/register", handler.Register)
	r.Post("/approve", handler.Approve)
}

func (h *UserHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListActive(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListPending(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Register submits the request body as a new pending registration.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var profile types.Profile
	if err := decodeJSON(w, r, &profile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.service.Submit(r.Context(), profile)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SubmitResponse{Success: true, ID: user.ID})
}

// Approve promotes a pending registration to the active list.
func (h *UserHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	id, err := types.WholeNumber(req.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userId")
		return
	}

	if _, err := h.service.Approve(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func (h *UserHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusBadRequest, store.ErrDuplicate.Error())
	case errors.Is(err, store.ErrInvalidProfile):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, store.ErrNotFound.Error())
	default:
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

type ApproveRequest struct {
	UserID json.Number `json:"userId"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

// SubmitResponse also carries the id assigned to the new pending user.
type SubmitResponse struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id"`
}

