package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fundrail/fundrail/internal/domain"
)

// BackerService defines the methods the backer handler requires from the
// service layer.
type BackerService interface {
	Upsert(ctx context.Context, b domain.Backer) (domain.Backer, error)
	Get(ctx context.Context, address string) (domain.Backer, error)
}

// BackerHandler serves backer profile endpoints.
type BackerHandler struct {
	backers BackerService
	logger  *slog.Logger
}

// NewBackerHandler creates a BackerHandler with the given service.
func NewBackerHandler(backers BackerService, logger *slog.Logger) *BackerHandler {
	return &BackerHandler{
		backers: backers,
		logger:  logger,
	}
}

// backerResponse is the wire shape of a backer profile.
type backerResponse struct {
	Address   string    `json:"address"`
	Name      string    `json:"name,omitempty"`
	Avatar    string    `json:"avatar,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toBackerResponse(b domain.Backer) backerResponse {
	return backerResponse{
		Address:   b.Address,
		Name:      b.Name,
		Avatar:    b.Avatar,
		Bio:       b.Bio,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// GetBacker returns a backer profile by wallet address.
// GET /api/backers/{address}
func (h *BackerHandler) GetBacker(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "missing backer address")
		return
	}

	b, err := h.backers.Get(r.Context(), address)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "backer not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get backer failed",
			slog.String("address", address),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get backer")
		return
	}

	writeJSON(w, http.StatusOK, toBackerResponse(b))
}

// upsertBackerRequest is the profile upsert body.
type upsertBackerRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Bio    string `json:"bio"`
}

// UpsertBacker creates or updates a backer profile.
// PUT /api/backers/{address}
func (h *BackerHandler) UpsertBacker(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "missing backer address")
		return
	}

	var req upsertBackerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	b, err := h.backers.Upsert(r.Context(), domain.Backer{
		Address: address,
		Name:    req.Name,
		Avatar:  req.Avatar,
		Bio:     req.Bio,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: upsert backer failed",
			slog.String("address", address),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "failed to upsert backer")
		return
	}

	writeJSON(w, http.StatusOK, toBackerResponse(b))
}
