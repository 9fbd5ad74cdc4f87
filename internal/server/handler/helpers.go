package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fundrail/fundrail/internal/domain"
)

// writeJSON marshals v as JSON and writes it with the given status code.
// Marshal failures fall back to a plain 500 body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseListOpts extracts pagination parameters from the query string.
// Defaults: limit=50 (max 200), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 200 {
		limit = 200
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
}

// pledgeRejectionStatus maps a pledge validation failure to an HTTP status
// and a user-facing message, or returns ok=false for unexpected errors.
func pledgeRejectionStatus(err error) (status int, msg string, ok bool) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "campaign not found", true
	case errors.Is(err, domain.ErrCampaignNotActive):
		return http.StatusConflict, domain.ErrCampaignNotActive.Error(), true
	case errors.Is(err, domain.ErrCampaignEnded):
		return http.StatusConflict, domain.ErrCampaignEnded.Error(), true
	case errors.Is(err, domain.ErrTierNotFound):
		return http.StatusNotFound, domain.ErrTierNotFound.Error(), true
	case errors.Is(err, domain.ErrTierInactive):
		return http.StatusConflict, domain.ErrTierInactive.Error(), true
	case errors.Is(err, domain.ErrTierNotYetAvailable):
		return http.StatusConflict, domain.ErrTierNotYetAvailable.Error(), true
	case errors.Is(err, domain.ErrTierExpired):
		return http.StatusConflict, domain.ErrTierExpired.Error(), true
	}

	var belowMin *domain.BelowMinimumError
	if errors.As(err, &belowMin) {
		return http.StatusUnprocessableEntity, belowMin.Error(), true
	}
	if errors.Is(err, domain.ErrBelowMinimum) {
		return http.StatusUnprocessableEntity, domain.ErrBelowMinimum.Error(), true
	}

	var soldOut *domain.TierSoldOutError
	if errors.As(err, &soldOut) {
		return http.StatusConflict, soldOut.Error(), true
	}
	if errors.Is(err, domain.ErrTierSoldOut) {
		return http.StatusConflict, domain.ErrTierSoldOut.Error(), true
	}

	return 0, "", false
}
