package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fundrail/fundrail/internal/domain"
	"github.com/fundrail/fundrail/internal/service"
)

// PledgeService defines the methods the pledge handler requires from the
// service layer.
type PledgeService interface {
	AcceptPledge(ctx context.Context, in service.AcceptPledgeInput) (domain.Pledge, error)
	GetPledge(ctx context.Context, id string) (domain.Pledge, error)
	ListByCampaign(ctx context.Context, campaignID string, opts domain.ListOpts) ([]domain.Pledge, error)
	ListByBacker(ctx context.Context, backerID string, opts domain.ListOpts) ([]domain.Pledge, error)
}

// PledgeHandler serves pledge-related HTTP endpoints.
type PledgeHandler struct {
	pledges PledgeService
	logger  *slog.Logger
}

// NewPledgeHandler creates a PledgeHandler with the given service.
func NewPledgeHandler(pledges PledgeService, logger *slog.Logger) *PledgeHandler {
	return &PledgeHandler{
		pledges: pledges,
		logger:  logger,
	}
}

// pledgeResponse is the wire shape of a pledge. Amount is display units.
type pledgeResponse struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaign_id"`
	TierID     *string   `json:"tier_id,omitempty"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	BackerID   string    `json:"backer_id"`
	TxRef      string    `json:"tx_ref,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

func toPledgeResponse(p domain.Pledge) pledgeResponse {
	return pledgeResponse{
		ID:         p.ID,
		CampaignID: p.CampaignID,
		TierID:     p.TierID,
		Amount:     domain.FromAtomic(p.Amount),
		Currency:   p.Currency,
		BackerID:   p.BackerID,
		TxRef:      p.TxRef,
		Status:     string(p.Status),
		CreatedAt:  p.CreatedAt,
	}
}

// createPledgeRequest is the pledge submission body. Amount is display
// units (e.g. 25.50).
type createPledgeRequest struct {
	CampaignID string  `json:"campaign_id"`
	TierID     *string `json:"tier_id"`
	Amount     float64 `json:"amount"`
	BackerID   string  `json:"backer_id"`
	TxRef      string  `json:"tx_ref"`
}

// CreatePledge validates and commits a new pledge.
// POST /api/pledges
func (h *PledgeHandler) CreatePledge(w http.ResponseWriter, r *http.Request) {
	var req createPledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.CampaignID == "" || req.BackerID == "" || req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "campaign_id, backer_id and a positive amount are required")
		return
	}

	p, err := h.pledges.AcceptPledge(r.Context(), service.AcceptPledgeInput{
		CampaignID: req.CampaignID,
		TierID:     req.TierID,
		Amount:     req.Amount,
		BackerID:   req.BackerID,
		TxRef:      req.TxRef,
	})
	if err != nil {
		if status, msg, ok := pledgeRejectionStatus(err); ok {
			writeError(w, status, msg)
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: create pledge failed",
			slog.String("campaign_id", req.CampaignID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create pledge")
		return
	}

	writeJSON(w, http.StatusCreated, toPledgeResponse(p))
}

// listPledgesResponse wraps the pledge listing output.
type listPledgesResponse struct {
	Pledges []pledgeResponse `json:"pledges"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// ListPledges returns pledges for a campaign or a backer.
// GET /api/pledges?campaign_id=...&backer_id=...&limit=50&offset=0
func (h *PledgeHandler) ListPledges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	campaignID := q.Get("campaign_id")
	backerID := q.Get("backer_id")

	if campaignID == "" && backerID == "" {
		writeError(w, http.StatusBadRequest, "campaign_id or backer_id query parameter required")
		return
	}

	opts := parseListOpts(r)

	var pledges []domain.Pledge
	var err error
	if campaignID != "" {
		pledges, err = h.pledges.ListByCampaign(r.Context(), campaignID, opts)
	} else {
		pledges, err = h.pledges.ListByBacker(r.Context(), backerID, opts)
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list pledges failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list pledges")
		return
	}

	out := make([]pledgeResponse, 0, len(pledges))
	for _, p := range pledges {
		out = append(out, toPledgeResponse(p))
	}

	writeJSON(w, http.StatusOK, listPledgesResponse{
		Pledges: out,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}
