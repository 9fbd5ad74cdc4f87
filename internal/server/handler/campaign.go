package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fundrail/fundrail/internal/domain"
	"github.com/fundrail/fundrail/internal/service"
)

// CampaignService defines the methods the campaign handler requires from
// the service layer. Declared locally so the handler package does not
// depend on the concrete service implementation.
type CampaignService interface {
	CreateDraft(ctx context.Context, in service.CreateDraftInput) (domain.Campaign, error)
	Get(ctx context.Context, id string) (domain.Campaign, error)
	GetByLedgerID(ctx context.Context, ledgerCampaignID int64) (domain.Campaign, error)
	List(ctx context.Context, filter domain.CampaignFilter, opts domain.ListOpts) ([]domain.Campaign, error)
	Count(ctx context.Context, filter domain.CampaignFilter) (int64, error)
	ListTiers(ctx context.Context, campaignID string) ([]domain.Tier, error)
}

// DeployService binds deployed escrow campaigns to drafts.
type DeployService interface {
	BindDeployment(ctx context.Context, draftID string, ledgerCampaignID int64, txRef string) (domain.Campaign, error)
}

// SyncService reconciles one campaign against the settlement ledger.
type SyncService interface {
	Reconcile(ctx context.Context, ref domain.CampaignRef) (domain.SyncResult, error)
}

// CampaignHandler serves campaign-related HTTP endpoints.
type CampaignHandler struct {
	campaigns CampaignService
	deploys   DeployService
	syncs     SyncService
	logger    *slog.Logger
}

// NewCampaignHandler creates a CampaignHandler with the given services.
func NewCampaignHandler(campaigns CampaignService, deploys DeployService, syncs SyncService, logger *slog.Logger) *CampaignHandler {
	return &CampaignHandler{
		campaigns: campaigns,
		deploys:   deploys,
		syncs:     syncs,
		logger:    logger,
	}
}

// campaignResponse is the wire shape of a campaign. Money fields are
// display-unit USDC decimals; atomic units stay internal.
type campaignResponse struct {
	ID               string     `json:"id"`
	LedgerCampaignID *int64     `json:"ledger_campaign_id,omitempty"`
	CreatorAddress   string     `json:"creator_address"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Story            string     `json:"story,omitempty"`
	Category         string     `json:"category,omitempty"`
	Tags             []string   `json:"tags,omitempty"`
	CoverImage       string     `json:"cover_image,omitempty"`
	Gallery          []string   `json:"gallery,omitempty"`
	Goal             float64    `json:"goal"`
	Raised           float64    `json:"raised"`
	MinContribution  float64    `json:"min_contribution"`
	DurationDays     int        `json:"duration_days"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	Status           string     `json:"status"`
	FinalizedAt      *time.Time `json:"finalized_at,omitempty"`
	RefundAvailable  bool       `json:"refund_available"`
	CreationTxRef    string     `json:"creation_tx_ref,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func toCampaignResponse(c domain.Campaign) campaignResponse {
	return campaignResponse{
		ID:               c.ID,
		LedgerCampaignID: c.LedgerCampaignID,
		CreatorAddress:   c.CreatorAddress,
		Title:            c.Title,
		Description:      c.Description,
		Story:            c.Story,
		Category:         c.Category,
		Tags:             c.Tags,
		CoverImage:       c.CoverImage,
		Gallery:          c.Gallery,
		Goal:             domain.FromAtomic(c.GoalAmount),
		Raised:           domain.FromAtomic(c.RaisedAmount),
		MinContribution:  domain.FromAtomic(c.MinContribution),
		DurationDays:     c.DurationDays,
		StartDate:        c.StartDate,
		Deadline:         c.Deadline,
		Status:           string(c.Status),
		FinalizedAt:      c.FinalizedAt,
		RefundAvailable:  c.RefundAvailable,
		CreationTxRef:    c.CreationTxRef,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

// tierResponse is the wire shape of a reward tier.
type tierResponse struct {
	ID         string     `json:"id"`
	CampaignID string     `json:"campaign_id"`
	Title      string     `json:"title"`
	Rewards    string     `json:"rewards,omitempty"`
	Amount     float64    `json:"amount"`
	MaxBackers *int       `json:"max_backers,omitempty"`
	Minted     int        `json:"minted"`
	SoldOut    bool       `json:"sold_out"`
	Active     bool       `json:"active"`
	StartsAt   *time.Time `json:"starts_at,omitempty"`
	EndsAt     *time.Time `json:"ends_at,omitempty"`
}

func toTierResponse(t domain.Tier) tierResponse {
	return tierResponse{
		ID:         t.ID,
		CampaignID: t.CampaignID,
		Title:      t.Title,
		Rewards:    t.Rewards,
		Amount:     domain.FromAtomic(t.Amount),
		MaxBackers: t.MaxBackers,
		Minted:     t.Minted,
		SoldOut:    t.SoldOut(),
		Active:     t.Active,
		StartsAt:   t.StartsAt,
		EndsAt:     t.EndsAt,
	}
}

// createCampaignRequest is the create-draft request body.
type createCampaignRequest struct {
	CreatorAddress  string   `json:"creator_address"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Story           string   `json:"story"`
	Category        string   `json:"category"`
	Tags            []string `json:"tags"`
	CoverImage      string   `json:"cover_image"`
	Gallery         []string `json:"gallery"`
	Goal            float64  `json:"goal"`
	MinContribution float64  `json:"min_contribution"`
	DurationDays    int      `json:"duration_days"`
	Tiers           []struct {
		Title      string     `json:"title"`
		Rewards    string     `json:"rewards"`
		Amount     float64    `json:"amount"`
		MaxBackers *int       `json:"max_backers"`
		StartsAt   *time.Time `json:"starts_at"`
		EndsAt     *time.Time `json:"ends_at"`
	} `json:"tiers"`
}

// CreateCampaign creates a DRAFT campaign with its tiers.
// POST /api/campaigns
func (h *CampaignHandler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	in := service.CreateDraftInput{
		CreatorAddress:  req.CreatorAddress,
		Title:           req.Title,
		Description:     req.Description,
		Story:           req.Story,
		Category:        req.Category,
		Tags:            req.Tags,
		CoverImage:      req.CoverImage,
		Gallery:         req.Gallery,
		Goal:            req.Goal,
		MinContribution: req.MinContribution,
		DurationDays:    req.DurationDays,
	}
	for _, t := range req.Tiers {
		in.Tiers = append(in.Tiers, service.TierInput{
			Title:      t.Title,
			Rewards:    t.Rewards,
			Amount:     t.Amount,
			MaxBackers: t.MaxBackers,
			StartsAt:   t.StartsAt,
			EndsAt:     t.EndsAt,
		})
	}

	if req.Title == "" || req.Goal <= 0 || req.DurationDays <= 0 {
		writeError(w, http.StatusBadRequest, "title, goal and duration_days are required")
		return
	}

	c, err := h.campaigns.CreateDraft(r.Context(), in)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: create campaign failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create campaign")
		return
	}

	writeJSON(w, http.StatusCreated, toCampaignResponse(c))
}

// listCampaignsResponse wraps the list endpoint output with metadata.
type listCampaignsResponse struct {
	Campaigns []campaignResponse `json:"campaigns"`
	Total     int64              `json:"total"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

// ListCampaigns returns campaigns with optional status/category/creator
// filters and pagination.
// GET /api/campaigns?status=ACTIVE&category=art&limit=50&offset=0
func (h *CampaignHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.CampaignFilter{
		Status:   domain.CampaignStatus(q.Get("status")),
		Category: q.Get("category"),
		Creator:  q.Get("creator"),
	}
	opts := parseListOpts(r)

	campaigns, err := h.campaigns.List(r.Context(), filter, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list campaigns failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list campaigns")
		return
	}

	total, err := h.campaigns.Count(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: count campaigns failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to count campaigns")
		return
	}

	out := make([]campaignResponse, 0, len(campaigns))
	for _, c := range campaigns {
		out = append(out, toCampaignResponse(c))
	}

	writeJSON(w, http.StatusOK, listCampaignsResponse{
		Campaigns: out,
		Total:     total,
		Limit:     opts.Limit,
		Offset:    opts.Offset,
	})
}

// GetCampaign returns a single campaign by its off-ledger id.
// GET /api/campaigns/{id}
func (h *CampaignHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing campaign id")
		return
	}

	c, err := h.campaigns.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get campaign failed",
			slog.String("campaign_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get campaign")
		return
	}

	writeJSON(w, http.StatusOK, toCampaignResponse(c))
}

// GetCampaignByLedgerID returns a campaign by its escrow campaign id.
// GET /api/campaigns/by-ledger-id/{id}
func (h *CampaignHandler) GetCampaignByLedgerID(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	ledgerID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ledger campaign id")
		return
	}

	c, err := h.campaigns.GetByLedgerID(r.Context(), ledgerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get campaign by ledger id failed",
			slog.Int64("ledger_campaign_id", ledgerID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get campaign")
		return
	}

	writeJSON(w, http.StatusOK, toCampaignResponse(c))
}

// deployCampaignRequest is the deploy-bind request body.
type deployCampaignRequest struct {
	LedgerCampaignID int64  `json:"ledger_campaign_id"`
	TxRef            string `json:"tx_ref"`
}

// DeployCampaign binds a freshly deployed escrow campaign to its draft.
// POST /api/campaigns/{id}/deploy
func (h *CampaignHandler) DeployCampaign(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing campaign id")
		return
	}

	var req deployCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.LedgerCampaignID < 0 || req.TxRef == "" {
		writeError(w, http.StatusBadRequest, "ledger_campaign_id and tx_ref are required")
		return
	}

	c, err := h.deploys.BindDeployment(r.Context(), id, req.LedgerCampaignID, req.TxRef)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		if errors.Is(err, domain.ErrAlreadyBound) {
			writeError(w, http.StatusConflict, "campaign already bound to a different ledger campaign")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: deploy campaign failed",
			slog.String("campaign_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to bind deployment")
		return
	}

	writeJSON(w, http.StatusOK, toCampaignResponse(c))
}

// syncCampaignResponse is the on-demand reconciliation result.
type syncCampaignResponse struct {
	CampaignID string  `json:"campaign_id"`
	Updated    bool    `json:"updated"`
	Status     string  `json:"status"`
	Raised     float64 `json:"raised"`
}

// SyncCampaign reconciles one campaign against the ledger on demand.
// POST /api/campaigns/{id}/sync
func (h *CampaignHandler) SyncCampaign(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing campaign id")
		return
	}

	res, err := h.syncs.Reconcile(r.Context(), domain.CampaignRef{ID: id})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "campaign not found")
		case errors.Is(err, domain.ErrNotDeployed):
			writeError(w, http.StatusConflict, "campaign is not deployed")
		case errors.Is(err, domain.ErrChainRead):
			writeError(w, http.StatusBadGateway, "ledger read failed, retry later")
		default:
			h.logger.ErrorContext(r.Context(), "handler: sync campaign failed",
				slog.String("campaign_id", id),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to sync campaign")
		}
		return
	}

	writeJSON(w, http.StatusOK, syncCampaignResponse{
		CampaignID: id,
		Updated:    res.Updated,
		Status:     string(res.Status),
		Raised:     domain.FromAtomic(res.RaisedAmount),
	})
}

// ListTiers returns a campaign's reward tiers.
// GET /api/campaigns/{id}/tiers
func (h *CampaignHandler) ListTiers(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing campaign id")
		return
	}

	tiers, err := h.campaigns.ListTiers(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list tiers failed",
			slog.String("campaign_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list tiers")
		return
	}

	out := make([]tierResponse, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, toTierResponse(t))
	}

	writeJSON(w, http.StatusOK, map[string]any{"tiers": out})
}
