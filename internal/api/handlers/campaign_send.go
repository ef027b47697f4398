package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/cannasend/internal/campaign"
	"github.com/wolfman30/cannasend/pkg/logging"
)

// Expander is the subset of *campaign.Expander the campaign send handler
// needs.
type Expander interface {
	Expand(ctx context.Context, tenantID, campaignID string) (campaign.Result, error)
}

// CampaignSendHandler serves POST /api/campaigns/{id}/send.
type CampaignSendHandler struct {
	expander Expander
	logger   *logging.Logger
}

// NewCampaignSendHandler wires a campaign expander into one handler.
func NewCampaignSendHandler(expander Expander, logger *logging.Logger) *CampaignSendHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &CampaignSendHandler{expander: expander, logger: logger}
}

// ServeHTTP expands the campaign named by the {id} URL param into per
// recipient SMS jobs. The response reports the first enqueued job id; full
// per recipient outcomes surface later through the reconciler and the
// campaign's counters, not through this response.
func (h *CampaignSendHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tenantID := r.Header.Get("X-Tenant-Id")
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "missing X-Tenant-Id header")
		return
	}
	campaignID := chi.URLParam(r, "id")
	if campaignID == "" {
		writeError(w, http.StatusBadRequest, "missing campaign id")
		return
	}

	result, err := h.expander.Expand(r.Context(), tenantID, campaignID)
	if err != nil {
		if errors.Is(err, campaign.ErrEmailNotImplemented) {
			writeError(w, http.StatusUnprocessableEntity, "campaign kind has no send path")
			return
		}
		h.logger.Error("campaign send: expand failed", "error", err, "campaign_id", campaignID)
		writeError(w, http.StatusInternalServerError, "failed to expand campaign")
		return
	}

	var jobID string
	if len(result.JobIDs) > 0 {
		jobID = result.JobIDs[0]
	}
	writeJSON(w, http.StatusOK, sendResponse{Success: true, JobID: jobID})
}
