// Package handlers implements the thin HTTP surface over the send pipeline.
// Handlers decode a request, delegate to the compliance gate and queue, and
// translate the result to a response. No business logic lives here.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/wolfman30/cannasend/internal/compliance"
	"github.com/wolfman30/cannasend/internal/queue"
	"github.com/wolfman30/cannasend/pkg/logging"
)

// Gate is the subset of *compliance.Gate the send handler needs.
type Gate interface {
	Evaluate(ctx context.Context, tenantID, contactID string, kind compliance.Kind) (compliance.EvaluateResult, error)
}

// Enqueuer is the subset of *queue.Queue the send handler needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind queue.Kind, payload any, opts queue.EnqueueOptions) (string, error)
}

// SendHandler serves POST /api/sms/send.
type SendHandler struct {
	gate   Gate
	queue  Enqueuer
	logger *logging.Logger
}

// NewSendHandler wires a compliance gate and queue into one handler.
func NewSendHandler(gate Gate, q Enqueuer, logger *logging.Logger) *SendHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SendHandler{gate: gate, queue: q, logger: logger}
}

type sendRequest struct {
	ContactID  string `json:"contact_id"`
	LocationID string `json:"location_id,omitempty"`
	Content    string `json:"content"`
}

type sendResponse struct {
	Success bool     `json:"success"`
	JobID   string   `json:"jobId,omitempty"`
	Blocked bool     `json:"blocked,omitempty"`
	Reasons []string `json:"reasons,omitempty"`
}

// ServeHTTP evaluates the compliance gate for contact_id, then enqueues an
// SMS job on ALLOW or DEFER. On BLOCK it returns 422 with the failing
// reasons; no message row is ever created at this layer.
func (h *SendHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tenantID := r.Header.Get("X-Tenant-Id")
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "missing X-Tenant-Id header")
		return
	}
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ContactID == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	decision, err := h.gate.Evaluate(ctx, tenantID, req.ContactID, compliance.KindSMS)
	if err != nil {
		h.logger.Error("sms send: compliance evaluation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "compliance evaluation failed")
		return
	}
	if decision.Decision == compliance.Block {
		writeJSON(w, http.StatusUnprocessableEntity, sendResponse{Success: false, Blocked: true, Reasons: decision.Reasons})
		return
	}

	opts := queue.DefaultEnqueueOptions()
	if decision.Decision == compliance.Defer && decision.RetryAfter != nil {
		if ms := time.Until(*decision.RetryAfter).Milliseconds(); ms > 0 {
			opts.DelayMS = ms
		}
	}

	jobID, err := h.queue.Enqueue(ctx, queue.KindSMS, queue.SMSJobPayload{
		TenantID:   tenantID,
		ContactID:  req.ContactID,
		LocationID: req.LocationID,
		Content:    req.Content,
	}, opts)
	if err != nil {
		h.logger.Error("sms send: enqueue failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to enqueue send")
		return
	}

	writeJSON(w, http.StatusOK, sendResponse{Success: true, JobID: jobID})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, sendResponse{Success: false, Reasons: []string{message}})
}
