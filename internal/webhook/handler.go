package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wolfman30/cannasend/internal/observability/metrics"
	"github.com/wolfman30/cannasend/internal/reconcile"
	"github.com/wolfman30/cannasend/pkg/logging"
)

const providerName = "telnyx"

// processedTracker is the subset of *reconcile.ProcessedStore the handler
// needs, so tests can fake it without a database.
type processedTracker interface {
	AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

// eventReconciler is the subset of *reconcile.Reconciler the handler needs.
type eventReconciler interface {
	OnStatus(ctx context.Context, evt reconcile.StatusEvent) error
	OnInbound(ctx context.Context, evt reconcile.InboundEvent) (reconcile.InboundResult, error)
}

// Handler verifies inbound carrier webhook events, acknowledges them, and
// dispatches them to the reconciler asynchronously. Applying the event and
// marking it processed happen after the 200 has already been written, and
// the event is marked processed only after it was applied, so if the carrier
// delivers an event again after a crash between the two, the dedup check
// lets it through and it is applied again rather than skipped.
type Handler struct {
	verifier   *SignatureVerifier
	processed  processedTracker
	reconciler eventReconciler
	metrics    *metrics.SendMetrics
	logger     *logging.Logger
}

// NewHandler wires the collaborators a webhook dispatch needs.
func NewHandler(verifier *SignatureVerifier, processed processedTracker, reconciler eventReconciler, m *metrics.SendMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{verifier: verifier, processed: processed, reconciler: reconciler, metrics: m, logger: logger}
}

type eventEnvelope struct {
	Data struct {
		ID        string          `json:"id"`
		EventType string          `json:"event_type"`
		Payload   json.RawMessage `json:"payload"`
	} `json:"data"`
}

type messagePayload struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	From struct {
		PhoneNumber string `json:"phone_number"`
	} `json:"from"`
	To []struct {
		PhoneNumber string `json:"phone_number"`
		Status      string `json:"status"`
	} `json:"to"`
	Errors []struct {
		Code   string `json:"code"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func (p messagePayload) fromNumber() string {
	return p.From.PhoneNumber
}

func (p messagePayload) toNumber() string {
	if len(p.To) > 0 {
		return p.To[0].PhoneNumber
	}
	return ""
}

// toStatus is the delivery status of the first (and for SMS, only)
// recipient, carried at to[0].status per the carrier's outbound event shape.
func (p messagePayload) toStatus() string {
	if len(p.To) > 0 {
		return p.To[0].Status
	}
	return ""
}

func (p messagePayload) errorText() string {
	if len(p.Errors) == 0 {
		return ""
	}
	e := p.Errors[0]
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

// processTimeout bounds the detached goroutine ServeHTTP hands processing
// off to, so a stalled downstream call can't leak forever.
const processTimeout = 30 * time.Second

// ServeHTTP handles a single webhook POST. It verifies the signature and
// parses just enough of the envelope to acknowledge, then acknowledges with
// 200 immediately and applies the event asynchronously on its own goroutine
// so carrier retries are never triggered by reconciliation latency.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := h.verifier.Verify(r.Header.Get("Webhook-Timestamp"), r.Header.Get("Webhook-Signature"), body); err != nil {
		h.logger.Warn("webhook: signature verification failed", "error", err)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Data.ID == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
	go h.process(envelope)
}

func (h *Handler) process(envelope eventEnvelope) {
	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()
	start := time.Now()

	alreadyProcessed, err := h.processed.AlreadyProcessed(ctx, providerName, envelope.Data.ID)
	if err != nil {
		h.logger.Error("webhook: processed lookup failed", "error", err, "event_id", envelope.Data.ID)
		return
	}
	if alreadyProcessed {
		return
	}

	var handlerErr error
	switch envelope.Data.EventType {
	case "message.received":
		handlerErr = h.dispatchInbound(ctx, envelope.Data.Payload)
	case "message.sent", "message.finalized", "message.delivered", "message.failed", "message.delivery_failed":
		handlerErr = h.dispatchStatus(ctx, envelope.Data.Payload)
	default:
		h.logger.Info("webhook: unhandled event type", "event_type", envelope.Data.EventType)
		return
	}
	if handlerErr != nil {
		h.logger.Error("webhook: event handling failed", "error", handlerErr, "event_type", envelope.Data.EventType)
		return
	}

	if h.metrics != nil {
		h.metrics.ObserveWebhookLatency(envelope.Data.EventType, time.Since(start).Seconds())
	}
	if _, err := h.processed.MarkProcessed(ctx, providerName, envelope.Data.ID); err != nil {
		h.logger.Error("webhook: failed to mark event processed", "error", err, "event_id", envelope.Data.ID)
	}
}

func (h *Handler) dispatchInbound(ctx context.Context, raw json.RawMessage) error {
	var payload messagePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("webhook: decode inbound payload: %w", err)
	}
	_, err := h.reconciler.OnInbound(ctx, reconcile.InboundEvent{
		From:              payload.fromNumber(),
		To:                payload.toNumber(),
		Text:              payload.Text,
		ProviderMessageID: payload.ID,
	})
	return err
}

func (h *Handler) dispatchStatus(ctx context.Context, raw json.RawMessage) error {
	var payload messagePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("webhook: decode status payload: %w", err)
	}
	return h.reconciler.OnStatus(ctx, reconcile.StatusEvent{
		ProviderMessageID: payload.ID,
		ProviderStatus:    payload.toStatus(),
		ErrorText:         payload.errorText(),
	})
}
