package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wolfman30/cannasend/internal/compliance"
	"github.com/wolfman30/cannasend/internal/provider"
	"github.com/wolfman30/cannasend/internal/store"
)

// SMSJobPayload is the durable payload carried by a KindSMS job.
type SMSJobPayload struct {
	TenantID   string `json:"tenant_id"`
	ContactID  string `json:"contact_id"`
	LocationID string `json:"location_id,omitempty"`
	Content    string `json:"content"`
	CampaignID string `json:"campaign_id,omitempty"`
}

// EnqueueSMS enqueues a single SMS job.
func EnqueueSMS(ctx context.Context, q *Queue, payload SMSJobPayload, opts EnqueueOptions) (string, error) {
	return q.Enqueue(ctx, KindSMS, payload, opts)
}

// SMSWorkerConfig tunes the worker's provider-facing behavior.
type SMSWorkerConfig struct {
	// MessagingProfileID is used when a job's location has no assigned
	// sending phone number.
	MessagingProfileID string
	// CostPerSegmentCents, when nonzero, populates messages.cost_cents as
	// segments * CostPerSegmentCents at the point status becomes sent.
	CostPerSegmentCents int
}

// SMSWorker implements HandlerFunc for KindSMS jobs: it re-runs the
// compliance gate at dispatch time (closing the race between enqueue-time
// and dispatch-time state changes), then on ALLOW records and dispatches
// the message through the provider adapter.
type SMSWorker struct {
	store     *store.Store
	messages  *store.Messages
	locations *store.Locations
	gate      *compliance.Gate
	adapter   provider.Adapter
	cfg       SMSWorkerConfig
}

// NewSMSWorker wires a gate, store, and provider adapter into one handler.
func NewSMSWorker(st *store.Store, messages *store.Messages, locations *store.Locations, gate *compliance.Gate, adapter provider.Adapter, cfg SMSWorkerConfig) *SMSWorker {
	return &SMSWorker{store: st, messages: messages, locations: locations, gate: gate, adapter: adapter, cfg: cfg}
}

// Handle is a HandlerFunc.
func (w *SMSWorker) Handle(ctx context.Context, job Job) (HandlerResult, error) {
	var payload SMSJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return HandlerResult{}, fmt.Errorf("sms worker: decode payload: %w", err)
	}

	decision, err := w.gate.Evaluate(ctx, payload.TenantID, payload.ContactID, compliance.KindSMS)
	if err != nil {
		return HandlerResult{}, fmt.Errorf("sms worker: re-evaluate compliance: %w", err)
	}

	switch decision.Decision {
	case compliance.Block:
		return HandlerResult{Blocked: true, Reasons: decision.Reasons}, nil
	case compliance.Defer:
		return HandlerResult{DeferDelayMS: deferDelayMS(decision)}, nil
	}

	from, profile := w.resolveSender(ctx, payload)
	to := decision.Contact.Phone

	var messageID string
	err = w.store.InTenantTx(ctx, payload.TenantID, func(ctx context.Context, tx pgx.Tx) error {
		var insertErr error
		messageID, insertErr = w.messages.InsertOutbound(ctx, tx, store.Message{
			TenantID:   payload.TenantID,
			ContactID:  payload.ContactID,
			CampaignID: optionalString(payload.CampaignID),
			Kind:       "sms",
			To:         to,
			From:       from,
			Content:    payload.Content,
		}, time.Now())
		return insertErr
	})
	if err != nil {
		return HandlerResult{}, fmt.Errorf("sms worker: insert outbound message: %w", err)
	}

	sendResult, sendErr := w.adapter.Send(ctx, provider.SendRequest{
		From:               from,
		MessagingProfileID: profile,
		To:                 to,
		Body:               payload.Content,
	})
	if sendErr != nil {
		if markErr := w.store.InTenantTx(ctx, payload.TenantID, func(ctx context.Context, tx pgx.Tx) error {
			return w.messages.MarkFailed(ctx, tx, payload.TenantID, messageID, sendErr.Error())
		}); markErr != nil {
			return HandlerResult{}, fmt.Errorf("sms worker: mark message failed: %w", markErr)
		}
		return HandlerResult{}, fmt.Errorf("sms worker: provider send: %w", sendErr)
	}

	costCents := sendResult.Segments * w.cfg.CostPerSegmentCents
	if err := w.store.InTenantTx(ctx, payload.TenantID, func(ctx context.Context, tx pgx.Tx) error {
		return w.messages.MarkSent(ctx, tx, payload.TenantID, messageID, sendResult.ProviderMessageID, sendResult.Segments, costCents)
	}); err != nil {
		return HandlerResult{}, fmt.Errorf("sms worker: mark message sent: %w", err)
	}

	return HandlerResult{}, nil
}

func (w *SMSWorker) resolveSender(ctx context.Context, payload SMSJobPayload) (from, profile string) {
	if payload.LocationID != "" && w.locations != nil {
		loc, err := w.locations.GetByID(ctx, w.locations.Pool(), payload.TenantID, payload.LocationID)
		if err == nil && loc.SMSPhoneNumber != "" {
			return loc.SMSPhoneNumber, ""
		}
	}
	return "", w.cfg.MessagingProfileID
}

func deferDelayMS(decision compliance.EvaluateResult) int64 {
	if decision.RetryAfter == nil {
		return DefaultEnqueueOptions().Backoff.BaseMS
	}
	if ms := time.Until(*decision.RetryAfter).Milliseconds(); ms > 0 {
		return ms
	}
	return 1
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
