// Package campaign expands a campaign's targeting filter into individual
// SMS sends, enqueued through the same DEFER-aware path as a single send.
package campaign

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wolfman30/cannasend/internal/queue"
	"github.com/wolfman30/cannasend/internal/store"
)

// ErrEmailNotImplemented is returned when a campaign's kind touches email.
// The data model carries the email fields per the spec's data model, but no
// email send path exists in this core.
var ErrEmailNotImplemented = errors.New("campaign: email send path not implemented")

// Enqueuer is the subset of *queue.Queue the expander needs, so tests don't
// require a live Redis client.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind queue.Kind, payload any, opts queue.EnqueueOptions) (string, error)
}

// Expander resolves a campaign's recipient set and enqueues one SMS job per
// recipient.
type Expander struct {
	store     *store.Store
	campaigns *store.Campaigns
	queue     Enqueuer
}

// NewExpander wires a Store, Campaigns store, and job enqueuer.
func NewExpander(st *store.Store, campaigns *store.Campaigns, q Enqueuer) *Expander {
	return &Expander{store: st, campaigns: campaigns, queue: q}
}

// Result summarizes one expansion run.
type Result struct {
	TotalRecipients int
	JobIDs          []string
}

// Expand loads campaign, stamps it sending with its resolved recipient
// count, enqueues one DEFER-aware SMS job per recipient, then stamps it
// sent. Individual send outcomes update counters asynchronously via the
// inbound reconciler, not here.
func (e *Expander) Expand(ctx context.Context, tenantID, campaignID string) (Result, error) {
	campaign, err := e.campaigns.GetByID(ctx, e.store.Pool(), tenantID, campaignID)
	if err != nil {
		return Result{}, fmt.Errorf("campaign: load campaign: %w", err)
	}
	if campaign.Kind == store.CampaignKindEmail || campaign.Kind == store.CampaignKindBoth {
		return Result{}, ErrEmailNotImplemented
	}

	var recipients []string
	err = e.store.InTenantTx(ctx, tenantID, func(ctx context.Context, tx pgx.Tx) error {
		var resolveErr error
		recipients, resolveErr = e.campaigns.ResolveRecipients(ctx, tx, tenantID, campaign)
		if resolveErr != nil {
			return resolveErr
		}
		return e.campaigns.StartSending(ctx, tx, tenantID, campaignID, len(recipients))
	})
	if err != nil {
		return Result{}, fmt.Errorf("campaign: stamp sending: %w", err)
	}

	jobIDs := make([]string, 0, len(recipients))
	for _, contactID := range recipients {
		jobID, err := e.queue.Enqueue(ctx, queue.KindSMS, queue.SMSJobPayload{
			TenantID:   tenantID,
			ContactID:  contactID,
			CampaignID: campaignID,
			Content:    campaign.Content,
		}, queue.DefaultEnqueueOptions())
		if err != nil {
			return Result{}, fmt.Errorf("campaign: enqueue recipient %s: %w", contactID, err)
		}
		jobIDs = append(jobIDs, jobID)
	}

	if err := e.store.InTenantTx(ctx, tenantID, func(ctx context.Context, tx pgx.Tx) error {
		return e.campaigns.FinishSending(ctx, tx, tenantID, campaignID)
	}); err != nil {
		return Result{}, fmt.Errorf("campaign: stamp sent: %w", err)
	}

	return Result{TotalRecipients: len(recipients), JobIDs: jobIDs}, nil
}
