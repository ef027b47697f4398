// Package reconcile processes carrier webhooks: status transitions and
// inbound text, including STOP/START keyword opt-out/opt-in handling and
// campaign counter updates.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wolfman30/cannasend/internal/phonenumber"
	"github.com/wolfman30/cannasend/internal/provider"
	"github.com/wolfman30/cannasend/internal/store"
	"github.com/wolfman30/cannasend/pkg/logging"
)

// statusMap translates a carrier's outbound status vocabulary to the
// internal one. Unknown values pass through untranslated.
var statusMap = map[string]store.MessageStatus{
	"queued":               store.MessageQueued,
	"sending":               store.MessageSending,
	"sent":                 store.MessageSent,
	"delivered":            store.MessageDelivered,
	"delivery_failed":      store.MessageFailed,
	"delivery_unconfirmed": store.MessageSent,
}

var optOutKeywords = map[string]bool{"STOP": true, "UNSUBSCRIBE": true, "CANCEL": true, "END": true, "QUIT": true}
var optInKeywords = map[string]bool{"START": true, "YES": true, "SUBSCRIBE": true, "UNSTOP": true}

// Config tunes the reconciler's outbound confirmation replies.
type Config struct {
	OptOutReply         string
	OptInReply          string
	MessagingProfileID  string
}

// Reconciler applies inbound webhook events to tenant-scoped state.
type Reconciler struct {
	store         *store.Store
	messages      *store.Messages
	contacts      *store.Contacts
	locations     *store.Locations
	optOutLog     *store.OptOutLog
	globalOptOuts *store.GlobalOptOuts
	campaigns     *store.Campaigns
	adapter       provider.Adapter
	cfg           Config
	logger        *logging.Logger
}

// NewReconciler wires the stores and provider adapter the reconciler needs.
func NewReconciler(
	st *store.Store,
	messages *store.Messages,
	contacts *store.Contacts,
	locations *store.Locations,
	optOutLog *store.OptOutLog,
	globalOptOuts *store.GlobalOptOuts,
	campaigns *store.Campaigns,
	adapter provider.Adapter,
	cfg Config,
	logger *logging.Logger,
) *Reconciler {
	if cfg.OptOutReply == "" {
		cfg.OptOutReply = "You have been unsubscribed and will not receive further messages. Reply START to resubscribe."
	}
	if cfg.OptInReply == "" {
		cfg.OptInReply = "You're resubscribed. Reply STOP at any time to opt out."
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Reconciler{
		store:         st,
		messages:      messages,
		contacts:      contacts,
		locations:     locations,
		optOutLog:     optOutLog,
		globalOptOuts: globalOptOuts,
		campaigns:     campaigns,
		adapter:       adapter,
		cfg:           cfg,
		logger:        logger,
	}
}

// StatusEvent is a normalized carrier delivery-status callback.
type StatusEvent struct {
	ProviderMessageID string
	ProviderStatus    string
	ErrorText         string
}

// OnStatus maps a provider status onto the matching message row and, for
// campaign-linked messages, atomically bumps the matching counter. Replaying
// the same event leaves the message row as it was: the status-regression
// guard refuses to move an already-terminal row, and repeating a non-terminal
// transition simply reapplies the same status. OnStatus does not deduplicate
// events itself, so a replayed non-terminal event bumps the campaign counter
// again; the webhook Handler's processed-event check is what skips replays.
func (r *Reconciler) OnStatus(ctx context.Context, evt StatusEvent) error {
	internal, ok := statusMap[evt.ProviderStatus]
	if !ok {
		internal = store.MessageStatus(evt.ProviderStatus)
	}

	var deliveredAt *time.Time
	if internal == store.MessageDelivered {
		now := time.Now()
		deliveredAt = &now
	}

	msg, err := r.messages.UpdateStatusByProviderID(ctx, r.store.Pool(), evt.ProviderMessageID, internal, evt.ProviderStatus, evt.ErrorText, deliveredAt)
	if err != nil {
		if errors.Is(err, store.ErrTerminalStatus) {
			return nil
		}
		if errors.Is(err, store.ErrNotFound) {
			r.logger.Warn("reconcile: status callback for unknown provider message id", "provider_message_id", evt.ProviderMessageID)
			return nil
		}
		return fmt.Errorf("reconcile: update message status: %w", err)
	}

	if msg.CampaignID != nil {
		if err := r.campaigns.IncrementCounter(ctx, r.store.Pool(), *msg.CampaignID, string(internal)); err != nil {
			return fmt.Errorf("reconcile: increment campaign counter: %w", err)
		}
	}
	return nil
}

// InboundEvent is a normalized inbound message callback.
type InboundEvent struct {
	From              string
	To                string
	Text              string
	ProviderMessageID string
}

// InboundResult is what OnInbound did with the message.
type InboundResult struct {
	Action string // "received", "opted_out", "opted_in", "dropped"
}

// OnInbound resolves the owning tenant from the destination number, records
// the inbound message, and applies STOP/START keyword handling.
func (r *Reconciler) OnInbound(ctx context.Context, evt InboundEvent) (InboundResult, error) {
	from := phonenumber.Normalize(evt.From)
	to := phonenumber.Normalize(evt.To)

	location, err := r.locations.ByPhoneNumber(ctx, r.store.Pool(), to)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.logger.Warn("reconcile: inbound message to unknown destination number", "to", to)
			return InboundResult{Action: "dropped"}, nil
		}
		return InboundResult{}, fmt.Errorf("reconcile: resolve location by phone: %w", err)
	}
	tenantID := location.TenantID

	var contactID string
	contact, err := r.contacts.ByPhone(ctx, r.store.Pool(), tenantID, from)
	switch {
	case err == nil:
		contactID = contact.ID
	case errors.Is(err, store.ErrNotFound):
		contactID = ""
	default:
		return InboundResult{}, fmt.Errorf("reconcile: lookup contact by phone: %w", err)
	}

	if err := r.store.InTenantTx(ctx, tenantID, func(ctx context.Context, tx pgx.Tx) error {
		_, err := r.messages.InsertInbound(ctx, tx, tenantID, contactID, to, from, evt.Text, evt.ProviderMessageID)
		return err
	}); err != nil {
		return InboundResult{}, fmt.Errorf("reconcile: insert inbound message: %w", err)
	}

	keyword := strings.ToUpper(strings.TrimSpace(evt.Text))
	switch {
	case optOutKeywords[keyword]:
		if err := r.applyOptOut(ctx, tenantID, contactID, from); err != nil {
			return InboundResult{}, err
		}
		r.sendConfirmation(ctx, tenantID, location, contactID, from, r.cfg.OptOutReply)
		return InboundResult{Action: "opted_out"}, nil
	case optInKeywords[keyword]:
		if err := r.applyOptIn(ctx, tenantID, contactID, from); err != nil {
			return InboundResult{}, err
		}
		r.sendConfirmation(ctx, tenantID, location, contactID, from, r.cfg.OptInReply)
		return InboundResult{Action: "opted_in"}, nil
	default:
		return InboundResult{Action: "received"}, nil
	}
}

func (r *Reconciler) applyOptOut(ctx context.Context, tenantID, contactID, phone string) error {
	now := time.Now()
	return r.store.InTenantTx(ctx, tenantID, func(ctx context.Context, tx pgx.Tx) error {
		if contactID != "" {
			if err := r.contacts.SetOptOut(ctx, tx, tenantID, contactID, true, now); err != nil {
				return err
			}
		}
		if err := r.optOutLog.Append(ctx, tx, store.OptOutLogEntry{
			TenantID:  tenantID,
			ContactID: contactID,
			Channel:   "sms",
			Address:   phone,
			Action:    "opt_out",
			Method:    store.OptOutMethodKeywordReply,
		}); err != nil {
			return err
		}
		return r.globalOptOuts.Insert(ctx, tx, phone, tenantID)
	})
}

func (r *Reconciler) applyOptIn(ctx context.Context, tenantID, contactID, phone string) error {
	now := time.Now()
	return r.store.InTenantTx(ctx, tenantID, func(ctx context.Context, tx pgx.Tx) error {
		if contactID != "" {
			if err := r.contacts.SetOptOut(ctx, tx, tenantID, contactID, false, now); err != nil {
				return err
			}
			if err := r.contacts.SetConsent(ctx, tx, tenantID, contactID, store.ConsentMethodKeywordReply, now); err != nil {
				return err
			}
		}
		if err := r.optOutLog.Append(ctx, tx, store.OptOutLogEntry{
			TenantID:  tenantID,
			ContactID: contactID,
			Channel:   "sms",
			Address:   phone,
			Action:    "opt_in",
			Method:    store.OptOutMethodKeywordReply,
		}); err != nil {
			return err
		}
		return r.globalOptOuts.Delete(ctx, tx, phone)
	})
}

// sendConfirmation records and best-effort sends the opt-out/opt-in
// acknowledgement text. It bypasses the compliance gate entirely (there is
// no consent check on an unsubscribe confirmation) and is keyed on the
// phone number rather than a contact, since contactID may be empty for a
// number with no matching contact row. A send failure here is logged, not
// propagated — the opt-out/opt-in state change already committed and must
// not be rolled back because a courtesy reply failed to send.
func (r *Reconciler) sendConfirmation(ctx context.Context, tenantID string, location store.Location, contactID, to, body string) {
	if r.adapter == nil {
		return
	}
	from := location.SMSPhoneNumber
	profile := r.cfg.MessagingProfileID
	if from != "" {
		profile = ""
	}

	var messageID string
	err := r.store.InTenantTx(ctx, tenantID, func(ctx context.Context, tx pgx.Tx) error {
		var insertErr error
		messageID, insertErr = r.messages.InsertOutbound(ctx, tx, store.Message{
			TenantID:  tenantID,
			ContactID: contactID,
			Kind:      "sms",
			To:        to,
			From:      from,
			Content:   body,
		}, time.Now())
		return insertErr
	})
	if err != nil {
		r.logger.Warn("reconcile: failed to record confirmation message", "to", to, "error", err)
		return
	}

	sendResult, sendErr := r.adapter.Send(ctx, provider.SendRequest{From: from, MessagingProfileID: profile, To: to, Body: body})
	if sendErr != nil {
		r.logger.Warn("reconcile: confirmation send failed", "to", to, "error", sendErr)
		if markErr := r.store.InTenantTx(ctx, tenantID, func(ctx context.Context, tx pgx.Tx) error {
			return r.messages.MarkFailed(ctx, tx, tenantID, messageID, sendErr.Error())
		}); markErr != nil {
			r.logger.Warn("reconcile: failed to mark confirmation message failed", "error", markErr)
		}
		return
	}

	if err := r.store.InTenantTx(ctx, tenantID, func(ctx context.Context, tx pgx.Tx) error {
		return r.messages.MarkSent(ctx, tx, tenantID, messageID, sendResult.ProviderMessageID, sendResult.Segments, 0)
	}); err != nil {
		r.logger.Warn("reconcile: failed to mark confirmation message sent", "error", err)
	}
}
