package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// MessageStatus is a message's delivery lifecycle state.
type MessageStatus string

const (
	MessageQueued    MessageStatus = "queued"
	MessageSending   MessageStatus = "sending"
	MessageSent      MessageStatus = "sent"
	MessageDelivered MessageStatus = "delivered"
	MessageFailed    MessageStatus = "failed"
	MessageBounced   MessageStatus = "bounced"
	MessageComplained MessageStatus = "complained"
	MessageOpened    MessageStatus = "opened"
	MessageClicked   MessageStatus = "clicked"
)

// terminalStatuses are statuses a message row must never transition out of.
var terminalStatuses = map[MessageStatus]bool{
	MessageDelivered:  true,
	MessageFailed:     true,
	MessageBounced:    true,
	MessageComplained: true,
}

// Message is a per-send (or per-receive) audit row.
type Message struct {
	ID                  string
	TenantID            string
	ContactID           string
	CampaignID          *string
	Kind                string
	Direction           string
	To                  string
	From                string
	Content             string
	Segments            int
	ProviderMessageID   string
	CostCents           int
	Status              MessageStatus
	ProviderStatusText  string
	Error               string
	ConsentVerifiedAt   *time.Time
	QuietHoursCheckedAt *time.Time
	CreatedAt           time.Time
}

// Messages is the tenant-scoped store for message rows.
type Messages struct {
	*Store
}

// NewMessages wraps a Store for message operations.
func NewMessages(s *Store) *Messages { return &Messages{Store: s} }

// InsertOutbound records a queued outbound send with its consent and
// quiet-hours audit timestamps set to dispatch time.
func (m *Messages) InsertOutbound(ctx context.Context, q Querier, msg Message, dispatchedAt time.Time) (string, error) {
	const query = `
		INSERT INTO messages (
			tenant_id, contact_id, campaign_id, kind, direction, to_address, from_address,
			content, status, consent_verified_at, quiet_hours_checked_at
		)
		VALUES ($1,$2,$3,$4,'outbound',$5,$6,$7,$8,$9,$9)
		RETURNING id
	`
	var id string
	err := q.QueryRow(ctx, query, msg.TenantID, nullableString(msg.ContactID), msg.CampaignID, msg.Kind,
		msg.To, msg.From, msg.Content, string(MessageQueued), dispatchedAt).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("store: insert outbound message: %w", err)
	}
	return id, nil
}

// InsertInbound records an inbound message. Inbound rows bypass the consent
// and quiet-hours audit timestamps since those checks don't apply to
// received messages.
func (m *Messages) InsertInbound(ctx context.Context, q Querier, tenantID, contactID, to, from, content, providerMessageID string) (string, error) {
	const query = `
		INSERT INTO messages (
			tenant_id, contact_id, kind, direction, to_address, from_address,
			content, status, provider_message_id
		)
		VALUES ($1,$2,'sms','inbound',$3,$4,$5,'delivered',$6)
		RETURNING id
	`
	var id string
	err := q.QueryRow(ctx, query, tenantID, nullableString(contactID), to, from, content, nullableString(providerMessageID)).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("store: insert inbound message: %w", err)
	}
	return id, nil
}

// MarkSent records a successful dispatch with the provider's message id,
// segment count, and cost_cents (segments * the configured per-segment
// rate; 0 when cost tracking is unconfigured).
func (m *Messages) MarkSent(ctx context.Context, q Querier, tenantID, messageID, providerMessageID string, segments, costCents int) error {
	const query = `
		UPDATE messages
		SET status = 'sent', provider_message_id = $3, segments = $4, cost_cents = $5
		WHERE tenant_id = $1 AND id = $2
	`
	if _, err := q.Exec(ctx, query, tenantID, messageID, providerMessageID, segments, costCents); err != nil {
		return fmt.Errorf("store: mark message sent: %w", err)
	}
	return nil
}

// MarkFailed records a dispatch failure.
func (m *Messages) MarkFailed(ctx context.Context, q Querier, tenantID, messageID, errText string) error {
	const query = `
		UPDATE messages
		SET status = 'failed', error = $3
		WHERE tenant_id = $1 AND id = $2
	`
	if _, err := q.Exec(ctx, query, tenantID, messageID, errText); err != nil {
		return fmt.Errorf("store: mark message failed: %w", err)
	}
	return nil
}

// UpdateStatusByProviderID maps a provider webhook status onto the matching
// message row. This lookup is intentionally cross-tenant: provider message
// ids are globally unique once assigned, so there is no tenant to scope by
// until after the row is found. It refuses to move a row that is already in
// a terminal status, per ErrTerminalStatus.
func (m *Messages) UpdateStatusByProviderID(ctx context.Context, q Querier, providerMessageID string, status MessageStatus, providerStatusText, errText string, deliveredAt *time.Time) (Message, error) {
	const selectQuery = `
		SELECT id, tenant_id, campaign_id, status
		FROM messages
		WHERE provider_message_id = $1
	`
	var current Message
	var campaignID *string
	var currentStatus string
	if err := q.QueryRow(ctx, selectQuery, providerMessageID).Scan(&current.ID, &current.TenantID, &campaignID, &currentStatus); err != nil {
		if err == pgx.ErrNoRows {
			return Message{}, ErrNotFound
		}
		return Message{}, fmt.Errorf("store: find message by provider id: %w", err)
	}
	current.CampaignID = campaignID
	current.Status = MessageStatus(currentStatus)

	if terminalStatuses[current.Status] {
		return current, ErrTerminalStatus
	}

	const updateQuery = `
		UPDATE messages
		SET status = $2,
			provider_status_text = $3,
			error = COALESCE(NULLIF($4, ''), error),
			delivered_at = COALESCE($5, delivered_at)
		WHERE id = $1
	`
	if _, err := q.Exec(ctx, updateQuery, current.ID, string(status), providerStatusText, errText, deliveredAt); err != nil {
		return Message{}, fmt.Errorf("store: update message status: %w", err)
	}
	current.Status = status
	return current, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
