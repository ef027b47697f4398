package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// CampaignKind is the channel set a campaign targets.
type CampaignKind string

const (
	CampaignKindSMS   CampaignKind = "sms"
	CampaignKindEmail CampaignKind = "email"
	CampaignKindBoth  CampaignKind = "both"
)

// CampaignStatus is a campaign's lifecycle state.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSending   CampaignStatus = "sending"
	CampaignSent      CampaignStatus = "sent"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCancelled CampaignStatus = "cancelled"
)

// Campaign is a tenant-scoped outbound blast definition.
type Campaign struct {
	ID              string
	TenantID        string
	Kind            CampaignKind
	Content         string
	TargetLocations []string
	TargetTags      []string
	Status          CampaignStatus
	TotalRecipients int
	SentCount       int
	DeliveredCount  int
	FailedCount     int
	OpenedCount     int
	ClickedCount    int
	OptedOutCount   int
	StartedAt       *time.Time
	CompletedAt     *time.Time
}

// Campaigns is the tenant-scoped store for campaign rows.
type Campaigns struct {
	*Store
}

// NewCampaigns wraps a Store for campaign operations.
func NewCampaigns(s *Store) *Campaigns { return &Campaigns{Store: s} }

// GetByID loads a campaign scoped to tenantID.
func (c *Campaigns) GetByID(ctx context.Context, q Querier, tenantID, campaignID string) (Campaign, error) {
	const query = `
		SELECT id, tenant_id, kind, content, target_locations, target_tags, status,
			total_recipients, sent_count, delivered_count, failed_count,
			opened_count, clicked_count, opted_out_count, started_at, completed_at
		FROM campaigns
		WHERE tenant_id = $1 AND id = $2
	`
	var rec Campaign
	var kind, status string
	if err := q.QueryRow(ctx, query, tenantID, campaignID).Scan(
		&rec.ID, &rec.TenantID, &kind, &rec.Content, &rec.TargetLocations, &rec.TargetTags, &status,
		&rec.TotalRecipients, &rec.SentCount, &rec.DeliveredCount, &rec.FailedCount,
		&rec.OpenedCount, &rec.ClickedCount, &rec.OptedOutCount, &rec.StartedAt, &rec.CompletedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return Campaign{}, ErrNotFound
		}
		return Campaign{}, fmt.Errorf("store: get campaign: %w", err)
	}
	rec.Kind = CampaignKind(kind)
	rec.Status = CampaignStatus(status)
	return rec, nil
}

// StartSending stamps a campaign status=sending with its resolved recipient
// count, in one statement so no reader observes a half-updated row.
func (c *Campaigns) StartSending(ctx context.Context, q Querier, tenantID, campaignID string, totalRecipients int) error {
	const query = `
		UPDATE campaigns
		SET status = 'sending', total_recipients = $3, started_at = now()
		WHERE tenant_id = $1 AND id = $2
	`
	if _, err := q.Exec(ctx, query, tenantID, campaignID, totalRecipients); err != nil {
		return fmt.Errorf("store: start sending campaign: %w", err)
	}
	return nil
}

// FinishSending stamps a campaign status=sent.
func (c *Campaigns) FinishSending(ctx context.Context, q Querier, tenantID, campaignID string) error {
	const query = `
		UPDATE campaigns
		SET status = 'sent', completed_at = now()
		WHERE tenant_id = $1 AND id = $2
	`
	if _, err := q.Exec(ctx, query, tenantID, campaignID); err != nil {
		return fmt.Errorf("store: finish sending campaign: %w", err)
	}
	return nil
}

// campaignCounterColumn maps a message status to the campaign counter it
// increments. Not every status has one.
func campaignCounterColumn(status string) (string, bool) {
	switch status {
	case "sent":
		return "sent_count", true
	case "delivered":
		return "delivered_count", true
	case "failed", "bounced":
		return "failed_count", true
	case "opened":
		return "opened_count", true
	case "clicked":
		return "clicked_count", true
	default:
		return "", false
	}
}

// IncrementCounter atomically bumps the counter column for status by one.
// This is a single UPDATE ... SET col = col + 1, avoiding the read-modify-
// write race a SELECT-then-UPDATE pair would have under concurrent workers.
func (c *Campaigns) IncrementCounter(ctx context.Context, q Querier, campaignID, status string) error {
	column, ok := campaignCounterColumn(status)
	if !ok {
		return nil
	}
	query := fmt.Sprintf(`UPDATE campaigns SET %s = %s + 1 WHERE id = $1`, column, column)
	if _, err := q.Exec(ctx, query, campaignID); err != nil {
		return fmt.Errorf("store: increment campaign counter: %w", err)
	}
	return nil
}

// ResolveRecipients runs the targeting query described for campaign
// expansion: age-verified contacts, consented and not opted out for the
// campaign's kind, intersected with target locations and tags when those
// sets are nonempty.
func (c *Campaigns) ResolveRecipients(ctx context.Context, q Querier, tenantID string, campaign Campaign) ([]string, error) {
	query := `
		SELECT id FROM contacts
		WHERE tenant_id = $1 AND age_verified = TRUE
	`
	args := []any{tenantID}

	if campaign.Kind == CampaignKindSMS || campaign.Kind == CampaignKindBoth {
		query += " AND sms_consent = TRUE AND sms_opted_out = FALSE"
	}
	if campaign.Kind == CampaignKindEmail || campaign.Kind == CampaignKindBoth {
		query += " AND email_consent = TRUE"
	}
	if len(campaign.TargetLocations) > 0 {
		args = append(args, campaign.TargetLocations)
		query += fmt.Sprintf(" AND primary_location_id = ANY($%d)", len(args))
	}
	if len(campaign.TargetTags) > 0 {
		args = append(args, campaign.TargetTags)
		query += fmt.Sprintf(" AND tags && $%d", len(args))
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: resolve recipients: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan recipient: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
