package store

import (
	"context"
	"fmt"
	"time"
)

// OptOutMethod identifies how an opt-in/opt-out action was captured.
type OptOutMethod string

const (
	OptOutMethodKeywordReply OptOutMethod = "keyword_reply"
	OptOutMethodLinkClick    OptOutMethod = "link_click"
	OptOutMethodManual       OptOutMethod = "manual"
	OptOutMethodImport       OptOutMethod = "import"
)

// OptOutLogEntry is an immutable audit record of an opt-in or opt-out action.
type OptOutLogEntry struct {
	ID              string
	TenantID        string
	ContactID       string
	Channel         string
	Address         string
	Action          string // "opt_in" or "opt_out"
	Method          OptOutMethod
	SourceMessageID *string
	CreatedAt       time.Time
}

// OptOutLog is the append-only store for opt-in/opt-out audit rows.
type OptOutLog struct {
	*Store
}

// NewOptOutLog wraps a Store for opt-out log operations.
func NewOptOutLog(s *Store) *OptOutLog { return &OptOutLog{Store: s} }

// Append inserts a new audit row. These rows are never updated or deleted.
func (o *OptOutLog) Append(ctx context.Context, q Querier, entry OptOutLogEntry) error {
	const query = `
		INSERT INTO opt_out_log (
			tenant_id, contact_id, channel, address, action, method, source_message_id
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`
	if _, err := q.Exec(ctx, query, entry.TenantID, entry.ContactID, entry.Channel, entry.Address,
		entry.Action, string(entry.Method), entry.SourceMessageID); err != nil {
		return fmt.Errorf("store: append opt-out log: %w", err)
	}
	return nil
}
