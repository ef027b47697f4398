package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wolfman30/cannasend/internal/store"
)

// processedNamespace seeds the deterministic UUID derived from a
// provider+event-id pair, so the same webhook replayed any number of times
// maps to the same processed_events row.
var processedNamespace = uuid.MustParse("5e3f9b1a-7c2d-4e0a-9f61-0b6c7a2d9e44")

// ProcessedStore records which webhook events have already been applied, so
// a carrier's at-least-once redelivery of the same event is a no-op after
// the first. Grounded on the teacher's events.ProcessedStore.
type ProcessedStore struct {
	pool store.PgxPool
}

// NewProcessedStore wraps a pool for idempotency bookkeeping.
func NewProcessedStore(pool store.PgxPool) *ProcessedStore {
	return &ProcessedStore{pool: pool}
}

// AlreadyProcessed reports whether provider+eventID has been marked before.
func (s *ProcessedStore) AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	key, err := eventKey(provider, eventID)
	if err != nil {
		return false, err
	}
	const query = `SELECT 1 FROM processed_events WHERE event_id = $1`
	var exists int
	if err := s.pool.QueryRow(ctx, query, key).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("reconcile: check processed event: %w", err)
	}
	return true, nil
}

// MarkProcessed records provider+eventID as handled, returning false if it
// was already present (a racing duplicate delivery lost the insert).
func (s *ProcessedStore) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	key, err := eventKey(provider, eventID)
	if err != nil {
		return false, err
	}
	const query = `
		INSERT INTO processed_events (event_id, provider, external_event_id)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`
	tag, err := s.pool.Exec(ctx, query, key, provider, eventID)
	if err != nil {
		return false, fmt.Errorf("reconcile: mark processed event: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func eventKey(provider, eventID string) (uuid.UUID, error) {
	provider = strings.TrimSpace(provider)
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return uuid.Nil, fmt.Errorf("reconcile: event id required")
	}
	return uuid.NewSHA1(processedNamespace, []byte(provider+":"+eventID)), nil
}
