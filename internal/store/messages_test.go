package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestUpdateStatusByProviderIDRefusesTerminalRegression(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	m := NewMessages(New(mock))
	mock.ExpectQuery("SELECT id, tenant_id, campaign_id, status").
		WithArgs("prov-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "tenant_id", "campaign_id", "status"}).
			AddRow("msg-1", "tenant-1", nil, "delivered"))

	_, err = m.UpdateStatusByProviderID(context.Background(), mock, "prov-1", MessageSent, "sent", "", nil)
	if err != ErrTerminalStatus {
		t.Fatalf("want ErrTerminalStatus, got %v", err)
	}
	if expErr := mock.ExpectationsWereMet(); expErr != nil {
		t.Fatalf("unmet expectations: %v", expErr)
	}
}

func TestUpdateStatusByProviderIDAppliesNonTerminalTransition(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	m := NewMessages(New(mock))
	mock.ExpectQuery("SELECT id, tenant_id, campaign_id, status").
		WithArgs("prov-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "tenant_id", "campaign_id", "status"}).
			AddRow("msg-1", "tenant-1", nil, "sent"))
	mock.ExpectExec("UPDATE messages").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	msg, err := m.UpdateStatusByProviderID(context.Background(), mock, "prov-1", MessageDelivered, "delivered", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Status != MessageDelivered {
		t.Fatalf("want delivered, got %s", msg.Status)
	}
	if expErr := mock.ExpectationsWereMet(); expErr != nil {
		t.Fatalf("unmet expectations: %v", expErr)
	}
}

func TestUpdateStatusByProviderIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	m := NewMessages(New(mock))
	mock.ExpectQuery("SELECT id, tenant_id, campaign_id, status").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = m.UpdateStatusByProviderID(context.Background(), mock, "missing", MessageSent, "sent", "", nil)
	if err != ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
