package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestInTenantTxSetsSessionVarAndCommits(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	s := New(mock)
	mock.ExpectBegin()
	mock.ExpectExec("SELECT set_config").
		WithArgs("tenant-1").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec("UPDATE contacts").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err = s.InTenantTx(context.Background(), "tenant-1", func(ctx context.Context, tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, "UPDATE contacts SET sms_consent = TRUE WHERE id = $1", "contact-1")
		return execErr
	})
	if err != nil {
		t.Fatalf("InTenantTx: %v", err)
	}
	if expErr := mock.ExpectationsWereMet(); expErr != nil {
		t.Fatalf("unmet expectations: %v", expErr)
	}
}

func TestInTenantTxRollsBackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	s := New(mock)
	mock.ExpectBegin()
	mock.ExpectExec("SELECT set_config").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectRollback()

	boom := context.Canceled
	err = s.InTenantTx(context.Background(), "tenant-1", func(ctx context.Context, tx pgx.Tx) error {
		return boom
	})
	if err != boom {
		t.Fatalf("expected boom error passthrough, got %v", err)
	}
	if expErr := mock.ExpectationsWereMet(); expErr != nil {
		t.Fatalf("unmet expectations: %v", expErr)
	}
}

func TestInTenantTxRejectsEmptyTenant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	s := New(mock)
	err = s.InTenantTx(context.Background(), "", func(ctx context.Context, tx pgx.Tx) error {
		t.Fatalf("fn should not run for empty tenant id")
		return nil
	})
	if err == nil {
		t.Fatalf("expected error for empty tenant id")
	}
}
