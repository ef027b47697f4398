package campaign

import (
	"context"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/wolfman30/cannasend/internal/queue"
	"github.com/wolfman30/cannasend/internal/store"
)

type fakeEnqueuer struct {
	jobs []queue.SMSJobPayload
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, kind queue.Kind, payload any, opts queue.EnqueueOptions) (string, error) {
	sms, ok := payload.(queue.SMSJobPayload)
	if ok {
		f.jobs = append(f.jobs, sms)
	}
	return "job-" + sms.ContactID, nil
}

func TestExpandEnqueuesOneJobPerRecipient(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT id, tenant_id, kind, content").
		WithArgs("tenant-1", "camp-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "tenant_id", "kind", "content", "target_locations", "target_tags", "status",
			"total_recipients", "sent_count", "delivered_count", "failed_count",
			"opened_count", "clicked_count", "opted_out_count", "started_at", "completed_at",
		}).AddRow("camp-1", "tenant-1", "sms", "hello", []string{}, []string{"vip"}, "draft",
			0, 0, 0, 0, 0, 0, 0, nil, nil))

	mock.ExpectBegin()
	mock.ExpectExec("SELECT set_config").WillReturnResult(pgxmock.NewResult("SELECT", 0))
	mock.ExpectQuery("SELECT id FROM contacts").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("contact-1").AddRow("contact-2"))
	mock.ExpectExec("UPDATE campaigns SET status = 'sending'").
		WithArgs("tenant-1", "camp-1", 2).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT set_config").WillReturnResult(pgxmock.NewResult("SELECT", 0))
	mock.ExpectExec("UPDATE campaigns SET status = 'sent'").
		WithArgs("tenant-1", "camp-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	st := store.New(mock)
	enq := &fakeEnqueuer{}
	expander := NewExpander(st, store.NewCampaigns(st), enq)

	result, err := expander.Expand(context.Background(), "tenant-1", "camp-1")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if result.TotalRecipients != 2 || len(result.JobIDs) != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(enq.jobs) != 2 {
		t.Fatalf("expected 2 enqueued jobs, got %d", len(enq.jobs))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestExpandRejectsEmailKind(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT id, tenant_id, kind, content").
		WithArgs("tenant-1", "camp-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "tenant_id", "kind", "content", "target_locations", "target_tags", "status",
			"total_recipients", "sent_count", "delivered_count", "failed_count",
			"opened_count", "clicked_count", "opted_out_count", "started_at", "completed_at",
		}).AddRow("camp-1", "tenant-1", "email", "hello", []string{}, []string{}, "draft",
			0, 0, 0, 0, 0, 0, 0, nil, nil))

	st := store.New(mock)
	expander := NewExpander(st, store.NewCampaigns(st), &fakeEnqueuer{})

	if _, err := expander.Expand(context.Background(), "tenant-1", "camp-1"); err != ErrEmailNotImplemented {
		t.Fatalf("expected ErrEmailNotImplemented, got %v", err)
	}
}
