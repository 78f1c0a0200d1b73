package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
)

func TestRecordChangeAssignsSequenceAndPublishes(t *testing.T) {
	store := &fakeAuditRepo{}
	publisher := &fakePublisher{}
	svc := NewAuditService(store, publisher, zaptest.NewLogger(t))

	event, err := svc.RecordChange(context.Background(), domain.AuditEvent{
		Action: "course.update",
		Actor:  domain.Actor{Type: domain.PrincipalUser, ID: "u1"},
		Diff:   domain.NewDiff(map[string]any{"title": "old"}, map[string]any{"title": "new"}),
	})
	if err != nil {
		t.Fatalf("record change: %v", err)
	}

	if event.Seq != 1 {
		t.Fatalf("expected seq 1, got %d", event.Seq)
	}
	if event.ID == "" {
		t.Fatal("expected generated event id")
	}
	if event.Timestamp.IsZero() {
		t.Fatal("expected normalized timestamp")
	}
	if event.Outcome != domain.OutcomeSuccess {
		t.Fatalf("expected default SUCCESS outcome, got %s", event.Outcome)
	}
	if len(publisher.published) != 1 {
		t.Fatalf("expected one published event, got %d", len(publisher.published))
	}
	if publisher.published[0].Seq != 1 {
		t.Fatalf("expected publish after durable insert with seq, got %d", publisher.published[0].Seq)
	}
}

func TestRecordChangeFailureSurfacesError(t *testing.T) {
	store := &fakeAuditRepo{insertErr: errors.New("connection refused")}
	publisher := &fakePublisher{}
	svc := NewAuditService(store, publisher, zaptest.NewLogger(t))

	_, err := svc.RecordChange(context.Background(), domain.AuditEvent{Action: "course.update"})
	if !errors.Is(err, ErrAuditWriteFailed) {
		t.Fatalf("expected ErrAuditWriteFailed, got %v", err)
	}
	if len(publisher.published) != 0 {
		t.Fatal("no event should be published when the insert fails")
	}
}

func TestRecordChangeSurvivesCancelledContext(t *testing.T) {
	store := &fakeAuditRepo{}
	svc := NewAuditService(store, nil, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.RecordChange(ctx, domain.AuditEvent{Action: "cadet.update"}); err != nil {
		t.Fatalf("record change with cancelled context: %v", err)
	}
	if len(store.events) != 1 {
		t.Fatalf("expected insert despite cancellation, got %d events", len(store.events))
	}
}

func TestRecordAccessSwallowsFailures(t *testing.T) {
	store := &fakeAuditRepo{insertErr: errors.New("connection refused")}
	svc := NewAuditService(store, nil, zaptest.NewLogger(t))

	// Must not panic or surface the error.
	svc.RecordAccess(context.Background(), domain.AuditEvent{Action: "course.read"})
}

func TestAuditQueryClampsLimits(t *testing.T) {
	store := &fakeAuditRepo{}
	svc := NewAuditService(store, nil, zaptest.NewLogger(t))

	if _, err := svc.Query(context.Background(), domain.AuditFilter{}); err != nil {
		t.Fatalf("query: %v", err)
	}
	if store.lastFilter.Limit != 50 {
		t.Fatalf("expected default limit 50, got %d", store.lastFilter.Limit)
	}

	if _, err := svc.Query(context.Background(), domain.AuditFilter{Limit: 10_000, Offset: -4}); err != nil {
		t.Fatalf("query: %v", err)
	}
	if store.lastFilter.Limit != 500 {
		t.Fatalf("expected limit clamped to 500, got %d", store.lastFilter.Limit)
	}
	if store.lastFilter.Offset != 0 {
		t.Fatalf("expected negative offset normalized, got %d", store.lastFilter.Offset)
	}
}

func TestAuditQueryNewestFirst(t *testing.T) {
	store := &fakeAuditRepo{}
	svc := NewAuditService(store, nil, zaptest.NewLogger(t)).
		WithClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })

	for i := 0; i < 3; i++ {
		if _, err := svc.RecordChange(context.Background(), domain.AuditEvent{Action: "training.write"}); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	events, err := svc.Query(context.Background(), domain.AuditFilter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i-1].Seq < events[i].Seq {
			t.Fatalf("expected newest first ordering, got seqs %d before %d", events[i-1].Seq, events[i].Seq)
		}
	}
}
