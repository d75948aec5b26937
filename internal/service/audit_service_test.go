package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/orggate/orggate/internal/adapter/outbound/audit"
)

func TestAuditServiceFlushesBatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &captureStore{}
	s := NewAuditService(store, discardLogger(), WithAuditBatchSize(2), WithAuditFlushInterval(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	s.Record(audit.Record{ID: "a", Tool: "org_list", Outcome: "ok"})
	s.Record(audit.Record{ID: "b", Tool: "data_query", Outcome: "ok"})
	s.Stop()

	recs := store.all()
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
}

func TestAuditServiceStopFlushesPartialBatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &captureStore{}
	s := NewAuditService(store, discardLogger(), WithAuditBatchSize(100), WithAuditFlushInterval(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	s.Record(audit.Record{ID: "a", Tool: "org_list", Outcome: "ok"})
	s.Stop()

	if recs := store.all(); len(recs) != 1 {
		t.Fatalf("records = %d, want the partial batch flushed on stop", len(recs))
	}
}

func TestAuditServiceDropsWhenFull(t *testing.T) {
	store := &captureStore{}
	s := NewAuditService(store, discardLogger(), WithAuditBufferSize(1))
	// Worker deliberately not started: the buffer stays full.

	s.Record(audit.Record{ID: "a"})
	s.Record(audit.Record{ID: "b"})

	if got := s.Drops(); got != 1 {
		t.Errorf("Drops() = %d, want 1", got)
	}
	close(s.records)
}

func TestAuditServiceSurvivesStoreErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewAuditService(failingStore{}, discardLogger(), WithAuditBatchSize(1))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	for i := 0; i < 5; i++ {
		s.Record(audit.Record{ID: fmt.Sprintf("r%d", i)})
	}
	s.Stop()

	if got := s.Drops(); got != 0 {
		t.Errorf("Drops() = %d, store errors are not drops", got)
	}
}

type failingStore struct{}

func (failingStore) Write(context.Context, []audit.Record) error {
	return errors.New("disk full")
}
