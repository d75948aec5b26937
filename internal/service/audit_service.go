package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/orggate/orggate/internal/adapter/outbound/audit"
)

// AuditStore persists batches of audit records.
type AuditStore interface {
	Write(ctx context.Context, records []audit.Record) error
}

// AuditService logs tool invocations asynchronously through a buffered
// channel and background worker so the dispatch hot path never blocks on
// disk. Records are dropped, and counted, when the buffer is full.
type AuditService struct {
	store         AuditStore
	records       chan audit.Record
	wg            sync.WaitGroup
	logger        *slog.Logger
	batchSize     int
	flushInterval time.Duration
	dropCount     atomic.Int64
}

// AuditOption configures AuditService.
type AuditOption func(*AuditService)

// WithAuditBatchSize sets how many records accumulate before a write.
func WithAuditBatchSize(size int) AuditOption {
	return func(s *AuditService) { s.batchSize = size }
}

// WithAuditFlushInterval sets how often a partial batch is flushed.
func WithAuditFlushInterval(interval time.Duration) AuditOption {
	return func(s *AuditService) { s.flushInterval = interval }
}

// WithAuditBufferSize sets the channel buffer size.
func WithAuditBufferSize(size int) AuditOption {
	return func(s *AuditService) { s.records = make(chan audit.Record, size) }
}

// NewAuditService creates the service. Call Start before recording and
// Stop during shutdown to flush pending records.
func NewAuditService(store AuditStore, logger *slog.Logger, opts ...AuditOption) *AuditService {
	s := &AuditService{
		store:         store,
		records:       make(chan audit.Record, 1000),
		logger:        logger,
		batchSize:     100,
		flushInterval: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the background writer.
func (s *AuditService) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.worker(ctx)
}

// Record enqueues one record without blocking. A full buffer drops the
// record; auditing never delays a dispatch.
func (s *AuditService) Record(rec audit.Record) {
	select {
	case s.records <- rec:
	default:
		drops := s.dropCount.Add(1)
		s.logger.Warn("audit record dropped", "tool", rec.Tool, "total_drops", drops)
	}
}

// Drops returns the number of records dropped so far.
func (s *AuditService) Drops() int64 {
	return s.dropCount.Load()
}

// Stop closes the intake and waits for the final flush.
func (s *AuditService) Stop() {
	close(s.records)
	s.wg.Wait()
}

func (s *AuditService) worker(ctx context.Context) {
	defer s.wg.Done()

	batch := make([]audit.Record, 0, s.batchSize)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case rec, ok := <-s.records:
			if !ok {
				s.finalFlush(batch)
				return
			}
			batch = append(batch, rec)
			if len(batch) >= s.batchSize {
				s.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				s.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ctx.Done():
			// Drain whatever producers managed to enqueue, then write
			// with a bounded deadline.
			for {
				select {
				case rec, ok := <-s.records:
					if !ok {
						s.finalFlush(batch)
						return
					}
					batch = append(batch, rec)
				default:
					s.finalFlush(batch)
					return
				}
			}
		}
	}
}

func (s *AuditService) finalFlush(batch []audit.Record) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.flush(ctx, batch)
}

// flush errors are logged, never propagated. Audit failures must not
// fail dispatches.
func (s *AuditService) flush(ctx context.Context, batch []audit.Record) {
	if err := s.store.Write(ctx, batch); err != nil {
		s.logger.Error("failed to write audit batch", "error", err, "count", len(batch))
	}
}
