package service

import (
	"context"
	"log/slog"
	"sync"
)

// ReportFunc reports one phase of a running operation.
type ReportFunc func(ctx context.Context, message string)

// LogFunc forwards one line to the caller's named log channel.
type LogFunc func(ctx context.Context, level slog.Level, channel, message string)

// Emitter builds per-invocation progress reporters. Notifications are
// fire and forget: send failures are logged at debug and never interrupt
// the operation.
type Emitter struct {
	logger *slog.Logger
}

// NewEmitter creates an Emitter.
func NewEmitter(logger *slog.Logger) *Emitter {
	return &Emitter{logger: logger}
}

// Reporter returns a ReportFunc bound to the caller's progress token.
// Each call advances the progress value by one, so values are strictly
// monotonic per token. A nil token means the caller did not ask for
// progress and the reporter is a no-op.
func (e *Emitter) Reporter(session ClientSession, token any, total float64) ReportFunc {
	if session == nil || token == nil {
		return func(context.Context, string) {}
	}

	var mu sync.Mutex
	var step float64
	return func(ctx context.Context, message string) {
		mu.Lock()
		step++
		current := step
		mu.Unlock()

		if err := session.NotifyProgress(ctx, token, current, total, message); err != nil {
			e.logger.Debug("progress notification failed", "error", err)
		}
	}
}

// Log forwards an operation log line to the client's named logging
// channel. Errors are discarded: the side channel must never affect the
// result.
func (e *Emitter) Log(ctx context.Context, session ClientSession, level slog.Level, channel, message string, data map[string]any) {
	if session == nil {
		return
	}
	_ = session.Log(ctx, level, channel, message, data)
}
