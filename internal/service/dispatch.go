// Package service implements the dispatch pipeline: every tool call,
// regardless of which operation it names, flows through target
// resolution, the access gate, guards, and confirmation before its
// handler runs. The catalog supplies per-operation metadata; this
// package supplies the shared semantics.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/orggate/orggate/internal/adapter/outbound/audit"
	"github.com/orggate/orggate/internal/domain/guard"
	"github.com/orggate/orggate/internal/domain/org"
	"github.com/orggate/orggate/internal/domain/policy"
	"github.com/orggate/orggate/internal/domain/tool"
	"github.com/orggate/orggate/internal/port/outbound"
	"github.com/orggate/orggate/pkg/envelope"
)

// Invocation is what the pipeline hands to an operation handler once
// every gate has passed.
type Invocation struct {
	// Org is the resolved target org, "" for org-independent operations.
	Org string

	// DryRun is the caller's dry-run flag, for operations that support a
	// validate-only mode.
	DryRun bool

	// Report advances the progress side channel by one phase.
	Report ReportFunc

	// Session reaches the caller's log side channel. May be nil.
	Session ClientSession

	// emit is bound by the dispatcher to the session's log channel.
	emit LogFunc
}

// Log forwards a line to the caller's named log channel. A no-op when
// the pipeline attached no session.
func (inv *Invocation) Log(ctx context.Context, level slog.Level, channel, message string) {
	if inv.emit != nil {
		inv.emit(ctx, level, channel, message)
	}
}

// RunFunc executes the operation's actual work.
type RunFunc func(ctx context.Context, inv *Invocation) (*envelope.Envelope, error)

// Request is one tool call entering the pipeline.
type Request struct {
	Desc          *tool.Descriptor
	ExplicitOrg   string
	DryRun        bool
	Args          map[string]any
	Session       ClientSession
	ProgressToken any
	Run           RunFunc
}

// Dispatcher runs the shared gating pipeline around every operation.
type Dispatcher struct {
	resolver *org.Resolver
	gate     *policy.Gate
	guards   *guard.Engine
	confirm  *Confirmer
	progress *Emitter
	audit    *AuditService
	logger   *slog.Logger
}

// NewDispatcher wires the pipeline. guards and auditSvc may be nil when
// the operator configured neither.
func NewDispatcher(
	resolver *org.Resolver,
	gate *policy.Gate,
	guards *guard.Engine,
	confirm *Confirmer,
	progress *Emitter,
	auditSvc *AuditService,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		resolver: resolver,
		gate:     gate,
		guards:   guards,
		confirm:  confirm,
		progress: progress,
		audit:    auditSvc,
		logger:   logger,
	}
}

// Dispatch runs one tool call through the pipeline. The returned
// envelope always describes the outcome; the error return is reserved
// for protocol-level failures and is nil for every policy denial.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) (env *envelope.Envelope) {
	start := time.Now()
	// resolvedOrg is written by dispatch once resolution succeeds, so
	// the recovery envelope still carries the org a panicking handler
	// was running against.
	var resolvedOrg string
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool handler panicked", "tool", req.Desc.Name, "panic", r)
			env = envelope.Failure(resolvedOrg, envelope.ErrRunnerFailure,
				fmt.Sprintf("internal error running %s", req.Desc.Name))
		}
		d.record(req.Desc.Name, env, time.Since(start))
	}()

	env = d.dispatch(ctx, req, &resolvedOrg)
	return env
}

func (d *Dispatcher) dispatch(ctx context.Context, req *Request, resolvedOrg *string) *envelope.Envelope {
	desc := req.Desc

	var targetOrg string
	if desc.RequiresOrg {
		resolved, err := d.resolver.Resolve(ctx, req.ExplicitOrg)
		if err != nil {
			if errors.Is(err, org.ErrNoDefaultOrg) {
				return envelope.Failure("", envelope.ErrNoDefaultOrg, err.Error())
			}
			return envelope.Failure("", envelope.ErrRunnerFailure, err.Error())
		}
		targetOrg = resolved
		*resolvedOrg = resolved
	}

	if desc.Mutating && d.gate.ReadOnly() {
		return envelope.Failure(targetOrg, envelope.ErrReadOnlyBlocked,
			fmt.Sprintf("%s modifies org state and the server is running in read-only mode", desc.Name))
	}

	if desc.RequiresOrg && !d.gate.Allowed(targetOrg) {
		return envelope.Failure(targetOrg, envelope.ErrAccessDenied,
			fmt.Sprintf("org %q is not in the allowed orgs list", targetOrg))
	}

	if d.guards != nil {
		decision, err := d.guards.Check(ctx, desc.Name, targetOrg, req.Args)
		if err != nil {
			// An unevaluable guard denies. Guards are the operator's
			// backstop; failing open here would silence it.
			d.logger.Error("guard evaluation failed", "tool", desc.Name, "error", err)
			return envelope.Failure(targetOrg, envelope.ErrGuardDenied,
				fmt.Sprintf("guard evaluation failed: %v", err))
		}
		if decision.Denied {
			return envelope.Failure(targetOrg, envelope.ErrGuardDenied,
				fmt.Sprintf("blocked by guard %q", decision.Rule))
		}
	}

	if desc.Destructive && !req.DryRun {
		prompt := desc.Confirm(targetOrg, req.Args)
		switch d.confirm.Confirm(ctx, req.Session, prompt) {
		case ConfirmDeclined:
			return envelope.Failure(targetOrg, envelope.ErrConfirmationDeclined, "declined by user")
		case ConfirmCancelled:
			return envelope.Failure(targetOrg, envelope.ErrConfirmationCancelled, "confirmation prompt dismissed")
		}
	}

	inv := &Invocation{
		Org:     targetOrg,
		DryRun:  req.DryRun,
		Report:  d.progress.Reporter(req.Session, req.ProgressToken, float64(len(desc.Phases))),
		Session: req.Session,
		emit: func(ctx context.Context, level slog.Level, channel, message string) {
			d.progress.Log(ctx, req.Session, level, channel, message, nil)
		},
	}

	result, err := req.Run(ctx, inv)
	if err != nil {
		return failureFromError(targetOrg, err)
	}
	return result
}

// failureFromError preserves structured runner errors: the platform's
// error name, exit code, and remediation context survive into the
// envelope instead of collapsing into a string.
func failureFromError(targetOrg string, err error) *envelope.Envelope {
	var rerr *outbound.RunnerError
	if errors.As(err, &rerr) {
		name := rerr.Name
		if name == "" {
			name = envelope.ErrRunnerFailure
		}
		return envelope.FailureDetail(targetOrg, &envelope.ErrorDetail{
			Name:    name,
			Message: rerr.Message,
			Code:    rerr.ExitCode,
			Context: rerr.Context,
		})
	}
	return envelope.Failure(targetOrg, envelope.ErrRunnerFailure, err.Error())
}

// record enqueues the audit entry. Fire and forget.
func (d *Dispatcher) record(toolName string, env *envelope.Envelope, elapsed time.Duration) {
	if d.audit == nil || env == nil {
		return
	}
	rec := audit.Record{
		ID:         uuid.NewString(),
		Time:       time.Now().UTC(),
		Tool:       toolName,
		Org:        env.TargetOrg,
		Outcome:    env.Outcome(),
		DurationMS: elapsed.Milliseconds(),
	}
	if !env.Success && env.Error != nil {
		rec.Reason = env.Error.Message
	}
	d.audit.Record(rec)
}
