package service

import (
	"context"
	"log/slog"
)

// ElicitAction is the caller's answer to an elicitation round trip.
type ElicitAction string

const (
	ElicitAccept  ElicitAction = "accept"
	ElicitDecline ElicitAction = "decline"
	ElicitCancel  ElicitAction = "cancel"
)

// ClientSession is the slice of the protocol session the dispatch
// pipeline needs: confirmation round trips and the progress and log side
// channels. The inbound adapter wraps the real session; tests substitute
// fakes.
type ClientSession interface {
	// SupportsElicitation reports whether the connected client declared
	// the elicitation capability at initialization.
	SupportsElicitation() bool

	// Elicit asks the caller to confirm an action and returns their
	// answer.
	Elicit(ctx context.Context, prompt string) (ElicitAction, error)

	// NotifyProgress sends a progress notification. Fire and forget.
	NotifyProgress(ctx context.Context, token any, progress, total float64, message string) error

	// Log sends a leveled log notification to the client. channel names
	// the logical source shown to the caller.
	Log(ctx context.Context, level slog.Level, channel, message string, data map[string]any) error
}

// ConfirmOutcome is the dispatcher-facing result of a confirmation.
type ConfirmOutcome int

const (
	// ConfirmProceed means the operation may run: the caller accepted,
	// or confirmation was impossible and policy is to proceed.
	ConfirmProceed ConfirmOutcome = iota
	// ConfirmDeclined means the caller explicitly said no.
	ConfirmDeclined
	// ConfirmCancelled means the caller dismissed the prompt without
	// answering.
	ConfirmCancelled
)

// Confirmer runs the confirmation round trip for destructive operations.
//
// Confirmation is best effort: a client without the elicitation
// capability, or a transport failure mid round trip, proceeds rather
// than blocks. Only an explicit answer stops the operation. Operators
// who need a hard gate use guards or read-only mode.
type Confirmer struct {
	logger *slog.Logger
}

// NewConfirmer creates a Confirmer.
func NewConfirmer(logger *slog.Logger) *Confirmer {
	return &Confirmer{logger: logger}
}

// Confirm asks the caller to approve the prompt.
func (c *Confirmer) Confirm(ctx context.Context, session ClientSession, prompt string) ConfirmOutcome {
	if session == nil || !session.SupportsElicitation() {
		c.logger.Debug("client lacks elicitation capability, proceeding without confirmation")
		return ConfirmProceed
	}

	action, err := session.Elicit(ctx, prompt)
	if err != nil {
		c.logger.Warn("confirmation round trip failed, proceeding", "error", err)
		return ConfirmProceed
	}

	switch action {
	case ElicitAccept:
		return ConfirmProceed
	case ElicitDecline:
		return ConfirmDeclined
	default:
		return ConfirmCancelled
	}
}
