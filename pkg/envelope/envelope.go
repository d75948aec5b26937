// Package envelope defines the uniform response shape returned by every
// orggate tool. Callers receive either a success payload or a structured
// failure; both carry the org the operation actually ran against once one
// has been resolved, so a caller that omitted target_org can observe which
// org was used.
package envelope

import "encoding/json"

// Failure names. Callers branch on these programmatically, so they are
// part of the wire contract and must stay stable.
const (
	ErrNoDefaultOrg          = "NoDefaultOrg"
	ErrAccessDenied          = "AccessDenied"
	ErrReadOnlyBlocked       = "ReadOnlyBlocked"
	ErrConfirmationDeclined  = "ConfirmationDeclined"
	ErrConfirmationCancelled = "ConfirmationCancelled"
	ErrGuardDenied           = "GuardDenied"
	ErrRunnerFailure         = "RunnerFailure"
)

// ErrorDetail carries structured failure information. When the failure
// originated in the external platform, Name/Code/Context preserve
// whatever the runner could extract instead of collapsing it to a string.
type ErrorDetail struct {
	Name    string         `json:"name"`
	Message string         `json:"message"`
	Code    int            `json:"code,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// Envelope is the discriminated union returned by every tool call.
type Envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message,omitempty"`
	TargetOrg string          `json:"targetOrg,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     *ErrorDetail    `json:"error,omitempty"`
}

// Success builds a success envelope. data may be nil for operations whose
// only observable effect is the message.
func Success(org, message string, data json.RawMessage) *Envelope {
	return &Envelope{
		Success:   true,
		Message:   message,
		TargetOrg: org,
		Data:      data,
	}
}

// Failure builds a failure envelope with a stable error name.
func Failure(org, name, message string) *Envelope {
	return &Envelope{
		Message:   message,
		TargetOrg: org,
		Error:     &ErrorDetail{Name: name, Message: message},
	}
}

// FailureDetail builds a failure envelope from an already-structured
// error detail, preserving code and nested context.
func FailureDetail(org string, detail *ErrorDetail) *Envelope {
	return &Envelope{
		Message:   detail.Message,
		TargetOrg: org,
		Error:     detail,
	}
}

// ErrorName returns the stable failure name, or "" for a success envelope.
func (e Envelope) ErrorName() string {
	if e.Error == nil {
		return ""
	}
	return e.Error.Name
}

// Outcome returns a low-cardinality label for metrics and audit records:
// "ok" for success, the error name otherwise.
func (e Envelope) Outcome() string {
	if e.Success {
		return "ok"
	}
	if e.Error != nil && e.Error.Name != "" {
		return e.Error.Name
	}
	return "error"
}
