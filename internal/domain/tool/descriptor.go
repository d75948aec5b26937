// Package tool defines the static metadata that drives the dispatcher.
// The operation catalog is data: one Descriptor per exposed tool,
// interpreted by a single generic dispatch pipeline, instead of dozens of
// bespoke handlers that each re-implement the gating sequence.
package tool

import "github.com/modelcontextprotocol/go-sdk/mcp"

// ConfirmFunc renders the confirmation prompt shown to the caller before
// a destructive operation runs. org is the resolved target org.
type ConfirmFunc func(org string, args map[string]any) string

// Descriptor is the fixed per-operation metadata, set at registration
// time and never mutated.
type Descriptor struct {
	// Name is the tool name exposed over the protocol.
	Name string

	// Title is the human-readable display name.
	Title string

	// Description documents the tool for the calling client.
	Description string

	// Mutating marks operations that change external state. Mutating
	// dispatches are blocked in read-only mode; non-mutating ones never
	// consult the read-only flag.
	Mutating bool

	// Destructive marks irreversible operations that require interactive
	// confirmation (unless the invocation is a dry run).
	Destructive bool

	// RequiresOrg marks operations that run against a specific org and
	// therefore go through target resolution.
	RequiresOrg bool

	// Idempotent and OpenWorld feed the protocol annotations.
	Idempotent bool
	OpenWorld  bool

	// Phases are the documented progress phases of a multi-phase
	// operation, in order. Empty for single-shot operations.
	Phases []string

	// Confirm renders the confirmation prompt. Required when Destructive
	// is set.
	Confirm ConfirmFunc
}

// Annotations converts the descriptor's classification into protocol
// tool annotations.
func (d *Descriptor) Annotations() *mcp.ToolAnnotations {
	destructive := d.Destructive
	openWorld := d.OpenWorld
	return &mcp.ToolAnnotations{
		Title:           d.Title,
		ReadOnlyHint:    !d.Mutating,
		DestructiveHint: &destructive,
		IdempotentHint:  d.Idempotent,
		OpenWorldHint:   &openWorld,
	}
}
