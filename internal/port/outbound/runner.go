// Package outbound defines the outbound port interfaces for reaching the
// org platform. Adapters implement these against the sf CLI and the org
// REST API.
package outbound

import (
	"context"
	"encoding/json"
	"fmt"
)

// OrgInfo describes one authorized org from the platform's local
// credential directory. Alias matching against a caller-supplied
// identifier is the directory's job, not orggate's.
type OrgInfo struct {
	Username    string   `json:"username"`
	Aliases     []string `json:"aliases,omitempty"`
	OrgID       string   `json:"orgId,omitempty"`
	InstanceURL string   `json:"instanceUrl,omitempty"`
	IsDefault   bool     `json:"isDefaultUsername,omitempty"`
	IsScratch   bool     `json:"isScratch,omitempty"`
	Connected   bool     `json:"connected,omitempty"`
}

// OrgConnection holds what the REST adapter needs to call an org
// directly: endpoint, API version, and a short-lived access token.
// orggate never stores tokens; they come from the platform's keychain
// on every lookup.
type OrgConnection struct {
	Username    string `json:"username"`
	InstanceURL string `json:"instanceUrl"`
	APIVersion  string `json:"apiVersion"`
	AccessToken string `json:"-"`
}

// OrgRunner executes commands against the org platform's CLI and exposes
// its credential directory.
type OrgRunner interface {
	// Run executes a CLI command in JSON mode and returns the parsed
	// result payload. Failures are surfaced as *RunnerError.
	Run(ctx context.Context, args ...string) (json.RawMessage, error)

	// RunRaw executes a CLI command and returns its raw output. A
	// non-zero exit that still produced output is not an error: some
	// commands legitimately report findings via exit code (e.g. test
	// runs with failures).
	RunRaw(ctx context.Context, args ...string) (string, error)

	// DefaultOrg returns the platform's currently configured default
	// org, or "" when none is configured.
	DefaultOrg(ctx context.Context) (string, error)

	// ListOrgs returns every org the local credential store knows about.
	ListOrgs(ctx context.Context) ([]OrgInfo, error)

	// OrgDisplay resolves connection details (including an access token)
	// for the given org username or alias.
	OrgDisplay(ctx context.Context, org string) (*OrgConnection, error)
}

// RunnerError is the structured failure the platform reported: the error
// name and message from the CLI's JSON envelope (or the REST error body),
// the process exit code or HTTP status, and any nested context worth
// forwarding. Dispatchers preserve all of it in the failure envelope so
// callers can branch on the failure kind.
type RunnerError struct {
	Name     string
	Message  string
	ExitCode int
	Context  map[string]any
}

func (e *RunnerError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("runner failed (exit %d): %s", e.ExitCode, e.Message)
	}
	return fmt.Sprintf("%s (exit %d): %s", e.Name, e.ExitCode, e.Message)
}
