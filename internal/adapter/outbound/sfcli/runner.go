// Package sfcli runs the sf command-line interface and parses its JSON
// envelope into structured results and errors. It implements the
// outbound.OrgRunner port.
package sfcli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/orggate/orggate/internal/port/outbound"
)

// defaultMaxOutput caps captured CLI output. Query results and deploy
// reports can be large, but an unbounded buffer is a memory hazard.
const defaultMaxOutput = 10 << 20 // 10 MiB

// defaultTimeout bounds a single CLI invocation. Deploys can be slow;
// the platform's own polling timeout is the real limit.
const defaultTimeout = 5 * time.Minute

// Runner executes sf commands. Safe for concurrent use: each call spawns
// an independent process.
type Runner struct {
	bin       string
	timeout   time.Duration
	maxOutput int64
	logger    *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout sets the per-invocation timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithMaxOutput sets the output capture cap in bytes.
func WithMaxOutput(n int64) Option {
	return func(r *Runner) { r.maxOutput = n }
}

// New creates a runner for the given sf binary path ("sf" resolves via
// PATH).
func New(bin string, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		bin:       bin,
		timeout:   defaultTimeout,
		maxOutput: defaultMaxOutput,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// cliEnvelope is the sf CLI's --json output shape. Success carries
// result; failure carries name/message/exitCode plus optional context.
type cliEnvelope struct {
	Status   int             `json:"status"`
	Result   json.RawMessage `json:"result"`
	Name     string          `json:"name"`
	Message  string          `json:"message"`
	ExitCode int             `json:"exitCode"`
	Context  string          `json:"context"`
	Actions  []string        `json:"actions"`
	Warnings []string        `json:"warnings"`
}

// Run executes the command in JSON mode and returns the result payload.
// CLI-reported failures come back as *outbound.RunnerError with whatever
// structured detail the envelope carried.
func (r *Runner) Run(ctx context.Context, args ...string) (json.RawMessage, error) {
	out, stderr, exitCode, err := r.execute(ctx, append(args, "--json"))
	if err != nil {
		return nil, err
	}

	env, perr := parseEnvelope(out)
	if perr != nil {
		if exitCode != 0 {
			return nil, &outbound.RunnerError{
				Name:     "CommandFailed",
				Message:  firstNonEmpty(strings.TrimSpace(stderr), "command exited non-zero with unparseable output"),
				ExitCode: exitCode,
			}
		}
		return nil, fmt.Errorf("parsing CLI output: %w", perr)
	}

	if env.Status != 0 || exitCode != 0 {
		return nil, runnerError(env, exitCode, stderr)
	}
	for _, w := range env.Warnings {
		r.logger.Warn("sf warning", "warning", w)
	}
	return env.Result, nil
}

// RunRaw executes the command without JSON mode and returns raw output.
// A non-zero exit that still produced output returns that output with a
// nil error: commands like test runs report findings via exit code.
func (r *Runner) RunRaw(ctx context.Context, args ...string) (string, error) {
	out, stderr, exitCode, err := r.execute(ctx, args)
	if err != nil {
		return "", err
	}
	if exitCode != 0 && len(bytes.TrimSpace(out)) == 0 {
		return "", &outbound.RunnerError{
			Name:     "CommandFailed",
			Message:  firstNonEmpty(strings.TrimSpace(stderr), "command exited non-zero with no output"),
			ExitCode: exitCode,
		}
	}
	return string(out), nil
}

// DefaultOrg reads the platform's configured default org, "" when unset.
func (r *Runner) DefaultOrg(ctx context.Context) (string, error) {
	result, err := r.Run(ctx, "config", "get", "target-org")
	if err != nil {
		return "", err
	}
	var entries []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(result, &entries); err != nil {
		return "", fmt.Errorf("parsing config get result: %w", err)
	}
	for _, e := range entries {
		if e.Name == "target-org" {
			return e.Value, nil
		}
	}
	return "", nil
}

// ListOrgs returns every org in the local credential directory.
func (r *Runner) ListOrgs(ctx context.Context) ([]outbound.OrgInfo, error) {
	result, err := r.Run(ctx, "org", "list")
	if err != nil {
		return nil, err
	}
	var payload struct {
		NonScratchOrgs []orgListEntry `json:"nonScratchOrgs"`
		ScratchOrgs    []orgListEntry `json:"scratchOrgs"`
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		return nil, fmt.Errorf("parsing org list result: %w", err)
	}

	orgs := make([]outbound.OrgInfo, 0, len(payload.NonScratchOrgs)+len(payload.ScratchOrgs))
	for _, e := range payload.NonScratchOrgs {
		orgs = append(orgs, e.toInfo(false))
	}
	for _, e := range payload.ScratchOrgs {
		orgs = append(orgs, e.toInfo(true))
	}
	return orgs, nil
}

type orgListEntry struct {
	Username          string   `json:"username"`
	Aliases           []string `json:"aliases"`
	OrgID             string   `json:"orgId"`
	InstanceURL       string   `json:"instanceUrl"`
	IsDefaultUsername bool     `json:"isDefaultUsername"`
	ConnectedStatus   string   `json:"connectedStatus"`
}

func (e orgListEntry) toInfo(scratch bool) outbound.OrgInfo {
	return outbound.OrgInfo{
		Username:    e.Username,
		Aliases:     e.Aliases,
		OrgID:       e.OrgID,
		InstanceURL: e.InstanceURL,
		IsDefault:   e.IsDefaultUsername,
		IsScratch:   scratch,
		Connected:   e.ConnectedStatus == "Connected" || scratch,
	}
}

// OrgDisplay resolves connection details for an org username or alias.
// The access token comes from the platform's keychain and is never
// stored by orggate.
func (r *Runner) OrgDisplay(ctx context.Context, org string) (*outbound.OrgConnection, error) {
	result, err := r.Run(ctx, "org", "display", "--target-org", org)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Username    string `json:"username"`
		InstanceURL string `json:"instanceUrl"`
		APIVersion  string `json:"apiVersion"`
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		return nil, fmt.Errorf("parsing org display result: %w", err)
	}
	return &outbound.OrgConnection{
		Username:    payload.Username,
		InstanceURL: payload.InstanceURL,
		APIVersion:  payload.APIVersion,
		AccessToken: payload.AccessToken,
	}, nil
}

// execute spawns the CLI and captures bounded output. The returned error
// is non-nil only for spawn/context failures; a non-zero exit is
// reported via exitCode so callers can apply their own policy.
func (r *Runner) execute(ctx context.Context, args []string) (stdout []byte, stderr string, exitCode int, err error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.bin, args...)
	cmd.SysProcAttr = sysProcAttr()
	// Kill the whole process group so the CLI's child processes (it
	// spawns plugins) do not outlive a cancelled call.
	cmd.Cancel = func() error { return terminate(cmd.Process) }
	cmd.WaitDelay = 5 * time.Second
	cmd.Env = append(os.Environ(), "SF_DISABLE_TELEMETRY=true")

	outBuf := newCappedBuffer(r.maxOutput)
	errBuf := newCappedBuffer(1 << 20)
	cmd.Stdout = outBuf
	cmd.Stderr = errBuf

	start := time.Now()
	runErr := cmd.Run()
	r.logger.Debug("sf command finished",
		"args", strings.Join(args, " "),
		"duration_ms", time.Since(start).Milliseconds(),
		"truncated", outBuf.truncated,
	)

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return outBuf.Bytes(), errBuf.String(), exitErr.ExitCode(), nil
		}
		if ctx.Err() != nil {
			return nil, "", 0, fmt.Errorf("sf command cancelled: %w", ctx.Err())
		}
		return nil, "", 0, fmt.Errorf("spawning %s: %w", r.bin, runErr)
	}
	return outBuf.Bytes(), errBuf.String(), 0, nil
}

// parseEnvelope finds and decodes the CLI's JSON envelope. The CLI
// occasionally prints banner noise before the JSON, so scan to the first
// brace.
func parseEnvelope(out []byte) (*cliEnvelope, error) {
	idx := bytes.IndexByte(out, '{')
	if idx < 0 {
		return nil, errors.New("no JSON object in output")
	}
	var env cliEnvelope
	if err := json.Unmarshal(out[idx:], &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// runnerError maps a failed CLI envelope into a structured error,
// preserving name, message, exit code, and nested context.
func runnerError(env *cliEnvelope, exitCode int, stderr string) *outbound.RunnerError {
	code := env.ExitCode
	if code == 0 {
		code = exitCode
	}
	if code == 0 {
		code = env.Status
	}

	context := map[string]any{}
	if env.Context != "" {
		context["context"] = env.Context
	}
	if len(env.Actions) > 0 {
		context["actions"] = env.Actions
	}
	if s := strings.TrimSpace(stderr); s != "" {
		context["stderr"] = s
	}
	if len(context) == 0 {
		context = nil
	}

	return &outbound.RunnerError{
		Name:     firstNonEmpty(env.Name, "CommandFailed"),
		Message:  firstNonEmpty(env.Message, "sf command failed"),
		ExitCode: code,
		Context:  context,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Compile-time interface verification.
var _ outbound.OrgRunner = (*Runner)(nil)
