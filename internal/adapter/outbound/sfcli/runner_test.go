package sfcli

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/orggate/orggate/internal/port/outbound"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakeCLI writes an executable shell script that stands in for the sf
// binary and returns a Runner pointed at it.
func fakeCLI(t *testing.T, script string) *Runner {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "sf")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	return New(path, discardLogger())
}

func TestRunReturnsResultPayload(t *testing.T) {
	t.Parallel()

	r := fakeCLI(t, `printf '{"status":0,"result":{"id":"00D000000000001"}}'`)
	result, err := r.Run(context.Background(), "org", "display")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	var payload struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if payload.ID != "00D000000000001" {
		t.Errorf("ID = %q, want 00D000000000001", payload.ID)
	}
}

func TestRunMapsFailureEnvelope(t *testing.T) {
	t.Parallel()

	r := fakeCLI(t, `printf '{"status":1,"name":"NoOrgFound","message":"No org found","exitCode":1,"actions":["Run sf org login web"]}'; exit 1`)
	_, err := r.Run(context.Background(), "org", "display")

	var rerr *outbound.RunnerError
	if !errors.As(err, &rerr) {
		t.Fatalf("Run() error = %v, want *outbound.RunnerError", err)
	}
	if rerr.Name != "NoOrgFound" || rerr.ExitCode != 1 {
		t.Errorf("error = %+v, want NoOrgFound exit 1", rerr)
	}
	actions, ok := rerr.Context["actions"].([]string)
	if !ok || len(actions) != 1 {
		t.Errorf("Context[actions] = %v, want the CLI's remediation steps", rerr.Context["actions"])
	}
}

func TestRunSkipsBannerNoise(t *testing.T) {
	t.Parallel()

	r := fakeCLI(t, `printf 'Warning: update available\n{"status":0,"result":[]}'`)
	result, err := r.Run(context.Background(), "org", "list")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if string(result) != "[]" {
		t.Errorf("result = %s, want []", result)
	}
}

func TestRunRawToleratesNonZeroExitWithOutput(t *testing.T) {
	t.Parallel()

	r := fakeCLI(t, `printf 'test failures reported'; exit 100`)
	out, err := r.RunRaw(context.Background(), "apex", "run", "test")
	if err != nil {
		t.Fatalf("RunRaw() error: %v", err)
	}
	if out != "test failures reported" {
		t.Errorf("out = %q", out)
	}
}

func TestRunRawFailsOnSilentNonZeroExit(t *testing.T) {
	t.Parallel()

	r := fakeCLI(t, `echo boom >&2; exit 7`)
	_, err := r.RunRaw(context.Background(), "apex", "run")

	var rerr *outbound.RunnerError
	if !errors.As(err, &rerr) {
		t.Fatalf("RunRaw() error = %v, want *outbound.RunnerError", err)
	}
	if rerr.ExitCode != 7 || !strings.Contains(rerr.Message, "boom") {
		t.Errorf("error = %+v, want exit 7 carrying stderr", rerr)
	}
}

func TestDefaultOrgUnset(t *testing.T) {
	t.Parallel()

	r := fakeCLI(t, `printf '{"status":0,"result":[{"name":"target-org","success":false}]}'`)
	org, err := r.DefaultOrg(context.Background())
	if err != nil {
		t.Fatalf("DefaultOrg() error: %v", err)
	}
	if org != "" {
		t.Errorf("org = %q, want empty for unset default", org)
	}
}

func TestListOrgsMergesScratchAndNonScratch(t *testing.T) {
	t.Parallel()

	r := fakeCLI(t, `printf '%s' '{"status":0,"result":{"nonScratchOrgs":[{"username":"admin@prod.example.com","aliases":["prod"],"orgId":"00D1","instanceUrl":"https://prod.example.com","isDefaultUsername":true,"connectedStatus":"Connected"}],"scratchOrgs":[{"username":"test@scratch.example.com","orgId":"00D2","instanceUrl":"https://scratch.example.com"}]}}'`)
	orgs, err := r.ListOrgs(context.Background())
	if err != nil {
		t.Fatalf("ListOrgs() error: %v", err)
	}
	if len(orgs) != 2 {
		t.Fatalf("len(orgs) = %d, want 2", len(orgs))
	}
	if !orgs[0].IsDefault || orgs[0].IsScratch || !orgs[0].Connected {
		t.Errorf("orgs[0] = %+v, want connected non-scratch default", orgs[0])
	}
	if !orgs[1].IsScratch {
		t.Errorf("orgs[1] = %+v, want scratch", orgs[1])
	}
}

func TestParseEnvelopeRejectsNonJSON(t *testing.T) {
	t.Parallel()

	if _, err := parseEnvelope([]byte("command not found")); err == nil {
		t.Error("parseEnvelope() should reject output without JSON")
	}
}

func TestRunnerErrorFallbacks(t *testing.T) {
	t.Parallel()

	rerr := runnerError(&cliEnvelope{Status: 1}, 0, "")
	if rerr.Name != "CommandFailed" || rerr.ExitCode != 1 {
		t.Errorf("runnerError() = %+v, want CommandFailed with status as exit code", rerr)
	}
	if rerr.Context != nil {
		t.Errorf("Context = %v, want nil when nothing to carry", rerr.Context)
	}
}

func TestCappedBufferTruncates(t *testing.T) {
	t.Parallel()

	b := newCappedBuffer(4)
	n, err := b.Write([]byte("abcdef"))
	if err != nil || n != 6 {
		t.Fatalf("Write() = (%d, %v), want full accept", n, err)
	}
	if b.String() != "abcd" || !b.truncated {
		t.Errorf("buffer = %q truncated=%v, want abcd true", b.String(), b.truncated)
	}
}
