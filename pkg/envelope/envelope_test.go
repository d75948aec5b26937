package envelope

import (
	"encoding/json"
	"testing"
)

func TestSuccessCarriesTargetOrg(t *testing.T) {
	t.Parallel()

	env := Success("dev-hub", "queried 3 records", json.RawMessage(`[1,2,3]`))
	if !env.Success {
		t.Fatal("Success envelope should have Success=true")
	}
	if env.TargetOrg != "dev-hub" {
		t.Errorf("TargetOrg = %q, want %q", env.TargetOrg, "dev-hub")
	}
	if env.Outcome() != "ok" {
		t.Errorf("Outcome() = %q, want ok", env.Outcome())
	}
}

func TestFailureCarriesTargetOrg(t *testing.T) {
	t.Parallel()

	env := Failure("sandbox1", ErrReadOnlyBlocked, "blocked by read-only mode")
	if env.Success {
		t.Fatal("Failure envelope should have Success=false")
	}
	if env.TargetOrg != "sandbox1" {
		t.Errorf("TargetOrg = %q, want sandbox1", env.TargetOrg)
	}
	if env.ErrorName() != ErrReadOnlyBlocked {
		t.Errorf("ErrorName() = %q, want %q", env.ErrorName(), ErrReadOnlyBlocked)
	}
	if env.Outcome() != ErrReadOnlyBlocked {
		t.Errorf("Outcome() = %q, want %q", env.Outcome(), ErrReadOnlyBlocked)
	}
}

func TestFailureDetailPreservesStructure(t *testing.T) {
	t.Parallel()

	detail := &ErrorDetail{
		Name:    "DeployFailed",
		Message: "3 component failures",
		Code:    1,
		Context: map[string]any{"stderr": "boom"},
	}
	env := FailureDetail("prod", detail)

	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var decoded Envelope
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if decoded.Error == nil {
		t.Fatal("round trip dropped Error")
	}
	if decoded.Error.Code != 1 {
		t.Errorf("Error.Code = %d, want 1", decoded.Error.Code)
	}
	if decoded.Error.Context["stderr"] != "boom" {
		t.Errorf("Error.Context = %v, want stderr preserved", decoded.Error.Context)
	}
}

func TestOutcomeFallback(t *testing.T) {
	t.Parallel()

	env := Envelope{Message: "something went wrong"}
	if env.Outcome() != "error" {
		t.Errorf("Outcome() = %q, want error for unnamed failure", env.Outcome())
	}
}
