package policy

import "testing"

func TestGateAllowList(t *testing.T) {
	t.Parallel()

	g := NewGate(false, []string{"a", "b"})

	for _, org := range []string{"a", "b"} {
		if !g.Allowed(org) {
			t.Errorf("Allowed(%q) = false, want true", org)
		}
	}
	if g.Allowed("c") {
		t.Error("Allowed(c) = true, want false")
	}
}

func TestGateAllowAllSentinel(t *testing.T) {
	t.Parallel()

	g := NewGate(false, []string{AllowAllSentinel})

	for _, org := range []string{"anything", "prod", ""} {
		if !g.Allowed(org) {
			t.Errorf("Allowed(%q) = false, want true with allow-all", org)
		}
	}
}

func TestGateSentinelMixedWithEntries(t *testing.T) {
	t.Parallel()

	// The sentinel wins even when listed alongside explicit orgs.
	g := NewGate(false, []string{"a", AllowAllSentinel})
	if !g.Allowed("z") {
		t.Error("Allowed(z) = false, want true when sentinel present")
	}
}

func TestGateNoAliasExpansion(t *testing.T) {
	t.Parallel()

	// The gate matches exactly; alias transparency is the caller's job.
	g := NewGate(false, []string{"user@example.com"})
	if g.Allowed("my-alias") {
		t.Error("Allowed(my-alias) = true, want false (no alias expansion)")
	}
}

func TestGateReadOnly(t *testing.T) {
	t.Parallel()

	if NewGate(true, []string{AllowAllSentinel}).ReadOnly() != true {
		t.Error("ReadOnly() = false, want true")
	}
	if NewGate(false, []string{AllowAllSentinel}).ReadOnly() != false {
		t.Error("ReadOnly() = true, want false")
	}
}
