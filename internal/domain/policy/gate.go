// Package policy implements the access gate that every dispatch must
// pass before orggate contacts the org platform.
package policy

// AllowAllSentinel in the allow-list grants access to every org. It must
// be configured deliberately; an empty allow-list is a startup error, not
// an implicit allow-all.
const AllowAllSentinel = "ALLOW_ALL_ORGS"

// Gate is the process-wide access policy: a read-only flag and an org
// allow-list. It is built once at startup from configuration and never
// mutated afterwards, so it is safe for concurrent reads without locking.
//
// Allowed matches exactly; aliases are not expanded here. A caller that
// wants alias transparency checks each known alias itself (the org
// listing does this for every org in the directory).
type Gate struct {
	readOnly bool
	allowAll bool
	allowed  map[string]struct{}
}

// NewGate builds a gate from the configured allow-list. The list may
// contain AllowAllSentinel to permit every org.
func NewGate(readOnly bool, allowList []string) *Gate {
	g := &Gate{
		readOnly: readOnly,
		allowed:  make(map[string]struct{}, len(allowList)),
	}
	for _, entry := range allowList {
		if entry == AllowAllSentinel {
			g.allowAll = true
			continue
		}
		g.allowed[entry] = struct{}{}
	}
	return g
}

// Allowed reports whether operations may run against the given org.
func (g *Gate) Allowed(org string) bool {
	if g.allowAll {
		return true
	}
	_, ok := g.allowed[org]
	return ok
}

// ReadOnly reports whether mutating operations are blocked process-wide.
func (g *Gate) ReadOnly() bool {
	return g.readOnly
}
