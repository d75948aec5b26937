package org

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrNoDefaultOrg is returned when no org was supplied and no default
// could be determined. The message carries the remediation so it can be
// surfaced to the caller verbatim.
var ErrNoDefaultOrg = errors.New(
	"no default org configured: pass target_org explicitly, or set a default with \"sf config set target-org <username>\"")

// DefaultLookup is the slice of the runner port the resolver needs.
type DefaultLookup interface {
	DefaultOrg(ctx context.Context) (string, error)
}

// Resolver determines the effective target org for an operation:
// an explicit caller-supplied value wins, otherwise the cached platform
// default, otherwise a fresh fetch through the CLI.
type Resolver struct {
	cache  *Cache
	lookup DefaultLookup
	logger *slog.Logger
}

// NewResolver creates a resolver around the given cache and lookup.
func NewResolver(cache *Cache, lookup DefaultLookup, logger *slog.Logger) *Resolver {
	return &Resolver{cache: cache, lookup: lookup, logger: logger}
}

// Resolve returns the effective target org. A non-empty explicit value
// (after trimming) is returned unchanged without touching the cache.
// Otherwise the cached default is used while fresh; on a miss the
// platform default is fetched and cached (read-through). Returns
// ErrNoDefaultOrg when nothing can be determined.
func (r *Resolver) Resolve(ctx context.Context, explicit string) (string, error) {
	if trimmed := strings.TrimSpace(explicit); trimmed != "" {
		return trimmed, nil
	}

	if value, fresh := r.cache.Get(); fresh {
		if value == "" {
			return "", ErrNoDefaultOrg
		}
		r.logger.Debug("resolved default org from cache", "org", value)
		return value, nil
	}

	value, err := r.fetch(ctx)
	if err != nil {
		// Lookup failure and "no default configured" are the same thing
		// from the caller's side: supply an org or configure a default.
		return "", fmt.Errorf("%w (lookup failed: %v)", ErrNoDefaultOrg, err)
	}
	if value == "" {
		return "", ErrNoDefaultOrg
	}
	return value, nil
}

// Default returns the platform's default org using the same cache logic
// as Resolve, but reports "no default" as ("", nil) instead of an error.
// Used by status-style operations that only want to display it.
func (r *Resolver) Default(ctx context.Context) (string, error) {
	if value, fresh := r.cache.Get(); fresh {
		return value, nil
	}
	value, err := r.fetch(ctx)
	if err != nil {
		r.logger.Debug("default org lookup failed", "error", err)
		return "", nil
	}
	return value, nil
}

// Invalidate drops the cached default. Call after any action that
// changes the platform's configured default org.
func (r *Resolver) Invalidate() {
	r.cache.Invalidate()
}

func (r *Resolver) fetch(ctx context.Context) (string, error) {
	value, err := r.lookup.DefaultOrg(ctx)
	if err != nil {
		return "", fmt.Errorf("fetching default org: %w", err)
	}
	value = strings.TrimSpace(value)
	r.cache.Set(value)
	r.logger.Debug("fetched default org", "org", value)
	return value, nil
}
