// Package config provides configuration loading for orggate.
package config

import "time"

// Config is the full orggate configuration, loaded from orggate.yaml
// and ORGGATE_* environment variables.
type Config struct {
	Server ServerConfig  `mapstructure:"server"`
	Org    OrgConfig     `mapstructure:"org"`
	CLI    CLIConfig     `mapstructure:"cli"`
	Guards []GuardConfig `mapstructure:"guards" validate:"dive"`
	Audit  AuditConfig   `mapstructure:"audit"`
}

// ServerConfig holds process-level settings.
type ServerConfig struct {
	// LogLevel controls the stderr logger: debug, info, warn, error.
	LogLevel string `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// MetricsAddr, when set, serves Prometheus metrics on this address.
	MetricsAddr string `mapstructure:"metrics_addr" validate:"omitempty,hostname_port"`
}

// OrgConfig is the access policy: which orgs tool calls may touch and
// whether mutations are allowed at all.
type OrgConfig struct {
	// AllowedOrgs is the exact-match allow-list of usernames and
	// aliases. The sentinel value ALLOW_ALL_ORGS disables the check.
	// Empty means no org is reachable, so at least one entry is
	// required.
	AllowedOrgs []string `mapstructure:"allowed_orgs" validate:"required,min=1"`

	// ReadOnly blocks every mutating operation.
	ReadOnly bool `mapstructure:"read_only"`

	// CacheTTL bounds how long a resolved default org is trusted.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// CLIConfig locates and bounds the platform CLI.
type CLIConfig struct {
	// Bin is the CLI binary, resolved via PATH when not absolute.
	Bin string `mapstructure:"bin"`

	// Timeout bounds a single CLI invocation.
	Timeout time.Duration `mapstructure:"timeout"`
}

// GuardConfig is one operator-defined deny rule.
type GuardConfig struct {
	Name       string `mapstructure:"name" validate:"required"`
	Expression string `mapstructure:"expression" validate:"required"`
}

// AuditConfig controls the invocation audit trail.
type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Path is the SQLite database file. Required when enabled.
	Path string `mapstructure:"path" validate:"required_if=Enabled true"`
}

// SetDefaults applies default values for optional fields.
func (c *Config) SetDefaults() {
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.CLI.Bin == "" {
		c.CLI.Bin = "sf"
	}
	if c.CLI.Timeout <= 0 {
		c.CLI.Timeout = 5 * time.Minute
	}
	if c.Org.CacheTTL <= 0 {
		c.Org.CacheTTL = 30 * time.Second
	}
}
