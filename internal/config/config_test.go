package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// writeConfigFile marshals the given document to a temp orggate.yaml and
// returns its path.
func writeConfigFile(t *testing.T, doc map[string]any) string {
	t.Helper()
	raw, err := yaml.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "orggate.yaml")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	viper.Reset()
	path := writeConfigFile(t, map[string]any{
		"server": map[string]any{"log_level": "debug", "metrics_addr": "127.0.0.1:9464"},
		"org": map[string]any{
			"allowed_orgs": []string{"prod", "sandbox1"},
			"read_only":    true,
			"cache_ttl":    "45s",
		},
		"cli": map[string]any{"bin": "/usr/local/bin/sf", "timeout": "2m"},
		"guards": []map[string]any{
			{"name": "no-prod-deletes", "expression": `tool == "org_delete" && org == "prod"`},
		},
		"audit": map[string]any{"enabled": true, "path": "/var/lib/orggate/audit.db"},
	})

	InitViper(path)
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	if cfg.Server.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.Server.LogLevel)
	}
	if !cfg.Org.ReadOnly || len(cfg.Org.AllowedOrgs) != 2 {
		t.Errorf("Org = %+v", cfg.Org)
	}
	if cfg.Org.CacheTTL != 45*time.Second {
		t.Errorf("CacheTTL = %v", cfg.Org.CacheTTL)
	}
	if cfg.CLI.Bin != "/usr/local/bin/sf" || cfg.CLI.Timeout != 2*time.Minute {
		t.Errorf("CLI = %+v", cfg.CLI)
	}
	if len(cfg.Guards) != 1 || cfg.Guards[0].Name != "no-prod-deletes" {
		t.Errorf("Guards = %+v", cfg.Guards)
	}
	if !cfg.Audit.Enabled || cfg.Audit.Path != "/var/lib/orggate/audit.db" {
		t.Errorf("Audit = %+v", cfg.Audit)
	}
	if ConfigFileUsed() != path {
		t.Errorf("ConfigFileUsed() = %q, want %q", ConfigFileUsed(), path)
	}
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	viper.Reset()
	path := writeConfigFile(t, map[string]any{
		"org": map[string]any{"allowed_orgs": []string{"ALLOW_ALL_ORGS"}},
	})

	InitViper(path)
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.Server.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info default", cfg.Server.LogLevel)
	}
	if cfg.CLI.Bin != "sf" {
		t.Errorf("Bin = %q, want sf default", cfg.CLI.Bin)
	}
	if cfg.Org.CacheTTL != 30*time.Second {
		t.Errorf("CacheTTL = %v, want 30s default", cfg.Org.CacheTTL)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	viper.Reset()
	t.Setenv("ORGGATE_ORG_READ_ONLY", "true")
	path := writeConfigFile(t, map[string]any{
		"org": map[string]any{"allowed_orgs": []string{"prod"}, "read_only": false},
	})

	InitViper(path)
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if !cfg.Org.ReadOnly {
		t.Error("environment variable should override the file")
	}
}

func TestValidateRequiresAllowedOrgs(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() should reject an empty allowed_orgs list")
	}
	if !strings.Contains(err.Error(), "AllowedOrgs") {
		t.Errorf("error %q should name the missing field", err)
	}
}

func TestValidateRejectsDuplicateGuardNames(t *testing.T) {
	cfg := &Config{
		Org: OrgConfig{AllowedOrgs: []string{"prod"}},
		Guards: []GuardConfig{
			{Name: "g", Expression: "true"},
			{Name: "g", Expression: "false"},
		},
	}
	cfg.SetDefaults()

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() should reject duplicate guard names")
	}
}

func TestValidateRequiresAuditPathWhenEnabled(t *testing.T) {
	cfg := &Config{
		Org:   OrgConfig{AllowedOrgs: []string{"prod"}},
		Audit: AuditConfig{Enabled: true},
	}
	cfg.SetDefaults()

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() should require audit.path when auditing is enabled")
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{LogLevel: "loud"},
		Org:    OrgConfig{AllowedOrgs: []string{"prod"}},
	}
	cfg.SetDefaults()

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() should reject an unknown log level")
	}
}
