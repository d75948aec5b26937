package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment
// variables. If configFile is empty, it searches for orggate.yaml/.yml in
// standard locations. The search requires an explicit YAML extension to
// avoid matching the binary itself.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No config file in any standard location. Set name/type without
		// search paths so ReadInConfig returns ConfigFileNotFoundError,
		// which callers handle gracefully.
		viper.SetConfigName("orggate")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: ORGGATE_ORG_READ_ONLY
	viper.SetEnvPrefix("ORGGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for an orggate config file
// with an explicit YAML extension (.yaml or .yml).
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".orggate"),
	}
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, "orggate"))
		}
	} else {
		paths = append(paths, "/etc/orggate")
	}
	return findConfigFileInPaths(paths)
}

func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "orggate"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds nested config keys for environment variable
// support. Example: ORGGATE_SERVER_LOG_LEVEL overrides server.log_level.
func bindNestedEnvKeys() {
	_ = viper.BindEnv("server.log_level")
	_ = viper.BindEnv("server.metrics_addr")

	_ = viper.BindEnv("org.allowed_orgs")
	_ = viper.BindEnv("org.read_only")
	_ = viper.BindEnv("org.cache_ttl")

	_ = viper.BindEnv("cli.bin")
	_ = viper.BindEnv("cli.timeout")

	// Note: guards is an array and not overridable via env.
	// Operators use the config file for guard rules.

	_ = viper.BindEnv("audit.enabled")
	_ = viper.BindEnv("audit.path")
}

// LoadConfig reads the configuration file, applies environment overrides
// and defaults, and does NOT validate. Callers apply CLI flag overrides
// first, then call cfg.Validate().
func LoadConfig() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file: environment variables and flags only.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was
// loaded, or "" when running on environment variables alone.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
