// Package config handles TOML configuration loading with environment
// variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure. It is constructed once at
// startup, validated, and passed by reference into every component that
// needs it; no component reads ambient process state directly.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Auth      AuthConfig      `toml:"auth"`
	Downloads DownloadsConfig `toml:"downloads"`
}

type ServerConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	LogLevel    string   `toml:"log_level"`
	CORSOrigins []string `toml:"cors_origins"`
}

type AuthConfig struct {
	// Secret signs bearer tokens; at least 32 characters.
	Secret string `toml:"secret"`
	// Password is the single login password.
	Password string `toml:"password"`
}

type DownloadsConfig struct {
	Dir string `toml:"dir"`
	// Timeouts bound the external tool invocations; 0 disables them.
	ResolveTimeoutSecs   int `toml:"resolve_timeout_secs"`
	TranscodeTimeoutSecs int `toml:"transcode_timeout_secs"`
}

// ResolveTimeout returns the retrieval tool deadline.
func (d DownloadsConfig) ResolveTimeout() time.Duration {
	return time.Duration(d.ResolveTimeoutSecs) * time.Second
}

// TranscodeTimeout returns the transcoder deadline.
func (d DownloadsConfig) TranscodeTimeout() time.Duration {
	return time.Duration(d.TranscodeTimeoutSecs) * time.Second
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Substitute environment variables
	content := substituteEnvVars(string(data))

	var cfg Config
	md, err := toml.Decode(content, &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg, md)
	return &cfg, nil
}

func applyDefaults(cfg *Config, md toml.MetaData) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3001
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Downloads.Dir == "" {
		cfg.Downloads.Dir = "./downloads"
	}
	// An explicit 0 disables a timeout, so default only when the key is absent.
	if !md.IsDefined("downloads", "resolve_timeout_secs") {
		cfg.Downloads.ResolveTimeoutSecs = 600
	}
	if !md.IsDefined("downloads", "transcode_timeout_secs") {
		cfg.Downloads.TranscodeTimeoutSecs = 300
	}

	// Secrets may come straight from the environment instead of the file.
	if cfg.Auth.Secret == "" {
		cfg.Auth.Secret = os.Getenv("SCRIPPER_SECRET")
	}
	if cfg.Auth.Password == "" {
		cfg.Auth.Password = os.Getenv("SCRIPPER_PASSWORD")
	}
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1] // Strip ${ and }
		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		return match // Leave unchanged if not found
	})
}
