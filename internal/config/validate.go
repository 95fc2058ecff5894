package config

import (
	"fmt"
	"strings"
)

// minSecretLen is the minimum length of the token signing secret.
const minSecretLen = 32

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid). Auth errors are fatal
// by policy: the caller must refuse to start on any validation failure, so
// the process never comes up with a weak secret or no password.
func (c *Config) Validate() []string {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port: must be between 1 and 65535, got %d", c.Server.Port))
	}
	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}

	if strings.Contains(c.Auth.Secret, "${") {
		errs = append(errs, "auth.secret: contains an unsubstituted ${VAR} reference; is the environment variable set?")
	} else if len(c.Auth.Secret) < minSecretLen {
		errs = append(errs, fmt.Sprintf("auth.secret: must be set and at least %d characters", minSecretLen))
	}

	if strings.Contains(c.Auth.Password, "${") {
		errs = append(errs, "auth.password: contains an unsubstituted ${VAR} reference; is the environment variable set?")
	} else if c.Auth.Password == "" {
		errs = append(errs, "auth.password: must be set")
	}

	if c.Downloads.ResolveTimeoutSecs < 0 {
		errs = append(errs, "downloads.resolve_timeout_secs: must not be negative")
	}
	if c.Downloads.TranscodeTimeoutSecs < 0 {
		errs = append(errs, "downloads.transcode_timeout_secs: must not be negative")
	}

	return errs
}
