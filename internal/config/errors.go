package config

import (
	"errors"
	"fmt"
)

// ConfigError reports a configuration that cannot drive a run.
// Configuration errors are fatal: no scenario executes.
type ConfigError struct {
	// Path is the configuration file, if the error came from one.
	Path string

	// Field locates the offending value, e.g. "fetchPackageReleaseManifest.packageReleases[0]".
	Field string

	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError returns true if err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func fieldError(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Message: fmt.Sprintf(format, args...)}
}
