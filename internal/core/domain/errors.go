package domain

import (
	"errors"
	"fmt"
)

// =============================================================================
// Orchestration Errors
// =============================================================================

var (
	// Config resolution errors
	ErrConfigNotFound = errors.New("deployment config not found")
	ErrConfigInvalid  = errors.New("deployment config is invalid")

	// Target selection errors
	ErrTargetNotFound         = errors.New("target not found")
	ErrTargetHasNoDeployments = errors.New("target has no deployments")

	// Provider errors
	ErrProviderRequestFailed = errors.New("provider request failed")

	// Command errors. Neither is ever reported back to the user.
	ErrPermissionDenied = errors.New("user does not have write permission")
	ErrMalformedCommand = errors.New("malformed deploy command")

	// ErrFileNotFound is returned by config sources when the requested file
	// does not exist at the given ref.
	ErrFileNotFound = errors.New("file not found")
)

// ConfigError describes a schema or syntax violation in a deployment config.
type ConfigError struct {
	Property string // e.g., "staging.required_contexts"
	Message  string
}

func (e *ConfigError) Error() string {
	if e.Property != "" {
		return fmt.Sprintf("invalid deployment config: %s: %s", e.Property, e.Message)
	}
	return "invalid deployment config: " + e.Message
}

func (e *ConfigError) Unwrap() error {
	return ErrConfigInvalid
}

// NewConfigError creates a new ConfigError.
func NewConfigError(property, message string) *ConfigError {
	return &ConfigError{Property: property, Message: message}
}

// TargetError reports a problem with a named target.
type TargetError struct {
	Target string
	Err    error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("%s: %q", e.Err.Error(), e.Target)
}

func (e *TargetError) Unwrap() error {
	return e.Err
}

// DispatchError is returned when the provider rejects one of a target's
// deployment requests. Request is the body that was attempted. Created
// holds the deployments that succeeded before it; they are not rolled back.
type DispatchError struct {
	Target  string
	Index   int
	Request DeploymentRequest
	Created []DeploymentRecord
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("create deployment %d of target %q (environment %q): %v",
		e.Index+1, e.Target, e.Request.Environment, e.Err)
}

// Unwrap exposes both the provider cause and ErrProviderRequestFailed.
func (e *DispatchError) Unwrap() []error {
	return []error{ErrProviderRequestFailed, e.Err}
}
