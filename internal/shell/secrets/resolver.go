// Package secrets resolves credentials such as the provider token and the
// webhook secret at startup.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrSecretNotFound is returned when a secret does not exist.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrSecretEmpty is returned when a secret exists but holds no value.
	ErrSecretEmpty = errors.New("secret is empty")

	// ErrAccessDenied is returned when the caller may not read a secret.
	ErrAccessDenied = errors.New("access denied to secret")
)

// Resolver resolves a secret by identifier.
type Resolver interface {
	Resolve(ctx context.Context, id string) (string, error)
}

// Lookup resolves id with r, or returns fallback when id is empty.
func Lookup(ctx context.Context, r Resolver, id, fallback string) (string, error) {
	if id == "" {
		return fallback, nil
	}
	value, err := r.Resolve(ctx, id)
	if err != nil {
		return "", fmt.Errorf("resolve secret %q: %w", id, err)
	}
	return value, nil
}

// =============================================================================
// Environment Resolver
// =============================================================================

// EnvResolver reads secrets from environment variables named by id.
type EnvResolver struct {
	lookupEnv func(string) (string, bool)
}

// NewEnvResolver creates a resolver backed by the process environment.
func NewEnvResolver() *EnvResolver {
	return &EnvResolver{lookupEnv: os.LookupEnv}
}

// Resolve returns the value of the environment variable id.
func (r *EnvResolver) Resolve(ctx context.Context, id string) (string, error) {
	value, ok := r.lookupEnv(id)
	if !ok {
		return "", fmt.Errorf("%s: %w", id, ErrSecretNotFound)
	}
	if value == "" {
		return "", fmt.Errorf("%s: %w", id, ErrSecretEmpty)
	}
	return value, nil
}
