package orchestrator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/artpar/deploybot/internal/core/config"
	"github.com/artpar/deploybot/internal/core/domain"
)

// Resolver loads a repository's deployment config at a ref.
type Resolver struct {
	source ConfigSource
	path   string
	logger *slog.Logger
}

// NewResolver creates a resolver reading path from source. An empty path
// means config.DefaultPath.
func NewResolver(source ConfigSource, path string, logger *slog.Logger) *Resolver {
	if path == "" {
		path = config.DefaultPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		source: source,
		path:   path,
		logger: logger.With("component", "config_resolver"),
	}
}

// Path returns the config file path the resolver reads.
func (r *Resolver) Path() string {
	return r.path
}

// Resolve fetches, decodes and validates the config at ref.
//
// Errors:
//   - domain.ErrConfigNotFound if the file does not exist at ref
//   - domain.ErrConfigInvalid (as *domain.ConfigError) if it fails validation
func (r *Resolver) Resolve(ctx context.Context, repo domain.Repository, ref string) (domain.Targets, error) {
	encoded, err := r.source.GetFileContents(ctx, repo, ref, r.path)
	if err != nil {
		if errors.Is(err, domain.ErrFileNotFound) {
			return domain.Targets{}, fmt.Errorf("%w: %s at %s", domain.ErrConfigNotFound, r.path, ref)
		}
		return domain.Targets{}, fmt.Errorf("fetch %s at %s: %w", r.path, ref, err)
	}

	content, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return domain.Targets{}, domain.NewConfigError("", "content is not valid base64: "+err.Error())
	}

	targets, err := config.Parse(string(content))
	if err != nil {
		return domain.Targets{}, err
	}

	r.logger.Debug("resolved deployment config",
		"repo", repo.FullName(),
		"ref", ref,
		"targets", targets.Names(),
	)
	return targets, nil
}
