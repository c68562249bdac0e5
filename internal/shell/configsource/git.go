// Package configsource reads deployment config files from local git
// mirrors instead of the provider's contents API.
package configsource

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/artpar/deploybot/internal/core/domain"
)

// Opener opens the git repository backing repo.
type Opener func(repo domain.Repository) (*git.Repository, error)

// GitSource serves file contents from git repositories.
type GitSource struct {
	open   Opener
	logger *slog.Logger
}

// NewGitSource creates a source reading mirrors under root. A repository
// is looked up at <root>/<owner>/<name>.git, then <root>/<owner>/<name>.
func NewGitSource(root string, logger *slog.Logger) *GitSource {
	return NewGitSourceWithOpener(MirrorOpener(root), logger)
}

// NewGitSourceWithOpener creates a source using a custom opener.
func NewGitSourceWithOpener(open Opener, logger *slog.Logger) *GitSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitSource{
		open:   open,
		logger: logger.With("component", "git_config_source"),
	}
}

// MirrorOpener returns an Opener for mirrors laid out under root.
func MirrorOpener(root string) Opener {
	return func(repo domain.Repository) (*git.Repository, error) {
		candidates := []string{
			filepath.Join(root, repo.Owner, repo.Name+".git"),
			filepath.Join(root, repo.Owner, repo.Name),
		}
		for _, dir := range candidates {
			if _, err := os.Stat(dir); err != nil {
				continue
			}
			r, err := git.PlainOpen(dir)
			if err != nil {
				return nil, fmt.Errorf("open mirror %s: %w", dir, err)
			}
			return r, nil
		}
		return nil, fmt.Errorf("no mirror for %s under %s: %w", repo.FullName(), root, git.ErrRepositoryNotExists)
	}
}

// GetFileContents returns the base64 encoded content of path at ref.
// Returns domain.ErrFileNotFound if the ref or the file does not exist.
func (s *GitSource) GetFileContents(ctx context.Context, repo domain.Repository, ref, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r, err := s.open(repo)
	if err != nil {
		return "", err
	}

	hash, err := r.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		s.logger.Debug("ref not found in mirror", "repo", repo.FullName(), "ref", ref, "error", err)
		return "", fmt.Errorf("ref %s: %w", ref, domain.ErrFileNotFound)
	}

	commit, err := r.CommitObject(*hash)
	if err != nil {
		return "", fmt.Errorf("read commit %s: %w", hash, err)
	}

	file, err := commit.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return "", fmt.Errorf("%s@%s: %w", path, ref, domain.ErrFileNotFound)
		}
		return "", fmt.Errorf("read %s@%s: %w", path, ref, err)
	}

	content, err := file.Contents()
	if err != nil {
		return "", fmt.Errorf("read %s@%s: %w", path, ref, err)
	}

	return base64.StdEncoding.EncodeToString([]byte(content)), nil
}
