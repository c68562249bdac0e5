// Package orchestrator turns repository events into provider deployments.
//
// It is the imperative shell around internal/core/deployment: it resolves
// deployment config, talks to the provider, and serializes work per target
// through a lock.Store.
package orchestrator

import (
	"context"

	"github.com/artpar/deploybot/internal/core/domain"
)

// =============================================================================
// Provider Interfaces
// =============================================================================

// Deployments is the subset of the provider API used to create and inspect
// deployments.
type Deployments interface {
	GetRef(ctx context.Context, repo domain.Repository, ref string) (string, error)
	GetCommit(ctx context.Context, repo domain.Repository, sha string) (domain.Commit, error)
	ListDeployments(ctx context.Context, repo domain.Repository, filter domain.DeploymentFilter) ([]domain.DeploymentRecord, error)
	CreateDeployment(ctx context.Context, repo domain.Repository, req domain.DeploymentRequest) (domain.DeploymentRecord, error)
	CreateDeploymentStatus(ctx context.Context, repo domain.Repository, id int64, state domain.DeploymentState) error
}

// PullRequests fetches pull requests.
type PullRequests interface {
	GetPullRequest(ctx context.Context, repo domain.Repository, number int) (domain.PullRequest, error)
}

// Commenter posts comments on issues and pull requests.
type Commenter interface {
	CreateComment(ctx context.Context, repo domain.Repository, number int, body string) error
}

// Permissions checks repository access.
type Permissions interface {
	CanWrite(ctx context.Context, repo domain.Repository, user string) (bool, error)
}

// ConfigSource fetches a file at a ref, base64 encoded. A missing file is
// reported with domain.ErrFileNotFound.
type ConfigSource interface {
	GetFileContents(ctx context.Context, repo domain.Repository, ref, path string) (string, error)
}

// Platform is everything the orchestrator needs from the provider.
// *github.Client satisfies it.
type Platform interface {
	Deployments
	PullRequests
	Commenter
	Permissions
}
