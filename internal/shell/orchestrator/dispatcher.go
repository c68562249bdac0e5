package orchestrator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/artpar/deploybot/internal/core/deployment"
	"github.com/artpar/deploybot/internal/core/domain"
)

// Creator creates provider deployments.
type Creator interface {
	CreateDeployment(ctx context.Context, repo domain.Repository, req domain.DeploymentRequest) (domain.DeploymentRecord, error)
}

// Dispatcher submits a target's deployments to the provider.
type Dispatcher struct {
	provider Creator
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(provider Creator, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		provider: provider,
		logger:   logger.With("component", "dispatcher"),
	}
}

// Dispatch creates one deployment per sub-deployment of target, in
// declaration order, each awaited before the next.
//
// Records are returned only when every deployment was created. The first
// failure stops the run and returns a nil slice with a *domain.DispatchError
// whose Created field lists the deployments made before it.
func (d *Dispatcher) Dispatch(ctx context.Context, target domain.Target, cc domain.CommitContext) ([]domain.DeploymentRecord, error) {
	if len(target.Deployments) == 0 {
		return nil, &domain.TargetError{Target: target.Name, Err: domain.ErrTargetHasNoDeployments}
	}

	logger := d.logger.With("repo", cc.Repo.FullName(), "target", target.Name, "ref", cc.Ref)

	created := make([]domain.DeploymentRecord, 0, len(target.Deployments))
	for i, spec := range target.Deployments {
		req := deployment.BuildRequest(target, spec, cc)

		record, err := d.provider.CreateDeployment(ctx, cc.Repo, req)
		if err != nil {
			logger.Error("failed to create deployment",
				"index", i,
				"environment", req.Environment,
				"task", req.Task,
				"error", err,
			)
			return nil, &domain.DispatchError{
				Target:  target.Name,
				Index:   i,
				Request: req,
				Created: created,
				Err:     err,
			}
		}

		logger.Info("created deployment",
			"deployment_id", record.ID,
			"environment", req.Environment,
			"task", req.Task,
		)
		created = append(created, record)
	}

	return created, nil
}

// createdBefore returns the deployments a failed dispatch made before
// stopping, or nil when err is not a dispatch failure.
func createdBefore(err error) []domain.DeploymentRecord {
	var dispatchErr *domain.DispatchError
	if errors.As(err, &dispatchErr) {
		return dispatchErr.Created
	}
	return nil
}
