package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/artpar/deploybot/internal/core/deployment"
	"github.com/artpar/deploybot/internal/core/domain"
)

// TeardownReport summarizes one teardown pass. Planned lists the
// environments a removal was attempted for. Errors collects every
// failure; none of them stop the pass.
type TeardownReport struct {
	Planned     []string
	Inactivated []int64
	Removed     []domain.DeploymentRecord
	Skipped     int
	Errors      []error
}

// TeardownHandler removes transient environments when a pull request
// closes.
type TeardownHandler struct {
	provider Deployments
	logger   *slog.Logger
}

// NewTeardownHandler creates a teardown handler.
func NewTeardownHandler(provider Deployments, logger *slog.Logger) *TeardownHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TeardownHandler{
		provider: provider,
		logger:   logger.With("component", "teardown"),
	}
}

// Handle marks every transient deployment of the pull request head ref
// inactive, then creates one "remove" deployment per environment from the
// latest deployment's parameters, pinned to the head sha.
func (h *TeardownHandler) Handle(ctx context.Context, ev domain.PullRequestClosedEvent) TeardownReport {
	var report TeardownReport
	pr := ev.PullRequest
	logger := h.logger.With("repo", ev.Repo.FullName(), "pull_request", pr.Number, "ref", pr.HeadRef)

	records, err := h.provider.ListDeployments(ctx, ev.Repo, domain.DeploymentFilter{Ref: pr.HeadRef})
	if err != nil {
		logger.Error("failed to list deployments", "error", err)
		report.Errors = append(report.Errors, fmt.Errorf("list deployments for %s: %w", pr.HeadRef, err))
		return report
	}

	plan := deployment.PlanTeardown(records)
	report.Planned = plan.Environments()
	report.Skipped = len(plan.Skipped)

	logger.Info("planned teardown",
		"environments", report.Planned,
		"inactivate", len(plan.Inactivate),
		"skipped", report.Skipped,
	)

	for _, record := range plan.Inactivate {
		if err := h.provider.CreateDeploymentStatus(ctx, ev.Repo, record.ID, domain.StateInactive); err != nil {
			logger.Error("failed to mark deployment inactive",
				"deployment_id", record.ID,
				"environment", record.Environment,
				"error", err,
			)
			report.Errors = append(report.Errors, fmt.Errorf("inactivate deployment %d: %w", record.ID, err))
			continue
		}
		report.Inactivated = append(report.Inactivated, record.ID)
	}

	for _, record := range plan.Removals {
		created, err := h.provider.CreateDeployment(ctx, ev.Repo, record.RemovalRequest(pr.HeadSHA))
		if err != nil {
			logger.Error("failed to remove environment",
				"environment", record.Environment,
				"error", err,
			)
			report.Errors = append(report.Errors, fmt.Errorf("remove environment %q: %w", record.Environment, err))
			continue
		}
		logger.Info("removed environment",
			"environment", record.Environment,
			"deployment_id", created.ID,
		)
		report.Removed = append(report.Removed, created)
	}

	return report
}
