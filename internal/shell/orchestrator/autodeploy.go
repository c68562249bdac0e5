package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/artpar/deploybot/internal/core/deployment"
	"github.com/artpar/deploybot/internal/core/domain"
	"github.com/artpar/deploybot/internal/shell/lock"
)

// =============================================================================
// Outcome Types
// =============================================================================

// OutcomeStatus describes what auto-deploy did for one target.
type OutcomeStatus string

const (
	OutcomeNoMatch    OutcomeStatus = "skipped-no-match"
	OutcomeSatisfied  OutcomeStatus = "satisfied"
	OutcomeDispatched OutcomeStatus = "dispatched"
	OutcomeFailed     OutcomeStatus = "failed"
)

// Outcome is the result of evaluating one auto-deploying target for one
// trigger ref. Err is set only when Status is OutcomeFailed.
type Outcome struct {
	Target      string
	Ref         string
	SHA         string
	Status      OutcomeStatus
	Deployments []domain.DeploymentRecord
	Err         error
}

// =============================================================================
// Evaluator
// =============================================================================

// Evaluator deploys targets whose auto_deploy_on ref matches a trigger.
type Evaluator struct {
	resolver   *Resolver
	provider   Deployments
	dispatcher *Dispatcher
	locks      *lock.Store
	logger     *slog.Logger
}

// NewEvaluator creates an auto-deploy evaluator.
func NewEvaluator(resolver *Resolver, provider Deployments, dispatcher *Dispatcher, locks *lock.Store, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		resolver:   resolver,
		provider:   provider,
		dispatcher: dispatcher,
		locks:      locks,
		logger:     logger.With("component", "auto_deploy"),
	}
}

// Evaluate runs auto-deploy for every ref the trigger affects.
// Failures are logged and reported per target; they never stop other
// targets from being evaluated.
func (e *Evaluator) Evaluate(ctx context.Context, trigger domain.RefTrigger) []Outcome {
	var outcomes []Outcome
	for _, ref := range trigger.TriggerRefs() {
		outcomes = append(outcomes, e.evaluateRef(ctx, trigger.Repository(), ref)...)
	}
	return outcomes
}

func (e *Evaluator) evaluateRef(ctx context.Context, repo domain.Repository, ref string) []Outcome {
	logger := e.logger.With("repo", repo.FullName(), "ref", ref)

	targets, err := e.resolver.Resolve(ctx, repo, deployment.BranchName(ref))
	if err != nil {
		logger.Warn("failed to resolve deployment config", "error", err)
		return nil
	}

	var outcomes []Outcome
	for _, target := range targets.All() {
		if !target.AutoDeploys() {
			continue
		}
		if !deployment.MatchesRef(target.AutoDeployOn, ref) {
			outcomes = append(outcomes, Outcome{Target: target.Name, Ref: ref, Status: OutcomeNoMatch})
			continue
		}

		outcome := e.deployTarget(ctx, repo, ref, target)
		switch outcome.Status {
		case OutcomeFailed:
			logger.Error("auto-deploy failed", "target", target.Name, "created", len(createdBefore(outcome.Err)), "error", outcome.Err)
		case OutcomeSatisfied:
			logger.Info("auto-deploy skipped, commit already deployed", "target", target.Name, "sha", outcome.SHA)
		case OutcomeDispatched:
			logger.Info("auto-deploy dispatched", "target", target.Name, "sha", outcome.SHA, "count", len(outcome.Deployments))
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// deployTarget checks and dispatches one target under its lock so that
// overlapping triggers cannot both observe "not deployed".
func (e *Evaluator) deployTarget(ctx context.Context, repo domain.Repository, ref string, target domain.Target) Outcome {
	key := deployment.LockKey(repo, target.Name, ref)

	outcome, err := lock.Do(ctx, e.locks, key, func(ctx context.Context) (Outcome, error) {
		out := Outcome{Target: target.Name, Ref: ref}

		sha, err := e.provider.GetRef(ctx, repo, deployment.NormalizeRef(ref))
		if err != nil {
			return out, fmt.Errorf("resolve ref %s: %w", ref, err)
		}
		out.SHA = sha

		commit, err := e.provider.GetCommit(ctx, repo, sha)
		if err != nil {
			return out, fmt.Errorf("get commit %s: %w", sha, err)
		}
		if commit.SHA == "" {
			commit.SHA = sha
		}
		cc := domain.NewCommitContext(repo, deployment.BranchName(ref), commit, nil)

		existing, err := e.provider.ListDeployments(ctx, repo, domain.DeploymentFilter{SHA: sha})
		if err != nil {
			return out, fmt.Errorf("list deployments for %s: %w", sha, err)
		}
		if deployment.IsSatisfied(existing, deployment.Environments(target, cc)) {
			out.Status = OutcomeSatisfied
			return out, nil
		}

		records, err := e.dispatcher.Dispatch(ctx, target, cc)
		if err != nil {
			return out, err
		}
		out.Deployments = records
		out.Status = OutcomeDispatched
		return out, nil
	})

	if err != nil {
		outcome.Target = target.Name
		outcome.Ref = ref
		outcome.Status = OutcomeFailed
		outcome.Err = err
	}
	return outcome
}
