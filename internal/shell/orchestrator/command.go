package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/artpar/deploybot/internal/core/deployment"
	"github.com/artpar/deploybot/internal/core/domain"
	"github.com/artpar/deploybot/internal/shell/lock"
)

// DefaultFailurePrefix starts the comment posted when a command fails.
const DefaultFailurePrefix = ":rotating_light: Failed to trigger deployment. :rotating_light:\n"

// CommandStatus describes how a comment was handled.
type CommandStatus string

const (
	CommandIgnored    CommandStatus = "ignored"
	CommandDenied     CommandStatus = "denied"
	CommandDispatched CommandStatus = "dispatched"
	CommandFailed     CommandStatus = "failed"
)

// CommandOutcome is the result of handling one comment.
type CommandOutcome struct {
	Status      CommandStatus
	Target      string
	Deployments []domain.DeploymentRecord
	Err         error
	Commented   bool
}

// CommandHandlerConfig configures the command handler.
type CommandHandlerConfig struct {
	// FailurePrefix starts every failure comment.
	// Default: DefaultFailurePrefix.
	FailurePrefix string
}

// CommandHandler runs "/deploy <target>" comments on pull requests.
type CommandHandler struct {
	resolver   *Resolver
	platform   Platform
	dispatcher *Dispatcher
	locks      *lock.Store
	config     CommandHandlerConfig
	logger     *slog.Logger
}

// NewCommandHandler creates a command handler.
func NewCommandHandler(
	resolver *Resolver,
	platform Platform,
	dispatcher *Dispatcher,
	locks *lock.Store,
	config CommandHandlerConfig,
	logger *slog.Logger,
) *CommandHandler {
	if config.FailurePrefix == "" {
		config.FailurePrefix = DefaultFailurePrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandHandler{
		resolver:   resolver,
		platform:   platform,
		dispatcher: dispatcher,
		locks:      locks,
		config:     config,
		logger:     logger.With("component", "command_handler"),
	}
}

// Handle processes a created comment.
//
// Comments that are not well formed deploy commands, or that are not on a
// pull request, are ignored. A commenter without write access is denied
// silently. Every other failure is reported with exactly one comment on
// the pull request.
func (h *CommandHandler) Handle(ctx context.Context, ev domain.IssueCommentEvent) CommandOutcome {
	if !ev.IsPullRequest {
		return CommandOutcome{Status: CommandIgnored}
	}

	cmd, ok := deployment.ParseCommand(ev.Body)
	if !ok {
		if deployment.IsCommand(ev.Body) {
			h.logger.Debug("ignoring malformed deploy command",
				"repo", ev.Repo.FullName(),
				"pull_request", ev.IssueNumber,
				"user", ev.User,
			)
			return CommandOutcome{Status: CommandIgnored, Err: domain.ErrMalformedCommand}
		}
		return CommandOutcome{Status: CommandIgnored}
	}

	logger := h.logger.With(
		"repo", ev.Repo.FullName(),
		"pull_request", ev.IssueNumber,
		"user", ev.User,
		"target", cmd.Target,
	)

	outcome := CommandOutcome{Target: cmd.Target}

	pr, err := h.platform.GetPullRequest(ctx, ev.Repo, ev.IssueNumber)
	if err != nil {
		return h.fail(ctx, logger, ev, outcome, fmt.Errorf("get pull request #%d: %w", ev.IssueNumber, err))
	}

	allowed, err := h.platform.CanWrite(ctx, ev.Repo, ev.User)
	if err != nil {
		return h.fail(ctx, logger, ev, outcome, fmt.Errorf("check permission for %s: %w", ev.User, err))
	}
	if !allowed {
		logger.Info("deploy command denied")
		outcome.Status = CommandDenied
		outcome.Err = domain.ErrPermissionDenied
		return outcome
	}

	records, err := h.deploy(ctx, ev.Repo, cmd.Target, pr)
	if err != nil {
		if created := createdBefore(err); len(created) > 0 {
			logger.Warn("deployments created before failure", "count", len(created))
		}
		return h.fail(ctx, logger, ev, outcome, err)
	}
	outcome.Deployments = records

	logger.Info("deploy command dispatched", "ref", pr.HeadRef, "sha", pr.HeadSHA, "count", len(records))
	outcome.Status = CommandDispatched
	return outcome
}

// deploy resolves the target at the pull request head and dispatches it
// under the same lock key auto-deploy uses.
func (h *CommandHandler) deploy(ctx context.Context, repo domain.Repository, name string, pr domain.PullRequest) ([]domain.DeploymentRecord, error) {
	targets, err := h.resolver.Resolve(ctx, repo, pr.HeadRef)
	if err != nil {
		return nil, err
	}

	target, err := targets.Select(name)
	if err != nil {
		return nil, err
	}

	key := deployment.LockKey(repo, target.Name, pr.HeadRef)
	return lock.Do(ctx, h.locks, key, func(ctx context.Context) ([]domain.DeploymentRecord, error) {
		commit, err := h.platform.GetCommit(ctx, repo, pr.HeadSHA)
		if err != nil {
			return nil, fmt.Errorf("get commit %s: %w", pr.HeadSHA, err)
		}
		if commit.SHA == "" {
			commit.SHA = pr.HeadSHA
		}
		cc := domain.NewCommitContext(repo, pr.HeadRef, commit, &pr)
		return h.dispatcher.Dispatch(ctx, target, cc)
	})
}

func (h *CommandHandler) fail(ctx context.Context, logger *slog.Logger, ev domain.IssueCommentEvent, outcome CommandOutcome, err error) CommandOutcome {
	logger.Error("deploy command failed", "error", err)

	outcome.Status = CommandFailed
	outcome.Err = err

	body := h.config.FailurePrefix + err.Error()
	if cerr := h.platform.CreateComment(ctx, ev.Repo, ev.IssueNumber, body); cerr != nil {
		logger.Error("failed to post failure comment", "error", cerr)
		return outcome
	}
	outcome.Commented = true
	return outcome
}
