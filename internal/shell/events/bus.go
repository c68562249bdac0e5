// Package events routes typed repository events to their handlers.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/artpar/deploybot/internal/core/domain"
	"github.com/artpar/deploybot/internal/shell/orchestrator"
)

// =============================================================================
// Handler Interfaces
// =============================================================================

// AutoDeployer handles ref-moving events.
type AutoDeployer interface {
	Evaluate(ctx context.Context, trigger domain.RefTrigger) []orchestrator.Outcome
}

// CommandRunner handles comment events.
type CommandRunner interface {
	Handle(ctx context.Context, ev domain.IssueCommentEvent) orchestrator.CommandOutcome
}

// TearDowner handles closed pull requests.
type TearDowner interface {
	Handle(ctx context.Context, ev domain.PullRequestClosedEvent) orchestrator.TeardownReport
}

// Result is what handling one event produced. Exactly one field is set for
// a routed event; all are empty for an event nobody handles.
type Result struct {
	Outcomes []orchestrator.Outcome
	Command  *orchestrator.CommandOutcome
	Teardown *orchestrator.TeardownReport
}

// =============================================================================
// Bus
// =============================================================================

// Bus dispatches events to the auto-deploy, command and teardown handlers.
type Bus struct {
	autoDeploy AutoDeployer
	commands   CommandRunner
	teardown   TearDowner
	logger     *slog.Logger

	// base is the context background work runs under. It is detached from
	// request contexts so work outlives the webhook response.
	base context.Context
	wg   sync.WaitGroup
}

// NewBus creates a new event bus. ctx bounds all asynchronous work started
// with Submit.
func NewBus(ctx context.Context, autoDeploy AutoDeployer, commands CommandRunner, teardown TearDowner, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		autoDeploy: autoDeploy,
		commands:   commands,
		teardown:   teardown,
		logger:     logger.With("component", "event_bus"),
		base:       ctx,
	}
}

// Publish handles ev synchronously.
func (b *Bus) Publish(ctx context.Context, ev domain.Event) Result {
	logger := b.logger.With("kind", ev.Kind(), "repo", ev.Repository().FullName())
	logger.Debug("dispatching event")

	switch e := ev.(type) {
	case domain.PushEvent:
		return Result{Outcomes: b.autoDeploy.Evaluate(ctx, e)}
	case domain.StatusEvent:
		return Result{Outcomes: b.autoDeploy.Evaluate(ctx, e)}
	case domain.CheckRunEvent:
		return Result{Outcomes: b.autoDeploy.Evaluate(ctx, e)}
	case domain.IssueCommentEvent:
		outcome := b.commands.Handle(ctx, e)
		return Result{Command: &outcome}
	case domain.PullRequestClosedEvent:
		report := b.teardown.Handle(ctx, e)
		return Result{Teardown: &report}
	default:
		logger.Warn("no handler registered for event")
		return Result{}
	}
}

// Submit handles ev on a background goroutine.
func (b *Bus) Submit(ev domain.Event) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.Publish(b.base, ev)
	}()
}

// Wait blocks until all submitted events have been handled.
func (b *Bus) Wait() {
	b.wg.Wait()
}
