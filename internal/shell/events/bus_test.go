package events

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/deploybot/internal/core/domain"
	"github.com/artpar/deploybot/internal/shell/orchestrator"
)

var testRepo = domain.Repository{Owner: "acme", Name: "web"}

type recorder struct {
	mu    sync.Mutex
	kinds []domain.EventKind
}

func (r *recorder) record(kind domain.EventKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
}

func (r *recorder) Evaluate(ctx context.Context, trigger domain.RefTrigger) []orchestrator.Outcome {
	r.record(trigger.Kind())
	return []orchestrator.Outcome{{Target: "production", Status: orchestrator.OutcomeDispatched}}
}

type commandRecorder struct{ *recorder }

func (r commandRecorder) Handle(ctx context.Context, ev domain.IssueCommentEvent) orchestrator.CommandOutcome {
	r.record(ev.Kind())
	return orchestrator.CommandOutcome{Status: orchestrator.CommandIgnored}
}

type teardownRecorder struct{ *recorder }

func (r teardownRecorder) Handle(ctx context.Context, ev domain.PullRequestClosedEvent) orchestrator.TeardownReport {
	r.record(ev.Kind())
	return orchestrator.TeardownReport{Skipped: 1}
}

func newTestBus(r *recorder) *Bus {
	return NewBus(context.Background(), r, commandRecorder{r}, teardownRecorder{r}, nil)
}

func TestBus_PublishRoutesByType(t *testing.T) {
	r := &recorder{}
	bus := newTestBus(r)
	ctx := context.Background()

	res := bus.Publish(ctx, domain.PushEvent{Repo: testRepo, Ref: "refs/heads/main"})
	require.Len(t, res.Outcomes, 1)

	res = bus.Publish(ctx, domain.StatusEvent{Repo: testRepo, Branches: []string{"main"}})
	require.Len(t, res.Outcomes, 1)

	res = bus.Publish(ctx, domain.CheckRunEvent{Repo: testRepo, HeadBranch: "main"})
	require.Len(t, res.Outcomes, 1)

	res = bus.Publish(ctx, domain.IssueCommentEvent{Repo: testRepo, Body: "/deploy x"})
	require.NotNil(t, res.Command)
	assert.Equal(t, orchestrator.CommandIgnored, res.Command.Status)

	res = bus.Publish(ctx, domain.PullRequestClosedEvent{Repo: testRepo})
	require.NotNil(t, res.Teardown)
	assert.Equal(t, 1, res.Teardown.Skipped)

	assert.Equal(t, []domain.EventKind{
		domain.EventPush,
		domain.EventStatus,
		domain.EventCheckRun,
		domain.EventIssueComment,
		domain.EventPullRequestClosed,
	}, r.kinds)
}

func TestBus_SubmitAndWait(t *testing.T) {
	r := &recorder{}
	bus := newTestBus(r)

	for i := 0; i < 10; i++ {
		bus.Submit(domain.PushEvent{Repo: testRepo, Ref: "refs/heads/main"})
	}
	bus.Wait()

	assert.Len(t, r.kinds, 10)
}
