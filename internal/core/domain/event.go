package domain

import "strings"

// =============================================================================
// Events
// =============================================================================

// EventKind names an inbound event variant.
type EventKind string

const (
	EventPush              EventKind = "push"
	EventStatus            EventKind = "status"
	EventCheckRun          EventKind = "check_run"
	EventIssueComment      EventKind = "issue_comment.created"
	EventPullRequestClosed EventKind = "pull_request.closed"
)

// Event is the closed set of events the orchestrator reacts to. Only types
// in this package implement it.
type Event interface {
	Kind() EventKind
	Repository() Repository
	isEvent()
}

// RefTrigger is implemented by events that change the state of one or more
// refs and may therefore trigger auto-deploys.
type RefTrigger interface {
	Event
	// TriggerRefs returns the affected refs in "heads/<branch>" form.
	TriggerRefs() []string
}

// PushEvent is delivered when commits are pushed to a ref.
type PushEvent struct {
	Repo Repository
	Ref  string // e.g., "refs/heads/main"
	SHA  string
}

func (PushEvent) Kind() EventKind          { return EventPush }
func (e PushEvent) Repository() Repository { return e.Repo }
func (PushEvent) isEvent()                 {}

func (e PushEvent) TriggerRefs() []string {
	return []string{strings.TrimPrefix(e.Ref, "refs/")}
}

// StatusEvent is delivered when a commit status changes.
type StatusEvent struct {
	Repo     Repository
	SHA      string
	State    string
	Context  string
	Branches []string // branch names containing the commit
}

func (StatusEvent) Kind() EventKind          { return EventStatus }
func (e StatusEvent) Repository() Repository { return e.Repo }
func (StatusEvent) isEvent()                 {}

func (e StatusEvent) TriggerRefs() []string {
	refs := make([]string, 0, len(e.Branches))
	for _, b := range e.Branches {
		refs = append(refs, "heads/"+b)
	}
	return refs
}

// CheckRunEvent is delivered when a check run completes.
type CheckRunEvent struct {
	Repo       Repository
	Name       string
	HeadBranch string
	HeadSHA    string
	Conclusion string
}

func (CheckRunEvent) Kind() EventKind          { return EventCheckRun }
func (e CheckRunEvent) Repository() Repository { return e.Repo }
func (CheckRunEvent) isEvent()                 {}

func (e CheckRunEvent) TriggerRefs() []string {
	if e.HeadBranch == "" {
		return nil
	}
	return []string{"heads/" + e.HeadBranch}
}

// IssueCommentEvent is delivered when a comment is created on an issue or
// pull request.
type IssueCommentEvent struct {
	Repo          Repository
	IssueNumber   int
	IsPullRequest bool
	Body          string
	User          string
}

func (IssueCommentEvent) Kind() EventKind          { return EventIssueComment }
func (e IssueCommentEvent) Repository() Repository { return e.Repo }
func (IssueCommentEvent) isEvent()                 {}

// PullRequestClosedEvent is delivered when a pull request is closed, merged
// or not.
type PullRequestClosedEvent struct {
	Repo        Repository
	PullRequest PullRequest
}

func (PullRequestClosedEvent) Kind() EventKind          { return EventPullRequestClosed }
func (e PullRequestClosedEvent) Repository() Repository { return e.Repo }
func (PullRequestClosedEvent) isEvent()                 {}
