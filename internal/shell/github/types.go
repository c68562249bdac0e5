package github

import (
	"encoding/json"

	gh "github.com/google/go-github/v75/github"

	"github.com/artpar/deploybot/internal/core/domain"
)

// =============================================================================
// Conversions
// =============================================================================

// deployment extends the go-github deployment with the environment flags
// the list endpoint returns but the library does not decode.
type deployment struct {
	gh.Deployment
	TransientEnvironment  bool `json:"transient_environment"`
	ProductionEnvironment bool `json:"production_environment"`
}

func (d deployment) toDomain() domain.DeploymentRecord {
	rec := deploymentRecord(&d.Deployment)
	rec.TransientEnvironment = d.TransientEnvironment
	rec.ProductionEnvironment = d.ProductionEnvironment
	return rec
}

func deploymentRecord(d *gh.Deployment) domain.DeploymentRecord {
	return domain.DeploymentRecord{
		ID:          d.GetID(),
		Ref:         d.GetRef(),
		SHA:         d.GetSHA(),
		Task:        d.GetTask(),
		Environment: d.GetEnvironment(),
		Description: d.GetDescription(),
		Payload:     decodePayload(d.Payload),
		Creator:     d.GetCreator().GetLogin(),
		CreatedAt:   d.GetCreatedAt().Time,
	}
}

// decodePayload turns the raw deployment payload into plain JSON values.
// GitHub returns payloads created without one as an empty string or object.
func decodePayload(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

// newDeploymentRequest maps a domain request onto the go-github body.
// AutoMerge and the environment flags are always sent since the API
// defaults auto_merge to true. A nil RequiredContexts is omitted so the
// API checks every context; an empty one is sent to skip the checks.
func newDeploymentRequest(req domain.DeploymentRequest) *gh.DeploymentRequest {
	body := &gh.DeploymentRequest{
		Ref:                   gh.Ptr(req.Ref),
		AutoMerge:             gh.Ptr(req.AutoMerge),
		Payload:               req.Payload,
		TransientEnvironment:  gh.Ptr(req.TransientEnvironment),
		ProductionEnvironment: gh.Ptr(req.ProductionEnvironment),
	}
	if req.Task != "" {
		body.Task = gh.Ptr(req.Task)
	}
	if req.Environment != "" {
		body.Environment = gh.Ptr(req.Environment)
	}
	if req.Description != "" {
		body.Description = gh.Ptr(req.Description)
	}
	if req.RequiredContexts != nil {
		contexts := req.RequiredContexts
		body.RequiredContexts = &contexts
	}
	return body
}

func commit(rc *gh.RepositoryCommit) domain.Commit {
	author := rc.GetCommit().GetAuthor()
	return domain.Commit{
		SHA:     rc.GetSHA(),
		Message: rc.GetCommit().GetMessage(),
		Author: domain.Author{
			Name:  author.GetName(),
			Email: author.GetEmail(),
			Login: rc.GetAuthor().GetLogin(),
		},
		Date: author.GetDate().Time,
		URL:  rc.GetHTMLURL(),
	}
}

func pullRequest(pr *gh.PullRequest) domain.PullRequest {
	return domain.PullRequest{
		Number:  pr.GetNumber(),
		Title:   pr.GetTitle(),
		State:   pr.GetState(),
		HeadRef: pr.GetHead().GetRef(),
		HeadSHA: pr.GetHead().GetSHA(),
		BaseRef: pr.GetBase().GetRef(),
		User:    pr.GetUser().GetLogin(),
		URL:     pr.GetHTMLURL(),
	}
}
