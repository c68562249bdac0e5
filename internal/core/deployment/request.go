package deployment

import (
	"github.com/artpar/deploybot/internal/core/domain"
	"github.com/artpar/deploybot/internal/core/template"
)

// =============================================================================
// Request Building Functions
// =============================================================================

// TemplateData builds the context templates are rendered against: the commit
// context merged with the target name.
//
// Keys: owner, repo, ref, sha, short_sha, commit, pull_request, pr, target.
// pull_request and pr are nil when the commit has no originating change.
func TemplateData(ctx domain.CommitContext, targetName string) map[string]any {
	data := map[string]any{
		"owner":     ctx.Repo.Owner,
		"repo":      ctx.Repo.Name,
		"ref":       ctx.Ref,
		"sha":       ctx.SHA,
		"short_sha": ctx.ShortSHA,
		"commit": map[string]any{
			"sha":     ctx.Commit.SHA,
			"message": ctx.Commit.Message,
			"author":  ctx.Commit.Author.Name,
			"email":   ctx.Commit.Author.Email,
			"login":   ctx.Commit.Author.Login,
			"url":     ctx.Commit.URL,
		},
		"pull_request": nil,
		"pr":           nil,
		"target":       targetName,
	}

	if pr := ctx.PullRequest; pr != nil {
		data["pull_request"] = map[string]any{
			"number":   pr.Number,
			"title":    pr.Title,
			"head_ref": pr.HeadRef,
			"head_sha": pr.HeadSHA,
			"base_ref": pr.BaseRef,
			"user":     pr.User,
			"url":      pr.URL,
		}
		data["pr"] = pr.Number
	}

	return data
}

// BuildRequest renders one sub-deployment of a target into a provider
// request. Target-level flags and required contexts are copied unmodified.
func BuildRequest(target domain.Target, spec domain.DeploymentSpec, ctx domain.CommitContext) domain.DeploymentRequest {
	data := TemplateData(ctx, target.Name)

	task := spec.Task
	if task == "" {
		task = domain.DefaultTask
	}
	env := spec.Environment
	if env == "" {
		env = domain.DefaultEnvironment
	}

	return domain.DeploymentRequest{
		Ref:                   ctx.Ref,
		Task:                  task,
		AutoMerge:             spec.AutoMerge,
		RequiredContexts:      copyContexts(target.RequiredContexts),
		Payload:               template.Value(spec.Payload, data),
		Environment:           template.String(env, data),
		Description:           template.String(spec.Description, data),
		TransientEnvironment:  target.TransientEnvironment,
		ProductionEnvironment: target.ProductionEnvironment,
	}
}

// BuildRequests renders every sub-deployment of a target, in declaration
// order.
func BuildRequests(target domain.Target, ctx domain.CommitContext) []domain.DeploymentRequest {
	reqs := make([]domain.DeploymentRequest, 0, len(target.Deployments))
	for _, spec := range target.Deployments {
		reqs = append(reqs, BuildRequest(target, spec, ctx))
	}
	return reqs
}

// Environments returns the distinct rendered environment names a target
// deploys to for the given commit, in declaration order.
func Environments(target domain.Target, ctx domain.CommitContext) []string {
	seen := make(map[string]bool, len(target.Deployments))
	var envs []string
	for _, req := range BuildRequests(target, ctx) {
		if seen[req.Environment] {
			continue
		}
		seen[req.Environment] = true
		envs = append(envs, req.Environment)
	}
	return envs
}

// copyContexts copies a required-contexts list, keeping nil distinct from
// empty.
func copyContexts(contexts []string) []string {
	if contexts == nil {
		return nil
	}
	out := make([]string, len(contexts))
	copy(out, contexts)
	return out
}
