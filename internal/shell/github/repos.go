package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	gh "github.com/google/go-github/v75/github"
	"github.com/google/go-querystring/query"

	"github.com/artpar/deploybot/internal/core/domain"
)

// listPageSize is the page size used for deployment listings.
const listPageSize = 100

// =============================================================================
// Commit and Ref Operations
// =============================================================================

// GetCommit fetches commit metadata.
func (c *Client) GetCommit(ctx context.Context, repo domain.Repository, sha string) (domain.Commit, error) {
	rc, resp, err := c.gh.Repositories.GetCommit(ctx, repo.Owner, repo.Name, sha, nil)
	if err != nil {
		return domain.Commit{}, wrapError("get commit", resp, err)
	}
	return commit(rc), nil
}

// GetRef resolves a ref such as "heads/main" to the sha it points at.
func (c *Client) GetRef(ctx context.Context, repo domain.Repository, ref string) (string, error) {
	r, resp, err := c.gh.Git.GetRef(ctx, repo.Owner, repo.Name, ref)
	if err != nil {
		return "", wrapError("get ref", resp, err)
	}
	return r.GetObject().GetSHA(), nil
}

// =============================================================================
// Deployment Operations
// =============================================================================

// ListDeployments lists deployments matching filter, most recent first,
// following every page the API reports.
func (c *Client) ListDeployments(ctx context.Context, repo domain.Repository, filter domain.DeploymentFilter) ([]domain.DeploymentRecord, error) {
	opts := &gh.DeploymentsListOptions{
		SHA:         filter.SHA,
		Ref:         filter.Ref,
		Task:        filter.Task,
		Environment: filter.Environment,
		ListOptions: gh.ListOptions{PerPage: listPageSize, Page: 1},
	}

	var records []domain.DeploymentRecord
	for {
		page, resp, err := c.listDeploymentsPage(ctx, repo, opts)
		if err != nil {
			return nil, wrapError("list deployments", resp, err)
		}
		for _, d := range page {
			records = append(records, d.toDomain())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	c.logger.Debug("listed deployments",
		"repo", repo.FullName(),
		"count", len(records),
	)
	return records, nil
}

// listDeploymentsPage fetches one page of deployments. It goes through the
// client's request path directly so the environment flags are decoded.
func (c *Client) listDeploymentsPage(ctx context.Context, repo domain.Repository, opts *gh.DeploymentsListOptions) ([]deployment, *gh.Response, error) {
	qs, err := query.Values(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("encode list options: %w", err)
	}
	u := fmt.Sprintf("repos/%s/%s/deployments?%s",
		url.PathEscape(repo.Owner), url.PathEscape(repo.Name), qs.Encode())

	req, err := c.gh.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, nil, err
	}

	var page []deployment
	resp, err := c.gh.Do(ctx, req, &page)
	if err != nil {
		return nil, resp, err
	}
	return page, resp, nil
}

// CreateDeployment creates a deployment. Only 201 Created counts as
// success; a 202 (auto-merge performed) is reported as an error since no
// deployment was created.
func (c *Client) CreateDeployment(ctx context.Context, repo domain.Repository, req domain.DeploymentRequest) (domain.DeploymentRecord, error) {
	d, resp, err := c.gh.Repositories.CreateDeployment(ctx, repo.Owner, repo.Name, newDeploymentRequest(req))
	if err != nil {
		return domain.DeploymentRecord{}, wrapError("create deployment", resp, err)
	}
	if resp.StatusCode != http.StatusCreated {
		return domain.DeploymentRecord{}, &APIError{
			StatusCode: resp.StatusCode,
			Method:     http.MethodPost,
			Path:       resp.Request.URL.Path,
			Message:    "deployment not created",
		}
	}

	record := deploymentRecord(d)
	record.TransientEnvironment = req.TransientEnvironment
	record.ProductionEnvironment = req.ProductionEnvironment

	c.logger.Info("deployment created",
		"repo", repo.FullName(),
		"deployment_id", record.ID,
		"environment", record.Environment,
		"task", record.Task,
	)
	return record, nil
}

// CreateDeploymentStatus records a new status for a deployment.
func (c *Client) CreateDeploymentStatus(ctx context.Context, repo domain.Repository, id int64, state domain.DeploymentState) error {
	_, resp, err := c.gh.Repositories.CreateDeploymentStatus(ctx, repo.Owner, repo.Name, id,
		&gh.DeploymentStatusRequest{State: gh.Ptr(string(state))})
	return wrapError("create deployment status", resp, err)
}

// =============================================================================
// Content Operations
// =============================================================================

// GetFileContents returns the base64 content of a file at ref.
// Returns domain.ErrFileNotFound if the file does not exist.
func (c *Client) GetFileContents(ctx context.Context, repo domain.Repository, ref, path string) (string, error) {
	var opts *gh.RepositoryContentGetOptions
	if ref != "" {
		opts = &gh.RepositoryContentGetOptions{Ref: ref}
	}

	file, _, resp, err := c.gh.Repositories.GetContents(ctx, repo.Owner, repo.Name, path, opts)
	if err != nil {
		err = wrapError("get contents", resp, err)
		if IsNotFound(err) {
			return "", fmt.Errorf("%s@%s: %w", path, ref, domain.ErrFileNotFound)
		}
		return "", err
	}
	if file == nil {
		return "", fmt.Errorf("%s@%s is a directory: %w", path, ref, domain.ErrFileNotFound)
	}
	if t := file.GetType(); t != "" && t != "file" {
		return "", fmt.Errorf("%s@%s is a %s: %w", path, ref, t, domain.ErrFileNotFound)
	}
	if enc := file.GetEncoding(); enc != "" && enc != "base64" {
		return "", fmt.Errorf("%s@%s: unsupported encoding %q", path, ref, enc)
	}
	if file.Content == nil {
		return "", nil
	}
	return *file.Content, nil
}

// =============================================================================
// Pull Request Operations
// =============================================================================

// GetPullRequest fetches a pull request.
func (c *Client) GetPullRequest(ctx context.Context, repo domain.Repository, number int) (domain.PullRequest, error) {
	pr, resp, err := c.gh.PullRequests.Get(ctx, repo.Owner, repo.Name, number)
	if err != nil {
		return domain.PullRequest{}, wrapError("get pull request", resp, err)
	}
	return pullRequest(pr), nil
}

// CreateComment posts a comment on an issue or pull request.
func (c *Client) CreateComment(ctx context.Context, repo domain.Repository, number int, body string) error {
	_, resp, err := c.gh.Issues.CreateComment(ctx, repo.Owner, repo.Name, number,
		&gh.IssueComment{Body: gh.Ptr(body)})
	return wrapError("create comment", resp, err)
}

// =============================================================================
// Permission Operations
// =============================================================================

// CanWrite reports whether user has write access (write, maintain or
// admin) to repo. Users that are not collaborators have no access.
func (c *Client) CanWrite(ctx context.Context, repo domain.Repository, user string) (bool, error) {
	level, resp, err := c.gh.Repositories.GetPermissionLevel(ctx, repo.Owner, repo.Name, user)
	if err != nil {
		err = wrapError("get permission level", resp, err)
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return hasWrite(level.GetPermission()) || hasWrite(level.GetRoleName()), nil
}

func hasWrite(permission string) bool {
	switch permission {
	case "admin", "maintain", "write":
		return true
	default:
		return false
	}
}
