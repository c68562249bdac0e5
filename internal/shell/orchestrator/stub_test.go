package orchestrator

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/artpar/deploybot/internal/core/domain"
)

var testRepo = domain.Repository{Owner: "acme", Name: "web"}

const testConfig = `
production:
  auto_deploy_on: refs/heads/main
  required_contexts: []
  deployments:
    - environment: production
      description: "Deploy ${{ short_sha }}"
staging:
  required_contexts: ["ci/build"]
  transient_environment: true
  deployments:
    - environment: staging
    - environment: staging-docs
      task: deploy:docs
empty:
  required_contexts: []
`

// =============================================================================
// Config Source Stub
// =============================================================================

type stubSource struct {
	mu    sync.Mutex
	files map[string]string // ref -> plain content
	err   error
	calls []string
}

func newStubSource(content string, refs ...string) *stubSource {
	s := &stubSource{files: make(map[string]string)}
	for _, ref := range refs {
		s.files[ref] = content
	}
	return s
}

func (s *stubSource) GetFileContents(ctx context.Context, repo domain.Repository, ref, path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, ref)
	if s.err != nil {
		return "", s.err
	}
	content, ok := s.files[ref]
	if !ok {
		return "", fmt.Errorf("%s@%s: %w", path, ref, domain.ErrFileNotFound)
	}
	return base64.StdEncoding.EncodeToString([]byte(content)), nil
}

// =============================================================================
// Platform Stub
// =============================================================================

type statusCall struct {
	ID    int64
	State domain.DeploymentState
}

type stubPlatform struct {
	mu sync.Mutex

	refs    map[string]string // "heads/main" -> sha
	commits map[string]domain.Commit
	pulls   map[int]domain.PullRequest

	// deployments is kept most recent first, like the provider listing.
	deployments []domain.DeploymentRecord
	created     []domain.DeploymentRequest
	statuses    []statusCall
	comments    []string

	canWrite    bool
	canWriteErr error
	listErr     error
	createErr   func(req domain.DeploymentRequest) error
	statusErr   map[int64]error

	nextID int64
}

func newStubPlatform() *stubPlatform {
	return &stubPlatform{
		refs:      map[string]string{"heads/main": "sha-main"},
		commits:   map[string]domain.Commit{},
		pulls:     map[int]domain.PullRequest{},
		statusErr: map[int64]error{},
		canWrite:  true,
		nextID:    100,
	}
}

func (s *stubPlatform) GetRef(ctx context.Context, repo domain.Repository, ref string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sha, ok := s.refs[ref]
	if !ok {
		return "", fmt.Errorf("ref %s not found", ref)
	}
	return sha, nil
}

func (s *stubPlatform) GetCommit(ctx context.Context, repo domain.Repository, sha string) (domain.Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.commits[sha]; ok {
		return c, nil
	}
	return domain.Commit{SHA: sha, Message: "commit " + sha}, nil
}

func (s *stubPlatform) ListDeployments(ctx context.Context, repo domain.Repository, filter domain.DeploymentFilter) ([]domain.DeploymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.DeploymentRecord
	for _, d := range s.deployments {
		if filter.SHA != "" && d.SHA != filter.SHA {
			continue
		}
		if filter.Ref != "" && d.Ref != filter.Ref {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *stubPlatform) CreateDeployment(ctx context.Context, repo domain.Repository, req domain.DeploymentRequest) (domain.DeploymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		if err := s.createErr(req); err != nil {
			return domain.DeploymentRecord{}, err
		}
	}

	sha, ok := s.refs["heads/"+req.Ref]
	if !ok {
		sha = req.Ref
	}

	s.nextID++
	record := domain.DeploymentRecord{
		ID:                    s.nextID,
		Ref:                   req.Ref,
		SHA:                   sha,
		Task:                  req.Task,
		Environment:           req.Environment,
		Description:           req.Description,
		Payload:               req.Payload,
		TransientEnvironment:  req.TransientEnvironment,
		ProductionEnvironment: req.ProductionEnvironment,
	}
	s.created = append(s.created, req)
	s.deployments = append([]domain.DeploymentRecord{record}, s.deployments...)
	return record, nil
}

func (s *stubPlatform) CreateDeploymentStatus(ctx context.Context, repo domain.Repository, id int64, state domain.DeploymentState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.statusErr[id]; err != nil {
		return err
	}
	s.statuses = append(s.statuses, statusCall{ID: id, State: state})
	return nil
}

func (s *stubPlatform) GetPullRequest(ctx context.Context, repo domain.Repository, number int) (domain.PullRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pr, ok := s.pulls[number]
	if !ok {
		return domain.PullRequest{}, fmt.Errorf("pull request %d not found", number)
	}
	return pr, nil
}

func (s *stubPlatform) CreateComment(ctx context.Context, repo domain.Repository, number int, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments = append(s.comments, body)
	return nil
}

func (s *stubPlatform) CanWrite(ctx context.Context, repo domain.Repository, user string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canWrite, s.canWriteErr
}

func (s *stubPlatform) createdRequests() []domain.DeploymentRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.DeploymentRequest(nil), s.created...)
}
