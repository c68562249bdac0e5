package deployment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/deploybot/internal/core/domain"
)

func testContext(pr *domain.PullRequest) domain.CommitContext {
	return domain.NewCommitContext(
		domain.Repository{Owner: "acme", Name: "web"},
		"feature-x",
		domain.Commit{
			SHA:     "0123456789abcdef",
			Message: "Add feature",
			Author:  domain.Author{Name: "Ann", Email: "ann@example.com", Login: "ann"},
		},
		pr,
	)
}

// =============================================================================
// Naming Tests
// =============================================================================

func TestBranchName(t *testing.T) {
	tests := []struct {
		ref      string
		expected string
	}{
		{"refs/heads/main", "main"},
		{"heads/main", "main"},
		{"main", "main"},
		{"refs/heads/release/1.0", "release/1.0"},
		{" refs/heads/dev ", "dev"},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.expected, BranchName(tt.ref))
		})
	}
}

func TestNormalizeRef(t *testing.T) {
	assert.Equal(t, "heads/main", NormalizeRef("refs/heads/main"))
	assert.Equal(t, "heads/main", NormalizeRef("heads/main"))
	assert.Equal(t, "tags/v1", NormalizeRef("refs/tags/v1"))
}

func TestLockKey(t *testing.T) {
	repo := domain.Repository{Owner: "acme", Name: "web"}
	assert.Equal(t, "acme/web:production:main", LockKey(repo, "production", "refs/heads/main"))
	assert.Equal(t, LockKey(repo, "production", "main"), LockKey(repo, "production", "heads/main"))
	assert.NotEqual(t, LockKey(repo, "production", "main"), LockKey(repo, "staging", "main"))
}

// =============================================================================
// Request Tests
// =============================================================================

func TestBuildRequests_RendersTemplates(t *testing.T) {
	target := domain.Target{
		Name:                 "review",
		RequiredContexts:     []string{"ci/build"},
		TransientEnvironment: true,
		Deployments: []domain.DeploymentSpec{
			{
				Task:        "deploy:web",
				Environment: "pr-${{ pr }}",
				Description: "Deploy ${{ short_sha }} by ${{ commit.author }}",
				Payload:     map[string]any{"number": "${{ pr }}", "url": "https://${{ ref }}.example.com"},
				AutoMerge:   true,
			},
		},
	}
	pr := &domain.PullRequest{Number: 42, HeadRef: "feature-x"}

	reqs := BuildRequests(target, testContext(pr))

	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Equal(t, "feature-x", req.Ref)
	assert.Equal(t, "deploy:web", req.Task)
	assert.Equal(t, "pr-42", req.Environment)
	assert.Equal(t, "Deploy 0123456 by Ann", req.Description)
	assert.Equal(t, map[string]any{"number": 42, "url": "https://feature-x.example.com"}, req.Payload)
	assert.True(t, req.AutoMerge)
	assert.True(t, req.TransientEnvironment)
	assert.False(t, req.ProductionEnvironment)
	assert.Equal(t, []string{"ci/build"}, req.RequiredContexts)
}

func TestBuildRequests_Defaults(t *testing.T) {
	target := domain.Target{Name: "prod", Deployments: []domain.DeploymentSpec{{}}}

	reqs := BuildRequests(target, testContext(nil))

	require.Len(t, reqs, 1)
	assert.Equal(t, domain.DefaultTask, reqs[0].Task)
	assert.Equal(t, domain.DefaultEnvironment, reqs[0].Environment)
	assert.Nil(t, reqs[0].RequiredContexts)
}

func TestBuildRequests_EmptyContextsStayEmpty(t *testing.T) {
	target := domain.Target{
		Name:             "prod",
		RequiredContexts: []string{},
		Deployments:      []domain.DeploymentSpec{{}},
	}

	reqs := BuildRequests(target, testContext(nil))

	require.Len(t, reqs, 1)
	assert.NotNil(t, reqs[0].RequiredContexts)
	assert.Empty(t, reqs[0].RequiredContexts)
}

func TestBuildRequests_Order(t *testing.T) {
	target := domain.Target{
		Name: "multi",
		Deployments: []domain.DeploymentSpec{
			{Environment: "c"},
			{Environment: "a"},
			{Environment: "b"},
		},
	}

	reqs := BuildRequests(target, testContext(nil))

	require.Len(t, reqs, 3)
	assert.Equal(t, "c", reqs[0].Environment)
	assert.Equal(t, "a", reqs[1].Environment)
	assert.Equal(t, "b", reqs[2].Environment)
}

func TestBuildRequests_NoPullRequest(t *testing.T) {
	target := domain.Target{
		Name:        "prod",
		Deployments: []domain.DeploymentSpec{{Environment: "env-${{ pr }}", Payload: "${{ pull_request }}"}},
	}

	reqs := BuildRequests(target, testContext(nil))

	require.Len(t, reqs, 1)
	assert.Equal(t, "env-", reqs[0].Environment)
	assert.Equal(t, "", reqs[0].Payload)
}

func TestTemplateData(t *testing.T) {
	data := TemplateData(testContext(&domain.PullRequest{Number: 7, Title: "Hello"}), "review")

	assert.Equal(t, "acme", data["owner"])
	assert.Equal(t, "web", data["repo"])
	assert.Equal(t, "0123456", data["short_sha"])
	assert.Equal(t, "review", data["target"])
	assert.Equal(t, 7, data["pr"])

	pr, ok := data["pull_request"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Hello", pr["title"])
}

func TestEnvironments_Distinct(t *testing.T) {
	target := domain.Target{
		Name: "multi",
		Deployments: []domain.DeploymentSpec{
			{Task: "deploy:api", Environment: "staging"},
			{Task: "deploy:web", Environment: "staging"},
			{Task: "deploy:docs", Environment: "docs"},
		},
	}

	assert.Equal(t, []string{"staging", "docs"}, Environments(target, testContext(nil)))
}

// =============================================================================
// Auto-Deploy Tests
// =============================================================================

func TestMatchesRef(t *testing.T) {
	tests := []struct {
		autoDeployOn string
		ref          string
		expected     bool
	}{
		{"refs/heads/main", "heads/main", true},
		{"heads/main", "heads/main", true},
		{"main", "heads/main", true},
		{"refs/heads/main", "heads/dev", false},
		{"main", "heads/release/main", false},
		{"main", "tags/main", false},
		{"", "heads/main", false},
	}

	for _, tt := range tests {
		t.Run(tt.autoDeployOn+"~"+tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.expected, MatchesRef(tt.autoDeployOn, tt.ref))
		})
	}
}

func TestIsSatisfied(t *testing.T) {
	existing := []domain.DeploymentRecord{
		{ID: 1, Environment: "staging"},
		{ID: 2, Environment: "qa"},
	}

	assert.True(t, IsSatisfied(existing, []string{"production", "staging"}))
	assert.False(t, IsSatisfied(existing, []string{"production"}))
	assert.False(t, IsSatisfied(nil, []string{"production"}))
	assert.False(t, IsSatisfied(existing, nil))
}

// =============================================================================
// Command Tests
// =============================================================================

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		target string
		ok     bool
	}{
		{"simple", "/deploy staging", "staging", true},
		{"extra whitespace", "  /deploy   staging  ", "staging", true},
		{"trailing text", "/deploy staging please", "staging", true},
		{"newline", "/deploy\nstaging", "staging", true},
		{"missing target", "/deploy", "", false},
		{"missing target with space", "/deploy   ", "", false},
		{"not a command", "looks good to me", "", false},
		{"prefix glued", "/deployer staging", "", false},
		{"not at start", "please /deploy staging", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, ok := ParseCommand(tt.body)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.target, cmd.Target)
		})
	}
}

func TestIsCommand(t *testing.T) {
	assert.True(t, IsCommand("/deploy"))
	assert.True(t, IsCommand("/deploy staging"))
	assert.False(t, IsCommand("/deployer"))
	assert.False(t, IsCommand("hi"))
}

// =============================================================================
// Teardown Tests
// =============================================================================

func TestPlanTeardown_LatestPerEnvironment(t *testing.T) {
	// most recent first
	records := []domain.DeploymentRecord{
		{ID: 3, Environment: "pr-1", TransientEnvironment: true},
		{ID: 2, Environment: "pr-1-docs", TransientEnvironment: true},
		{ID: 1, Environment: "pr-1", TransientEnvironment: true},
	}

	plan := PlanTeardown(records)

	require.Len(t, plan.Inactivate, 3)
	assert.Equal(t, int64(1), plan.Inactivate[0].ID)
	assert.Equal(t, int64(2), plan.Inactivate[1].ID)
	assert.Equal(t, int64(3), plan.Inactivate[2].ID)

	require.Len(t, plan.Removals, 2)
	assert.Equal(t, int64(3), plan.Removals[0].ID)
	assert.Equal(t, int64(2), plan.Removals[1].ID)
	assert.Equal(t, []string{"pr-1", "pr-1-docs"}, plan.Environments())
	assert.Empty(t, plan.Skipped)
}

func TestPlanTeardown_SkipsNonTransient(t *testing.T) {
	records := []domain.DeploymentRecord{
		{ID: 2, Environment: "production"},
		{ID: 1, Environment: "pr-1", TransientEnvironment: true},
	}

	plan := PlanTeardown(records)

	require.Len(t, plan.Skipped, 1)
	assert.Equal(t, int64(2), plan.Skipped[0].ID)
	require.Len(t, plan.Inactivate, 1)
	assert.Equal(t, int64(1), plan.Inactivate[0].ID)
	require.Len(t, plan.Removals, 1)
	assert.Equal(t, "pr-1", plan.Removals[0].Environment)
}

func TestPlanTeardown_Empty(t *testing.T) {
	plan := PlanTeardown(nil)

	assert.Empty(t, plan.Inactivate)
	assert.Empty(t, plan.Removals)
	assert.Empty(t, plan.Skipped)
	assert.Empty(t, plan.Environments())
}
