package deployment

import "github.com/artpar/deploybot/internal/core/domain"

// =============================================================================
// Command Types
// =============================================================================

// CommandPrefix starts every deploy command.
const CommandPrefix = "/deploy"

// Command is a parsed "/deploy <target>" comment.
type Command struct {
	Target string
}

// =============================================================================
// Teardown Plan Types
// =============================================================================

// TeardownPlan is the pure output of planning a teardown pass.
type TeardownPlan struct {
	// Inactivate lists every transient deployment, oldest first.
	Inactivate []domain.DeploymentRecord

	// Skipped lists non-transient deployments. They are never touched.
	Skipped []domain.DeploymentRecord

	// Removals holds the latest transient deployment per environment, in
	// order of each environment's first appearance.
	Removals []domain.DeploymentRecord
}

// Environments returns the environments that will be removed.
func (p TeardownPlan) Environments() []string {
	envs := make([]string, 0, len(p.Removals))
	for _, r := range p.Removals {
		envs = append(envs, r.Environment)
	}
	return envs
}
