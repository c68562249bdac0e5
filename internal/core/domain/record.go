package domain

import "time"

// =============================================================================
// Deployment State
// =============================================================================

// DeploymentState is a deployment status state as understood by the provider.
type DeploymentState string

const (
	StateError      DeploymentState = "error"
	StateFailure    DeploymentState = "failure"
	StateInactive   DeploymentState = "inactive"
	StateInProgress DeploymentState = "in_progress"
	StateQueued     DeploymentState = "queued"
	StatePending    DeploymentState = "pending"
	StateSuccess    DeploymentState = "success"
)

// =============================================================================
// Deployment Request
// =============================================================================

// DeploymentRequest is the body submitted to the provider to create a
// deployment. A nil RequiredContexts is sent as absent so the provider
// applies its own default; an empty slice is sent as an empty list.
type DeploymentRequest struct {
	Ref                   string
	Task                  string
	AutoMerge             bool
	RequiredContexts      []string
	Payload               any
	Environment           string
	Description           string
	TransientEnvironment  bool
	ProductionEnvironment bool
}

// =============================================================================
// Deployment Record
// =============================================================================

// DeploymentRecord is a deployment as stored by the provider. It is never
// mutated locally.
type DeploymentRecord struct {
	ID                    int64
	Ref                   string
	SHA                   string
	Task                  string
	Environment           string
	Description           string
	Payload               any
	TransientEnvironment  bool
	ProductionEnvironment bool
	Creator               string
	CreatedAt             time.Time
}

// RemovalRequest builds the request that tears down the environment this
// record was deployed to. Removal is pinned to sha and never gated on
// status checks.
func (r DeploymentRecord) RemovalRequest(sha string) DeploymentRequest {
	return DeploymentRequest{
		Ref:                   sha,
		Task:                  RemoveTask,
		AutoMerge:             false,
		RequiredContexts:      []string{},
		Payload:               r.Payload,
		Environment:           r.Environment,
		Description:           r.Description,
		TransientEnvironment:  r.TransientEnvironment,
		ProductionEnvironment: r.ProductionEnvironment,
	}
}

// DeploymentFilter narrows a deployment listing. Empty fields are ignored.
type DeploymentFilter struct {
	SHA         string
	Ref         string
	Task        string
	Environment string
}
