package domain

// =============================================================================
// Defaults
// =============================================================================

const (
	DefaultTask        = "deploy"
	DefaultEnvironment = "production"

	// RemoveTask is the task used for teardown deployments.
	RemoveTask = "remove"
)

// =============================================================================
// Target
// =============================================================================

// DeploymentSpec is a single sub-deployment declared by a target. Environment,
// Description and Payload are templates rendered at dispatch time.
type DeploymentSpec struct {
	Task        string `json:"task"`
	Environment string `json:"environment"`
	Description string `json:"description,omitempty"`
	Payload     any    `json:"payload,omitempty"`
	AutoMerge   bool   `json:"auto_merge"`
}

// Target is a named deployment policy.
type Target struct {
	Name                  string           `json:"-"`
	AutoDeployOn          string           `json:"auto_deploy_on,omitempty"`
	RequiredContexts      []string         `json:"required_contexts"`
	TransientEnvironment  bool             `json:"transient_environment"`
	ProductionEnvironment bool             `json:"production_environment"`
	Deployments           []DeploymentSpec `json:"deployments"`
}

// AutoDeploys reports whether the target declares an auto-deploy ref.
func (t Target) AutoDeploys() bool {
	return t.AutoDeployOn != ""
}

// =============================================================================
// Targets
// =============================================================================

// LookupResult is the outcome of looking up a target by name.
type LookupResult int

const (
	LookupFound LookupResult = iota
	LookupNotFound
	LookupEmpty // present, but declares no deployments
)

func (r LookupResult) String() string {
	switch r {
	case LookupFound:
		return "found"
	case LookupNotFound:
		return "not_found"
	case LookupEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Targets is the resolved set of targets in declaration order.
type Targets struct {
	items []Target
	index map[string]int
}

// NewTargets builds a Targets collection. Later duplicates replace earlier
// entries in place.
func NewTargets(items ...Target) Targets {
	t := Targets{index: make(map[string]int, len(items))}
	for _, item := range items {
		if i, ok := t.index[item.Name]; ok {
			t.items[i] = item
			continue
		}
		t.index[item.Name] = len(t.items)
		t.items = append(t.items, item)
	}
	return t
}

// Len returns the number of targets.
func (t Targets) Len() int {
	return len(t.items)
}

// All returns the targets in declaration order.
func (t Targets) All() []Target {
	out := make([]Target, len(t.items))
	copy(out, t.items)
	return out
}

// Names returns the target names in declaration order.
func (t Targets) Names() []string {
	names := make([]string, 0, len(t.items))
	for _, item := range t.items {
		names = append(names, item.Name)
	}
	return names
}

// Lookup finds a target by name.
func (t Targets) Lookup(name string) (Target, LookupResult) {
	i, ok := t.index[name]
	if !ok {
		return Target{}, LookupNotFound
	}
	target := t.items[i]
	if len(target.Deployments) == 0 {
		return target, LookupEmpty
	}
	return target, LookupFound
}

// Select looks up a target that is ready for dispatch and converts the
// lookup outcome into an error.
func (t Targets) Select(name string) (Target, error) {
	target, result := t.Lookup(name)
	switch result {
	case LookupNotFound:
		return Target{}, &TargetError{Target: name, Err: ErrTargetNotFound}
	case LookupEmpty:
		return Target{}, &TargetError{Target: name, Err: ErrTargetHasNoDeployments}
	}
	return target, nil
}
