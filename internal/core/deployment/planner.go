package deployment

import (
	"strings"

	"github.com/artpar/deploybot/internal/core/domain"
)

// =============================================================================
// Auto-Deploy Planning
// =============================================================================

// MatchesRef reports whether a trigger ref selects a target configured
// with autoDeployOn. Both sides are compared after NormalizeRef. A bare
// branch name in autoDeployOn ("main") also matches "heads/main".
//
// Example:
//
//	MatchesRef("refs/heads/main", "heads/main") // true
//	MatchesRef("main", "heads/main")            // true
//	MatchesRef("refs/heads/main", "heads/dev")  // false
func MatchesRef(autoDeployOn, ref string) bool {
	want := NormalizeRef(autoDeployOn)
	if want == "" {
		return false
	}
	got := NormalizeRef(ref)
	if want == got {
		return true
	}
	return !strings.Contains(want, "/") && strings.HasPrefix(got, "heads/") && BranchName(got) == want
}

// IsSatisfied reports whether any existing deployment of a commit already
// targets one of the given environments. When it does, auto-deploy for the
// target is skipped.
func IsSatisfied(existing []domain.DeploymentRecord, environments []string) bool {
	want := make(map[string]bool, len(environments))
	for _, env := range environments {
		want[env] = true
	}
	for _, record := range existing {
		if want[record.Environment] {
			return true
		}
	}
	return false
}

// =============================================================================
// Command Parsing
// =============================================================================

// ParseCommand parses a comment body of the form "/deploy <target>".
// Returns ok=false if the body is not a deploy command or names no target.
//
// Example:
//
//	cmd, ok := ParseCommand("/deploy staging")
//	// cmd.Target == "staging", ok == true
//
//	_, ok = ParseCommand("/deploy")
//	// ok == false
func ParseCommand(body string) (Command, bool) {
	fields := strings.Fields(body)
	if len(fields) == 0 || fields[0] != CommandPrefix {
		return Command{}, false
	}
	if len(fields) < 2 {
		return Command{}, false
	}
	return Command{Target: fields[1]}, true
}

// IsCommand reports whether body starts with the deploy command word,
// whether or not it is well formed.
func IsCommand(body string) bool {
	fields := strings.Fields(body)
	return len(fields) > 0 && fields[0] == CommandPrefix
}

// =============================================================================
// Teardown Planning
// =============================================================================

// PlanTeardown plans a teardown pass over the deployments of a closed
// change. records is ordered most-recent-first, as listed by the provider.
//
// The list is walked oldest first so that, per environment, the latest
// transient deployment is the one kept as the template for its removal.
// Non-transient deployments are reported as skipped and never inactivated
// or removed.
//
// Example:
//
//	// records: [prod#3, prod#2, prod#1] (all transient)
//	plan := PlanTeardown(records)
//	// plan.Inactivate: [prod#1, prod#2, prod#3]
//	// plan.Removals:   [prod#3]
func PlanTeardown(records []domain.DeploymentRecord) TeardownPlan {
	var plan TeardownPlan

	latest := make(map[string]domain.DeploymentRecord)
	var order []string

	for i := len(records) - 1; i >= 0; i-- {
		record := records[i]
		if !record.TransientEnvironment {
			plan.Skipped = append(plan.Skipped, record)
			continue
		}

		plan.Inactivate = append(plan.Inactivate, record)
		if _, seen := latest[record.Environment]; !seen {
			order = append(order, record.Environment)
		}
		latest[record.Environment] = record
	}

	for _, env := range order {
		plan.Removals = append(plan.Removals, latest[env])
	}

	return plan
}
