// Package deployment provides pure functions for deployment planning.
//
// This package contains the functional core logic for turning resolved
// targets and commit contexts into provider requests. All functions are pure
// (no I/O, no side effects).
//
// # Functions
//
//   - Requests: Render a target's sub-deployments into requests (BuildRequests)
//   - Refs: Normalize refs and build lock keys (NormalizeRef, BranchName, LockKey)
//   - Auto-deploy: Match trigger refs and detect deployed commits (MatchesRef, IsSatisfied)
//   - Commands: Parse "/deploy <target>" comments (ParseCommand)
//   - Teardown: Plan inactivation and removal of transient deployments (PlanTeardown)
//
// # Usage
//
// The imperative shell (internal/shell/orchestrator) uses these pure
// functions to plan work, then executes it against the provider.
//
//	reqs := deployment.BuildRequests(target, commitCtx)
//	plan := deployment.PlanTeardown(records)
package deployment
