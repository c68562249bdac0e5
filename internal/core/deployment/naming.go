package deployment

import (
	"fmt"
	"strings"

	"github.com/artpar/deploybot/internal/core/domain"
)

// =============================================================================
// Ref and Key Functions
// =============================================================================

// NormalizeRef strips a leading "refs/" so that refs can be compared and
// resolved through the provider's git ref API.
//
// Example:
//
//	NormalizeRef("refs/heads/main") // returns "heads/main"
//	NormalizeRef("heads/main")      // returns "heads/main"
func NormalizeRef(ref string) string {
	return strings.TrimPrefix(strings.TrimSpace(ref), "refs/")
}

// BranchName returns the short branch name of a ref.
//
// Example:
//
//	BranchName("refs/heads/main") // returns "main"
//	BranchName("heads/release/1") // returns "release/1"
//	BranchName("main")            // returns "main"
func BranchName(ref string) string {
	return strings.TrimPrefix(NormalizeRef(ref), "heads/")
}

// LockKey generates the serialization key for dispatching a target at a ref.
// Pattern: {owner}/{repo}:{target}:{branch}
//
// Example:
//
//	LockKey(domain.Repository{Owner: "acme", Name: "web"}, "production", "refs/heads/main")
//	// returns "acme/web:production:main"
func LockKey(repo domain.Repository, target, ref string) string {
	return fmt.Sprintf("%s:%s:%s", repo.FullName(), target, BranchName(ref))
}
