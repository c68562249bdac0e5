package domain

import (
	"fmt"
	"time"
)

// ShortSHALength is the number of characters kept in a short commit sha.
const ShortSHALength = 7

// Repository identifies a repository on the provider.
type Repository struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// FullName returns "owner/name".
func (r Repository) FullName() string {
	return fmt.Sprintf("%s/%s", r.Owner, r.Name)
}

// Author is the author of a commit.
type Author struct {
	Name  string
	Email string
	Login string
}

// Commit is commit metadata exposed to templates.
type Commit struct {
	SHA     string
	Message string
	Author  Author
	Date    time.Time
	URL     string
}

// PullRequest is the originating change of a command or teardown.
type PullRequest struct {
	Number  int
	Title   string
	State   string
	HeadRef string
	HeadSHA string
	BaseRef string
	User    string
	URL     string
}

// CommitContext is everything known about the commit being deployed.
type CommitContext struct {
	Repo        Repository
	Ref         string
	SHA         string
	ShortSHA    string
	Commit      Commit
	PullRequest *PullRequest
}

// NewCommitContext builds a CommitContext, deriving the short sha.
func NewCommitContext(repo Repository, ref string, commit Commit, pr *PullRequest) CommitContext {
	return CommitContext{
		Repo:        repo,
		Ref:         ref,
		SHA:         commit.SHA,
		ShortSHA:    ShortSHA(commit.SHA),
		Commit:      commit,
		PullRequest: pr,
	}
}

// ShortSHA truncates a sha to ShortSHALength characters.
func ShortSHA(sha string) string {
	if len(sha) <= ShortSHALength {
		return sha
	}
	return sha[:ShortSHALength]
}
