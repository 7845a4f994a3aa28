// Package fetcher retrieves the repository context (file tree and README)
// that seeds the documentation pipeline. A fetch failure is fatal for a run:
// without the tree there is no valid input for any stage.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrRepoUnavailable is returned when the repository cannot provide a file
// tree. It might not exist, be empty, or be private without credentials.
var ErrRepoUnavailable = errors.New("could not fetch repository structure: repository might not exist, be empty or private")

// RepoIdentity is the canonical owner/repo pair a job is keyed on.
type RepoIdentity struct {
	Owner string
	Repo  string
}

// String returns the canonical "owner/repo" form.
func (r RepoIdentity) String() string {
	return r.Owner + "/" + r.Repo
}

// RepoContext is the repository input handed to the pipeline.
type RepoContext struct {
	FileTree string // newline-separated blob paths
	Readme   string
}

// Fetcher retrieves repository context. Implementations block on network
// calls and must respect context cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, repo RepoIdentity, token string) (*RepoContext, error)
}

// ParseRepo extracts the canonical identity from a repository URL or a bare
// "owner/repo" string.
func ParseRepo(repoURL string) (RepoIdentity, error) {
	s := strings.TrimSpace(repoURL)
	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")

	for _, prefix := range []string{"https://", "http://", "git@"} {
		s = strings.TrimPrefix(s, prefix)
	}
	// git@host:owner/repo form
	if i := strings.Index(s, ":"); i >= 0 && !strings.Contains(s[:i], "/") {
		s = s[i+1:]
	}

	parts := strings.Split(s, "/")
	if len(parts) < 2 {
		return RepoIdentity{}, fmt.Errorf("invalid repository URL: %q", repoURL)
	}

	// For host-qualified forms the owner/repo are the last two segments.
	owner := parts[len(parts)-2]
	repo := parts[len(parts)-1]
	if owner == "" || repo == "" {
		return RepoIdentity{}, fmt.Errorf("invalid repository URL: %q", repoURL)
	}

	return RepoIdentity{Owner: owner, Repo: repo}, nil
}
