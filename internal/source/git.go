// git.go clones or updates the application source tree and checks out the
// requested version. An unresolvable ref is a hard error, never a silent
// fallback to whatever was checked out before.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/stackup/internal/execx"
)

type Status string

const (
	StatusCloned  Status = "created"
	StatusUpdated Status = "exists"
)

// VersionLatest tracks the remote default branch instead of a fixed ref.
const VersionLatest = "latest"

// Sync brings dir to the requested version of repoURL. A directory with git
// metadata is fetched and fast-forwarded; anything else triggers a fresh
// clone. Returns whether the tree was cloned or updated.
func Sync(ctx context.Context, r execx.Runner, repoURL, dir, version string) (Status, error) {
	status := StatusUpdated
	if hasGitMetadata(dir) {
		fetch := git(dir, "fetch", "--tags", "--prune", "origin")
		if err := r.Run(ctx, fetch); err != nil {
			return "", fmt.Errorf("fetch %s: %w", repoURL, err)
		}
	} else {
		clone := execx.Cmd{Name: "git", Args: []string{"clone", repoURL, dir}}
		if err := r.Run(ctx, clone); err != nil {
			return "", fmt.Errorf("clone %s: %w", repoURL, err)
		}
		status = StatusCloned
	}

	if version == VersionLatest {
		branch, err := defaultBranch(ctx, r, dir)
		if err != nil {
			return "", err
		}
		if err := r.Run(ctx, git(dir, "checkout", branch)); err != nil {
			return "", fmt.Errorf("checkout %s: %w", branch, err)
		}
		if err := r.Run(ctx, git(dir, "merge", "--ff-only", "origin/"+branch)); err != nil {
			return "", fmt.Errorf("fast-forward %s: %w", branch, err)
		}
		return status, nil
	}

	// Resolve before touching the working tree so a bad ref cannot leave the
	// checkout on an unintended version.
	verify := git(dir, "rev-parse", "--verify", "--quiet", version+"^{commit}")
	if _, err := r.Output(ctx, verify); err != nil {
		return "", fmt.Errorf("version %q does not resolve to a commit in %s: %w", version, repoURL, err)
	}
	if err := r.Run(ctx, git(dir, "checkout", version)); err != nil {
		return "", fmt.Errorf("checkout %s: %w", version, err)
	}
	return status, nil
}

func defaultBranch(ctx context.Context, r execx.Runner, dir string) (string, error) {
	out, err := r.Output(ctx, git(dir, "symbolic-ref", "--short", "refs/remotes/origin/HEAD"))
	if err != nil {
		return "", fmt.Errorf("resolve default branch: %w", err)
	}
	branch := strings.TrimPrefix(strings.TrimSpace(out), "origin/")
	if branch == "" {
		branch = "main"
	}
	return branch, nil
}

func git(dir string, args ...string) execx.Cmd {
	return execx.Cmd{Name: "git", Args: append([]string{"-C", dir}, args...)}
}

func hasGitMetadata(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}
