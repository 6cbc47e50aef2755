package fetch

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"go.trai.ch/forage/internal/core/domain"
	"go.trai.ch/zerr"
)

// fetchGit clones the repository into dest and returns the checked-out
// commit SHA. Branch and tag references ride on the clone itself; a pinned
// revision needs a fetch of that object followed by a detached checkout,
// since git cannot shallow-clone an arbitrary SHA directly.
func (f *Fetcher) fetchGit(ctx context.Context, src domain.Git, dest string) (string, error) {
	if rev, pinned := src.CommitSHA(); pinned {
		for i, args := range revArgs(src, rev, dest) {
			// The clone runs from the working directory; everything
			// after it runs inside the fresh checkout.
			dir := dest
			if i == 0 {
				dir = ""
			}
			if _, err := f.runGit(ctx, dir, args...); err != nil {
				return "", err
			}
		}
	} else {
		if _, err := f.runGit(ctx, "", cloneArgs(src, dest)...); err != nil {
			return "", err
		}
	}

	out, err := f.runGit(ctx, dest, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// cloneArgs builds the shallow clone command for an unpinned source or one
// pinned to a branch or tag.
func cloneArgs(src domain.Git, dest string) []string {
	args := []string{"clone", "--depth", "1", "--no-tags"}
	if name, ok := src.BranchName(); ok {
		args = append(args, "--branch", name)
	}
	if src.Recursive {
		args = append(args, "--recurse-submodules", "--shallow-submodules")
	}
	return append(args, src.URL, dest)
}

// cloneRevArgs builds the initial clone for a revision-pinned source. The
// wanted commit may not be reachable from the default branch tip, so the
// clone stays unnarrowed and submodules wait until after the checkout.
func cloneRevArgs(src domain.Git, dest string) []string {
	return []string{"clone", "--no-tags", src.URL, dest}
}

// revArgs lists the commands, in order, that materialize a revision-pinned
// source: clone, fetch the pinned object, detach onto it, and only then
// populate submodules so they match the pinned commit rather than the
// default branch tip.
func revArgs(src domain.Git, rev, dest string) [][]string {
	steps := [][]string{
		cloneRevArgs(src, dest),
		{"fetch", "--depth", "1", "origin", rev},
		{"checkout", "--detach", rev},
	}
	if src.Recursive {
		steps = append(steps, []string{"submodule", "update", "--init", "--recursive", "--depth", "1"})
	}
	return steps
}

// runGit executes git with the given arguments, returning its stdout. A
// non-zero exit surfaces as a domain.SubprocessError carrying the captured
// stderr.
func (f *Fetcher) runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	f.logger.Info("running git " + strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return "", zerr.Wrap(&domain.SubprocessError{
			Command:  "git " + strings.Join(args, " "),
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(stderr.String()),
		}, "git command failed")
	}
	return stdout.String(), nil
}
