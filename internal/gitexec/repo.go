// Package gitexec reads working-tree changes from git and stages commit
// boundaries by shelling out to the git binary.
package gitexec

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"stagewise/internal/boundary"
	"stagewise/internal/changes"
	"stagewise/internal/errors"
	"stagewise/internal/slogutil"
)

// DefaultTimeout bounds each git invocation
const DefaultTimeout = 30 * time.Second

// emptyTree is git's well-known empty tree object, diffed against when the
// repository has no commits yet
const emptyTree = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// Repo runs git commands in one working tree
type Repo struct {
	root    string
	timeout time.Duration
	logger  *slog.Logger
}

// Open resolves the top level of the repository containing dir
func Open(ctx context.Context, dir string, logger *slog.Logger) (*Repo, error) {
	r := &Repo{root: dir, timeout: DefaultTimeout, logger: slogutil.OrDiscard(logger)}
	top, err := r.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, errors.New(errors.GitFailed, fmt.Sprintf("%s is not inside a git repository", dir), err,
			[]errors.FixAction{
				{Type: errors.RunCommand, Command: "git status", Safe: true, Description: "Verify you're in a git repository"},
				{Type: errors.RunCommand, Command: "git init", Description: "Initialize a git repository"},
			})
	}
	r.root = strings.TrimSpace(top)
	r.logger.Debug("git repository opened", "root", r.root)
	return r, nil
}

// Root returns the repository top level
func (r *Repo) Root() string {
	return r.root
}

// WorkingTreeChanges returns every tracked change against HEAD plus
// untracked files that are not ignored
func (r *Repo) WorkingTreeChanges(ctx context.Context) ([]changes.GitChange, error) {
	base := "HEAD"
	if _, err := r.run(ctx, "rev-parse", "--verify", "--quiet", "HEAD"); err != nil {
		base = emptyTree
	}

	diff, err := r.run(ctx, "diff", base, "--no-color", "--no-ext-diff", "-M")
	if err != nil {
		return nil, err
	}
	cs, err := changes.ParseUnifiedDiff([]byte(diff))
	if err != nil {
		return nil, errors.New(errors.GitFailed, "failed to parse git diff", err, nil)
	}

	untracked, err := r.lines(ctx, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, err
	}
	for _, path := range untracked {
		c, err := r.untrackedChange(path)
		if err != nil {
			return nil, err
		}
		cs = append(cs, c)
	}

	r.logger.Debug("working tree read", "base", base, "changes", len(cs), "untracked", len(untracked))
	return cs, nil
}

func (r *Repo) untrackedChange(path string) (changes.GitChange, error) {
	data, err := os.ReadFile(filepath.Join(r.root, filepath.FromSlash(path)))
	if err != nil {
		return changes.GitChange{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return changes.GitChange{Path: path, ChangeType: changes.Added, Binary: true}, nil
	}
	text := strings.TrimSuffix(string(data), "\n")
	var lines []string
	if text != "" {
		lines = strings.Split(text, "\n")
	}
	return changes.NewChange(path, changes.Added, lines, nil), nil
}

// StageBoundary unstages everything, then stages exactly the files of b.
// Renamed files also stage their old path.
func (r *Repo) StageBoundary(ctx context.Context, b boundary.CommitBoundary) ([]string, error) {
	if len(b.Members) == 0 {
		return nil, errors.NewOperationError("stage", fmt.Sprintf("boundary %s is empty", b.ID))
	}
	if _, err := r.run(ctx, "reset", "-q"); err != nil {
		return nil, err
	}

	args := []string{"add", "-A", "--"}
	var paths []string
	for _, m := range b.Members {
		if m.Change.OldPath != "" && m.Change.OldPath != m.Change.Path {
			args = append(args, m.Change.OldPath)
		}
		args = append(args, m.Change.Path)
		paths = append(paths, m.Change.Path)
	}
	if _, err := r.run(ctx, args...); err != nil {
		return nil, err
	}

	r.logger.Info("boundary staged", "boundary", b.ID, "files", len(paths))
	return paths, nil
}

// StagedPaths lists the paths currently in the index that differ from HEAD
func (r *Repo) StagedPaths(ctx context.Context) ([]string, error) {
	return r.lines(ctx, "diff", "--cached", "--name-only", "--no-renames")
}

// run executes git with a timeout and returns stdout
func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.root
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	r.logger.Debug("executing git command", "args", args)
	out, err := cmd.Output()
	if err == nil {
		return string(out), nil
	}

	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", errors.New(errors.GitFailed, "git command timed out", err, nil).
			WithDetails(map[string]interface{}{"args": args, "timeout": r.timeout.String()})
	}
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		return "", errors.New(errors.GitFailed, "git command failed", err, errors.GetSuggestedFixes(errors.GitFailed)).
			WithDetails(map[string]interface{}{"args": args, "stderr": strings.TrimSpace(stderr.String())})
	}
	return "", errors.New(errors.GitFailed, "failed to execute git", err, nil)
}

// lines runs git and returns its non-empty output lines
func (r *Repo) lines(ctx context.Context, args ...string) ([]string, error) {
	out, err := r.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	result := []string{}
	for _, line := range strings.Split(out, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result, nil
}
