// Package git wraps the git executable for the operations gca needs.
package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samzong/gca/internal/gitcmd"
	"github.com/samzong/gca/internal/gitutil"
	"github.com/samzong/gca/internal/stringsutil"
)

var (
	ErrNotRepository = errors.New("not a git repository")
	ErrEmptyMessage  = errors.New("commit message cannot be empty")
	ErrDetachedHead  = errors.New("repository is in detached HEAD state")
)

type Options struct {
	Dir     string
	Verbose bool
	Logger  zerolog.Logger
}

// Client runs git against one working directory.
type Client struct {
	runner gitcmd.Runner
	dir    string
	log    zerolog.Logger
}

func NewClient(opts Options) *Client {
	log := opts.Logger.With().Str("component", "git").Logger()
	return &Client{
		// Push must fail instead of waiting on a credential prompt.
		runner: gitcmd.Runner{Verbose: opts.Verbose, Dir: opts.Dir, Env: []string{"GIT_TERMINAL_PROMPT=0"}, Logger: log},
		dir:    opts.Dir,
		log:    log,
	}
}

// Dir returns the working directory git runs in; empty means the process cwd.
func (c *Client) Dir() string {
	return c.dir
}

func (c *Client) IsGitRepository(ctx context.Context) bool {
	result, err := c.runner.Run(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && result.StdoutString(true) == "true"
}

func (c *Client) CheckGitRepository(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.IsGitRepository(ctx) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrNotRepository
	}
	return nil
}

func (c *Client) StagedDiff(ctx context.Context) (string, error) {
	result, err := c.runner.RunLogged(ctx, "diff", "--cached")
	if err != nil {
		return "", gitutil.WrapGitError("git diff --cached failed", result, err)
	}
	return result.StdoutString(false), nil
}

func (c *Client) UnstagedDiff(ctx context.Context) (string, error) {
	result, err := c.runner.RunLogged(ctx, "diff")
	if err != nil {
		return "", gitutil.WrapGitError("git diff failed", result, err)
	}
	return result.StdoutString(false), nil
}

// UntrackedFiles lists files unknown to the index, honoring .gitignore.
// Paths are relative to the client directory.
func (c *Client) UntrackedFiles(ctx context.Context) ([]string, error) {
	result, err := c.runner.RunLogged(ctx, "ls-files", "--others", "--exclude-standard", "-z")
	if err != nil {
		return nil, gitutil.WrapGitError("git ls-files failed", result, err)
	}

	return stringsutil.SplitNonEmpty(result.StdoutString(false), "\x00"), nil
}

// ReadWorkingFile reads a working-tree file by its repository-relative path.
func (c *Client) ReadWorkingFile(path string) ([]byte, error) {
	full := path
	if c.dir != "" && !filepath.IsAbs(path) {
		full = filepath.Join(c.dir, path)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// AddAll stages every change in the working tree, including deletions.
func (c *Client) AddAll(ctx context.Context) error {
	result, err := c.runner.RunLogged(ctx, "add", "-A")
	if err != nil {
		return gitutil.WrapGitError("git add failed", result, err)
	}
	return nil
}

func (c *Client) Commit(ctx context.Context, message string, args ...string) error {
	if strings.TrimSpace(message) == "" {
		return ErrEmptyMessage
	}

	commitArgs := append([]string{"commit", "-m", message}, args...)
	result, err := c.runner.RunLogged(ctx, commitArgs...)
	if err != nil {
		return gitutil.WrapGitError("git commit failed", result, err)
	}
	return nil
}

func (c *Client) CurrentBranch(ctx context.Context) (string, error) {
	result, err := c.runner.Run(ctx, "branch", "--show-current")
	if err != nil {
		return "", gitutil.WrapGitError("git branch --show-current failed", result, err)
	}
	branch := result.StdoutString(true)
	if branch == "" {
		return "", ErrDetachedHead
	}
	return branch, nil
}

// Push pushes the current branch to its configured upstream.
func (c *Client) Push(ctx context.Context) error {
	result, err := c.runner.RunLogged(ctx, "push")
	if err != nil {
		return gitutil.WrapGitError("git push failed", result, err)
	}
	return nil
}
