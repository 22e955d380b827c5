package gitcmd

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// Runner executes git commands with shared logging and output handling.
// Arguments are always passed as an argument vector; no shell is involved.
type Runner struct {
	Verbose bool
	Dir     string
	Env     []string
	Logger  zerolog.Logger
}

// Result contains captured stdout/stderr for a git command.
type Result struct {
	Stdout []byte
	Stderr []byte
}

func (r Result) StdoutString(trim bool) string {
	output := string(r.Stdout)
	if trim {
		return strings.TrimSpace(output)
	}
	return output
}

func (r Result) StderrString(trim bool) string {
	output := string(r.Stderr)
	if trim {
		return strings.TrimSpace(output)
	}
	return output
}

func (r Runner) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "git", args...) //#nosec G204 -- argument vector, never a shell string
	if r.Dir != "" {
		cmd.Dir = r.Dir
	}
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	return cmd
}

func (r Runner) log(args []string) {
	if !r.Verbose {
		return
	}
	r.Logger.Debug().Strs("args", args).Str("dir", r.Dir).Msg("running git")
}

// Run executes a git command and captures stdout/stderr.
func (r Runner) Run(ctx context.Context, args ...string) (Result, error) {
	return r.run(ctx, args, false)
}

// RunLogged executes a git command, logs when verbose, and captures stdout/stderr.
func (r Runner) RunLogged(ctx context.Context, args ...string) (Result, error) {
	return r.run(ctx, args, true)
}

func (r Runner) run(ctx context.Context, args []string, log bool) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if log {
		r.log(args)
	}

	cmd := r.command(ctx, args...)
	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	if err != nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return Result{Stdout: outBuf.Bytes(), Stderr: errBuf.Bytes()}, err
}
