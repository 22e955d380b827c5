package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/samzong/gca/internal/git"
	"github.com/samzong/gca/internal/llm"
	"github.com/samzong/gca/internal/ui"
)

var ErrNoChanges = errors.New("no changes detected in the working tree")

type MessageOptions struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// MessageFlow generates and prints a commit message without committing.
type MessageFlow struct {
	git  GitClient
	llm  LLMClient
	opts MessageOptions
}

func NewMessageFlow(git GitClient, llm LLMClient, opts MessageOptions) *MessageFlow {
	return &MessageFlow{git: git, llm: llm, opts: opts}
}

func (f *MessageFlow) Run(ctx context.Context) (string, error) {
	if err := f.git.CheckGitRepository(ctx); err != nil {
		return "", err
	}

	diff, err := f.git.CollectChanges(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to collect changes: %w", err)
	}
	if strings.TrimSpace(diff) == git.NoChangesSentinel {
		return "", ErrNoChanges
	}

	sp := ui.NewSpinner(f.opts.ErrWriter, "Generating commit message...")
	sp.Start()
	message := f.llm.GenerateCommitMessage(ctx, diff)
	sp.Stop()

	if llm.IsErrorResult(message) {
		return "", fmt.Errorf("failed to generate commit message: %s", llm.ErrorCause(message))
	}

	fmt.Fprintln(f.opts.OutWriter, message)
	return message, nil
}
