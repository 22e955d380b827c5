package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samzong/gca/internal/git"
	"github.com/samzong/gca/internal/llm"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const (
	GenerateMessageToolName = "generate_commit_message"
	CommitToolName          = "commit"
	PushToolName            = "push"
)

// GenerateMessageTool collects the current changes and asks the model for a
// one-line summary of them.
type GenerateMessageTool struct {
	Collector DiffCollector
	Generator MessageGenerator
}

func (t *GenerateMessageTool) Descriptor() Descriptor {
	return Descriptor{
		Name: GenerateMessageToolName,
		Description: "Inspect the repository's staged, unstaged and untracked changes and " +
			"return a one-line commit message describing them. Returns \"" +
			git.NoChangesSentinel + "\" when there is nothing to commit.",
		Parameters: emptyObject(),
	}
}

func (t *GenerateMessageTool) Execute(ctx context.Context, _ json.RawMessage) (string, error) {
	diff, err := t.Collector.CollectChanges(ctx)
	if err != nil {
		return llm.ErrorResult(err), nil
	}
	return t.Generator.GenerateCommitMessage(ctx, diff), nil
}

// CommitParams are the arguments of the commit tool.
type CommitParams struct {
	Message string `json:"message"`
}

// CommitTool stages every change and commits it with the given message.
type CommitTool struct {
	Repo     Repository
	Confirm  Confirmer
	DryRun   bool
	NoVerify bool
}

func (t *CommitTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        CommitToolName,
		Description: "Stage all changes (including untracked and deleted files) and create a git commit with the given message.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"message": {
					Type:        jsonschema.String,
					Description: "The one-line commit message to use",
				},
			},
			Required: []string{"message"},
		},
	}
}

func (t *CommitTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var params CommitParams
	if err := decodeParams(args, &params); err != nil {
		return "", err
	}

	message := strings.TrimSpace(params.Message)
	if message == "" {
		return commitFailure(git.ErrEmptyMessage), nil
	}

	if t.DryRun {
		return fmt.Sprintf("Dry run: would commit with message: %s", message), nil
	}

	if t.Confirm != nil {
		edited, ok, err := t.Confirm.ConfirmCommit(ctx, message)
		if err != nil {
			return commitFailure(err), nil
		}
		if !ok {
			return "Commit cancelled by user", nil
		}
		message = strings.TrimSpace(edited)
		if message == "" {
			return commitFailure(git.ErrEmptyMessage), nil
		}
	}

	if err := t.Repo.AddAll(ctx); err != nil {
		return commitFailure(err), nil
	}

	var extra []string
	if t.NoVerify {
		extra = append(extra, "--no-verify")
	}
	if err := t.Repo.Commit(ctx, message, extra...); err != nil {
		return commitFailure(err), nil
	}
	return fmt.Sprintf("Successfully committed changes: %s", message), nil
}

func commitFailure(err error) string {
	return fmt.Sprintf("Failed to commit changes: %v", err)
}

// PushTool pushes the current branch to its upstream.
type PushTool struct {
	Repo   Repository
	DryRun bool
}

func (t *PushTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        PushToolName,
		Description: "Push the current branch to its configured remote. Call this only after a successful commit.",
		Parameters:  emptyObject(),
	}
}

func (t *PushTool) Execute(ctx context.Context, _ json.RawMessage) (string, error) {
	branch, err := t.Repo.CurrentBranch(ctx)
	if err != nil {
		return pushFailure(err), nil
	}

	if t.DryRun {
		return fmt.Sprintf("Dry run: would push branch %s", branch), nil
	}

	if err := t.Repo.Push(ctx); err != nil {
		return pushFailure(err), nil
	}
	return fmt.Sprintf("Successfully pushed branch %s", branch), nil
}

func pushFailure(err error) string {
	return fmt.Sprintf("Failed to push: %v", err)
}
