// Package tools holds the fixed set of git tools offered to the model.
package tools

import (
	"context"
	"encoding/json"

	"github.com/samzong/gca/internal/llm"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// Descriptor names a tool and the JSON schema of its arguments.
type Descriptor struct {
	Name        string
	Description string
	Parameters  jsonschema.Definition
}

func (d Descriptor) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        d.Name,
		Description: d.Description,
		Parameters:  d.Parameters,
	}
}

// Tool is a named operation the model may invoke. Execute reports failures of
// the underlying operation in its result string; the error return is reserved
// for arguments that cannot be decoded.
type Tool interface {
	Descriptor() Descriptor
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// DiffCollector gathers the working-tree changes as text.
type DiffCollector interface {
	CollectChanges(ctx context.Context) (string, error)
}

// MessageGenerator turns change text into a one-line commit message.
type MessageGenerator interface {
	GenerateCommitMessage(ctx context.Context, diff string) string
}

// Repository is the git surface the commit and push tools drive.
type Repository interface {
	AddAll(ctx context.Context) error
	Commit(ctx context.Context, message string, args ...string) error
	CurrentBranch(ctx context.Context) (string, error)
	Push(ctx context.Context) error
}

// Confirmer asks the user to approve a commit. It returns the message to use,
// which may have been edited, and whether to proceed.
type Confirmer interface {
	ConfirmCommit(ctx context.Context, message string) (string, bool, error)
}

func emptyObject() jsonschema.Definition {
	return jsonschema.Definition{
		Type:       jsonschema.Object,
		Properties: map[string]jsonschema.Definition{},
	}
}
