// Package workflow wires git, the model and the tools into the gca commands.
package workflow

import (
	"context"

	"github.com/samzong/gca/internal/agent"
	"github.com/samzong/gca/internal/tools"
)

// GitClient abstracts git operations for testability.
type GitClient interface {
	tools.Repository
	tools.DiffCollector
	CheckGitRepository(ctx context.Context) error
}

// LLMClient abstracts LLM operations for testability.
type LLMClient interface {
	agent.Model
	tools.MessageGenerator
}
