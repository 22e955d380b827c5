package workflow

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samzong/gca/internal/agent"
	"github.com/samzong/gca/internal/llm"
	"github.com/samzong/gca/internal/tools"
	"github.com/samzong/gca/internal/ui"
)

// DefaultRequest is sent to the agent when the user gives no request words.
const DefaultRequest = "Generate a commit message for my changes, commit them, and push to the current branch."

const noPushRequest = "Generate a commit message for my changes and commit them. Do not push."

type AgentOptions struct {
	Request      string
	SystemPrompt string
	MaxTurns     int
	// Timeout bounds the whole run; zero disables it.
	Timeout   time.Duration
	DryRun    bool
	NoVerify  bool
	NoPush    bool
	AutoYes   bool
	OutWriter io.Writer
	ErrWriter io.Writer
	Logger    zerolog.Logger
}

type AgentFlow struct {
	git       GitClient
	llm       LLMClient
	opts      AgentOptions
	confirmer tools.Confirmer
}

func NewAgentFlow(git GitClient, llm LLMClient, opts AgentOptions) *AgentFlow {
	return &AgentFlow{
		git:       git,
		llm:       llm,
		opts:      opts,
		confirmer: &InteractivePrompter{ErrWriter: opts.ErrWriter},
	}
}

func (f *AgentFlow) SetConfirmer(c tools.Confirmer) {
	f.confirmer = c
}

// Run executes the agent against the repository and prints the transcript,
// including the partial one when the run fails.
func (f *AgentFlow) Run(ctx context.Context) (*agent.Result, error) {
	if err := f.git.CheckGitRepository(ctx); err != nil {
		return nil, err
	}

	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	var confirm tools.Confirmer
	if !f.opts.AutoYes && !f.opts.DryRun {
		confirm = f.confirmer
	}
	registry := tools.NewDefaultRegistry(tools.Options{
		Repo:       f.git,
		Collector:  f.git,
		Generator:  f.llm,
		Confirm:    confirm,
		DryRun:     f.opts.DryRun,
		NoVerify:   f.opts.NoVerify,
		EnablePush: !f.opts.NoPush,
		Logger:     f.opts.Logger,
	})

	sp := ui.NewSpinner(f.opts.ErrWriter, "Thinking...")
	controller, err := agent.New(agent.Config{
		Model:        f.llm,
		Tools:        registry,
		SystemPrompt: f.opts.SystemPrompt,
		MaxTurns:     f.opts.MaxTurns,
		Observer:     f.observer(sp),
		Logger:       f.opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	sp.Start()
	result, runErr := controller.Run(ctx, []llm.Message{llm.UserMessage(f.request())})
	sp.Stop()

	if result != nil {
		f.opts.Logger.Debug().Str("run_id", result.RunID).Int("turns", result.Turns).Err(runErr).Msg("agent run finished")
		if err := agent.WriteTranscript(f.opts.OutWriter, result.Conversation, ui.TranscriptWidth(f.opts.OutWriter)); err != nil {
			f.opts.Logger.Warn().Err(err).Msg("failed to write transcript")
		}
	}
	if runErr != nil {
		return result, fmt.Errorf("agent run failed: %w", runErr)
	}
	return result, nil
}

func (f *AgentFlow) request() string {
	request := strings.TrimSpace(f.opts.Request)
	switch {
	case request != "":
		return request
	case f.opts.NoPush:
		return noPushRequest
	default:
		return DefaultRequest
	}
}

// observer keeps the spinner running only while the model is thinking, so
// the confirmation prompt and tool progress lines are never overdrawn.
func (f *AgentFlow) observer(sp *ui.Spinner) agent.Observer {
	width := ui.TranscriptWidth(f.opts.ErrWriter)
	if width > 2 {
		width -= 2
	}
	return func(e agent.Event) {
		switch e.Kind {
		case agent.EventToolStart:
			sp.Stop()
			fmt.Fprintf(f.opts.ErrWriter, "→ %s\n", e.Call.Name)
		case agent.EventToolResult:
			fmt.Fprintf(f.opts.ErrWriter, "  %s\n", ui.FitLine(firstLine(e.Result), width))
		case agent.EventTransition:
			switch e.State {
			case agent.StateAwaitingLLM:
				sp.UpdateMessage(fmt.Sprintf("Thinking (turn %d)...", e.Turn+1))
				sp.Start()
			case agent.StateDone:
				sp.Stop()
			}
		}
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
