// Package agent runs the model/tool loop that drives a commit.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samzong/gca/internal/llm"
)

// DefaultMaxTurns bounds the number of model calls in one run.
const DefaultMaxTurns = 10

var (
	ErrMaxTurns = errors.New("agent exceeded the maximum number of turns")
	ErrTimeout  = errors.New("agent run timed out")

	errNoModel = errors.New("agent requires a model")
	errNoTools = errors.New("agent requires a tool dispatcher")
)

// State is the controller's position in the loop.
type State int

const (
	StateAwaitingLLM State = iota
	StateAwaitingTool
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitingLLM:
		return "awaiting-llm"
	case StateAwaitingTool:
		return "awaiting-tool"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type ToolCall = llm.ToolCall

// Conversation is the ordered, append-only message history of one run.
type Conversation []llm.Message

// Model produces the next assistant message for a conversation.
type Model interface {
	Chat(ctx context.Context, msgs []llm.Message, tools []llm.ToolSpec) (llm.Message, error)
}

// Dispatcher declares the available tools and executes them by name.
type Dispatcher interface {
	Specs() []llm.ToolSpec
	Execute(ctx context.Context, name string, args string) (string, error)
}

type Config struct {
	Model        Model
	Tools        Dispatcher
	SystemPrompt string
	MaxTurns     int
	Observer     Observer
	Logger       zerolog.Logger
}

// Result is what a run produced. On error it still carries the conversation
// up to the failure.
type Result struct {
	// RunID tags every log line of the run.
	RunID        string
	Conversation Conversation
	Turns        int
	// Final is the content of the closing assistant message.
	Final string
}

type Controller struct {
	model    Model
	tools    Dispatcher
	system   string
	maxTurns int
	observer Observer
	base     zerolog.Logger
	log      zerolog.Logger
	state    State
}

func New(cfg Config) (*Controller, error) {
	if cfg.Model == nil {
		return nil, errNoModel
	}
	if cfg.Tools == nil {
		return nil, errNoTools
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	system := cfg.SystemPrompt
	if system == "" {
		system = DefaultSystemPrompt
	}

	log := cfg.Logger.With().Str("component", "agent").Logger()
	return &Controller{
		model:    cfg.Model,
		tools:    cfg.Tools,
		system:   system,
		maxTurns: maxTurns,
		observer: cfg.Observer,
		base:     log,
		log:      log,
		state:    StateAwaitingLLM,
	}, nil
}

// State reports where the most recent run stopped.
func (c *Controller) State() State {
	return c.state
}

// Run seeds the conversation with the system prompt and msgs, then alternates
// between model calls and tool execution until the model answers without
// requesting a tool. Tool requests of one turn run sequentially in order and
// each gets exactly one result message.
func (c *Controller) Run(ctx context.Context, msgs []llm.Message) (*Result, error) {
	res := &Result{RunID: newID("run"), Conversation: make(Conversation, 0, len(msgs)+1)}
	c.log = c.base.With().Str("run_id", res.RunID).Logger()
	res.Conversation = append(res.Conversation, llm.SystemMessage(c.system))
	res.Conversation = append(res.Conversation, msgs...)

	c.state = StateAwaitingLLM
	specs := c.tools.Specs()

	for {
		if err := ctx.Err(); err != nil {
			return res, c.contextError(err)
		}
		if res.Turns >= c.maxTurns {
			c.log.Warn().Int("max_turns", c.maxTurns).Msg("turn limit reached")
			return res, fmt.Errorf("%w (%d)", ErrMaxTurns, c.maxTurns)
		}
		res.Turns++

		reply, err := c.model.Chat(ctx, res.Conversation, specs)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, c.contextError(ctxErr)
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return res, fmt.Errorf("%w: %w", ErrTimeout, err)
			}
			return res, fmt.Errorf("model call failed on turn %d: %w", res.Turns, err)
		}
		reply.Role = llm.RoleAssistant
		reply.ToolCallID = ""
		// Some compatible backends omit call IDs; results must still pair up.
		for i := range reply.ToolCalls {
			if reply.ToolCalls[i].ID == "" {
				reply.ToolCalls[i].ID = newID("call")
			}
		}
		res.Conversation = append(res.Conversation, reply)

		if len(reply.ToolCalls) == 0 {
			c.transition(StateDone, res.Turns)
			res.Final = reply.Content
			return res, nil
		}

		c.transition(StateAwaitingTool, res.Turns)
		for i := range reply.ToolCalls {
			call := reply.ToolCalls[i]
			result := c.execute(ctx, res.Turns, call)
			res.Conversation = append(res.Conversation, llm.ToolResultMessage(call.ID, result))
		}
		c.transition(StateAwaitingLLM, res.Turns)
	}
}

func (c *Controller) execute(ctx context.Context, turn int, call ToolCall) string {
	c.notify(Event{Kind: EventToolStart, State: c.state, Turn: turn, Call: call})

	result, err := c.tools.Execute(ctx, call.Name, call.Arguments)
	if err != nil {
		c.log.Warn().Err(err).Str("tool", call.Name).Msg("tool request rejected")
		result = err.Error()
	} else {
		c.log.Info().Str("tool", call.Name).Str("result", result).Msg("tool executed")
	}

	c.notify(Event{Kind: EventToolResult, State: c.state, Turn: turn, Call: call, Result: result, Err: err})
	return result
}

func (c *Controller) transition(to State, turn int) {
	from := c.state
	c.state = to
	c.log.Debug().Str("from", from.String()).Str("to", to.String()).Int("turn", turn).Msg("state transition")
	c.notify(Event{Kind: EventTransition, From: from, State: to, Turn: turn})
}

func (c *Controller) notify(e Event) {
	if c.observer != nil {
		c.observer(e)
	}
}

func newID(prefix string) string {
	return prefix + "-" + uuid.New().String()[:8]
}

func (c *Controller) contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
