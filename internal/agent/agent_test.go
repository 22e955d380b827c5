package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/samzong/gca/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedModel returns its replies in order and records what it was sent.
type scriptedModel struct {
	replies []llm.Message
	err     error
	seen    [][]llm.Message
	block   bool
}

func (m *scriptedModel) Chat(ctx context.Context, msgs []llm.Message, _ []llm.ToolSpec) (llm.Message, error) {
	m.seen = append(m.seen, append([]llm.Message(nil), msgs...))
	if m.block {
		<-ctx.Done()
		return llm.Message{}, ctx.Err()
	}
	if m.err != nil {
		return llm.Message{}, m.err
	}
	if len(m.seen) > len(m.replies) {
		return llm.Message{}, errors.New("script exhausted")
	}
	return m.replies[len(m.seen)-1], nil
}

// recordingTools executes by echoing, rejecting names it does not know.
type recordingTools struct {
	known []string
	calls []string
}

func (r *recordingTools) Specs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(r.known))
	for _, name := range r.known {
		specs = append(specs, llm.ToolSpec{Name: name})
	}
	return specs
}

func (r *recordingTools) Execute(_ context.Context, name, args string) (string, error) {
	for _, k := range r.known {
		if k == name {
			r.calls = append(r.calls, name)
			return fmt.Sprintf("%s done with %s", name, args), nil
		}
	}
	return "", fmt.Errorf("unknown tool: %s", name)
}

func toolReply(calls ...llm.ToolCall) llm.Message {
	return llm.Message{Role: llm.RoleAssistant, ToolCalls: calls}
}

func textReply(content string) llm.Message {
	return llm.Message{Role: llm.RoleAssistant, Content: content}
}

func newController(t *testing.T, model Model, tools Dispatcher, maxTurns int, obs Observer) *Controller {
	t.Helper()
	c, err := New(Config{Model: model, Tools: tools, MaxTurns: maxTurns, Observer: obs, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Config{Tools: &recordingTools{}})
	assert.Error(t, err)
	_, err = New(Config{Model: &scriptedModel{}})
	assert.Error(t, err)
}

func TestRun_NoToolCallsIsOneTurn(t *testing.T) {
	model := &scriptedModel{replies: []llm.Message{textReply("Nothing to do.")}}
	c := newController(t, model, &recordingTools{}, 5, nil)

	res, err := c.Run(context.Background(), []llm.Message{llm.UserMessage("hi")})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Turns)
	assert.Equal(t, "Nothing to do.", res.Final)
	require.Len(t, res.Conversation, 3)
	assert.Equal(t, llm.RoleSystem, res.Conversation[0].Role)
	assert.Equal(t, DefaultSystemPrompt, res.Conversation[0].Content)
	assert.Equal(t, llm.UserMessage("hi"), res.Conversation[1])
	assert.Equal(t, textReply("Nothing to do."), res.Conversation[2])
	assert.Equal(t, StateDone, c.State())
}

func TestRun_OneResultPerRequestInOrder(t *testing.T) {
	model := &scriptedModel{replies: []llm.Message{
		toolReply(
			llm.ToolCall{ID: "c1", Name: "generate_commit_message", Arguments: "{}"},
			llm.ToolCall{ID: "c2", Name: "commit", Arguments: `{"message":"x"}`},
			llm.ToolCall{ID: "c3", Name: "push", Arguments: "{}"},
		),
		textReply("Committed and pushed."),
	}}
	tools := &recordingTools{known: []string{"generate_commit_message", "commit", "push"}}
	c := newController(t, model, tools, 5, nil)

	res, err := c.Run(context.Background(), []llm.Message{llm.UserMessage("ship it")})

	require.NoError(t, err)
	assert.Equal(t, 2, res.Turns)
	assert.Equal(t, []string{"generate_commit_message", "commit", "push"}, tools.calls)

	// system, user, assistant(tool calls), three tool results, final assistant
	require.Len(t, res.Conversation, 7)
	for i, id := range []string{"c1", "c2", "c3"} {
		msg := res.Conversation[3+i]
		assert.Equal(t, llm.RoleTool, msg.Role)
		assert.Equal(t, id, msg.ToolCallID)
	}
	assert.Equal(t, `commit done with {"message":"x"}`, res.Conversation[4].Content)

	// the second model call sees every result
	require.Len(t, model.seen, 2)
	assert.Len(t, model.seen[1], 6)
}

func TestRun_UnknownToolGetsErrorResult(t *testing.T) {
	model := &scriptedModel{replies: []llm.Message{
		toolReply(llm.ToolCall{ID: "c1", Name: "rm_rf", Arguments: "{}"}),
		textReply("Sorry."),
	}}
	c := newController(t, model, &recordingTools{known: []string{"commit"}}, 5, nil)

	res, err := c.Run(context.Background(), nil)

	require.NoError(t, err)
	require.Len(t, res.Conversation, 4)
	assert.Equal(t, llm.ToolResultMessage("c1", "unknown tool: rm_rf"), res.Conversation[2])
}

func TestRun_MissingCallIDsAreFilled(t *testing.T) {
	model := &scriptedModel{replies: []llm.Message{
		toolReply(llm.ToolCall{Name: "commit", Arguments: "{}"}),
		textReply("done"),
	}}
	c := newController(t, model, &recordingTools{known: []string{"commit"}}, 0, nil)

	res, err := c.Run(context.Background(), []llm.Message{llm.UserMessage("go")})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.RunID, "run-"))
	assistant, tool := res.Conversation[2], res.Conversation[3]
	require.Len(t, assistant.ToolCalls, 1)
	assert.True(t, strings.HasPrefix(assistant.ToolCalls[0].ID, "call-"))
	assert.Equal(t, assistant.ToolCalls[0].ID, tool.ToolCallID)
}

func TestRun_MaxTurns(t *testing.T) {
	var replies []llm.Message
	for i := 0; i < 5; i++ {
		replies = append(replies, toolReply(llm.ToolCall{ID: fmt.Sprintf("c%d", i), Name: "commit", Arguments: "{}"}))
	}
	model := &scriptedModel{replies: replies}
	c := newController(t, model, &recordingTools{known: []string{"commit"}}, 3, nil)

	res, err := c.Run(context.Background(), []llm.Message{llm.UserMessage("loop")})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxTurns)
	assert.Equal(t, 3, res.Turns)
	assert.Len(t, model.seen, 3)
	// partial conversation keeps every completed turn
	assert.Len(t, res.Conversation, 2+3*2)
}

func TestRun_Timeout(t *testing.T) {
	model := &scriptedModel{block: true}
	c := newController(t, model, &recordingTools{}, 5, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := c.Run(ctx, []llm.Message{llm.UserMessage("hi")})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, res.Conversation, 2)
}

func TestRun_Cancelled(t *testing.T) {
	model := &scriptedModel{replies: []llm.Message{textReply("never")}}
	c := newController(t, model, &recordingTools{}, 5, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Run(ctx, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Empty(t, model.seen)
}

func TestRun_ModelFailure(t *testing.T) {
	model := &scriptedModel{err: errors.New("503 service unavailable")}
	c := newController(t, model, &recordingTools{}, 5, nil)

	res, err := c.Run(context.Background(), []llm.Message{llm.UserMessage("hi")})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503 service unavailable")
	assert.NotErrorIs(t, err, ErrMaxTurns)
	assert.Equal(t, 1, res.Turns)
}

func TestRun_ObserverSeesTransitions(t *testing.T) {
	model := &scriptedModel{replies: []llm.Message{
		toolReply(llm.ToolCall{ID: "c1", Name: "commit", Arguments: "{}"}),
		textReply("done"),
	}}
	var events []string
	obs := func(e Event) {
		switch e.Kind {
		case EventTransition:
			events = append(events, e.From.String()+"->"+e.State.String())
		case EventToolStart:
			events = append(events, "start "+e.Call.Name)
		case EventToolResult:
			events = append(events, "result "+e.Result)
		}
	}
	c := newController(t, model, &recordingTools{known: []string{"commit"}}, 5, obs)

	_, err := c.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"awaiting-llm->awaiting-tool",
		"start commit",
		"result commit done with {}",
		"awaiting-tool->awaiting-llm",
		"awaiting-llm->done",
	}, events)
}

func TestRun_CustomSystemPrompt(t *testing.T) {
	model := &scriptedModel{replies: []llm.Message{textReply("ok")}}
	c, err := New(Config{Model: model, Tools: &recordingTools{}, SystemPrompt: "be brief", Logger: zerolog.Nop()})
	require.NoError(t, err)

	res, err := c.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "be brief", res.Conversation[0].Content)
}

func TestDefaultSystemPrompt_QuotesFailureMarker(t *testing.T) {
	assert.Contains(t, DefaultSystemPrompt, `"`+llm.ErrorPrefix+`"`)
	assert.Contains(t, DefaultSystemPrompt, `"No changes detected."`)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting-llm", StateAwaitingLLM.String())
	assert.Equal(t, "awaiting-tool", StateAwaitingTool.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "state(9)", State(9).String())
}

func TestWriteTranscript(t *testing.T) {
	msgs := []llm.Message{
		llm.SystemMessage("hidden"),
		llm.UserMessage("commit my work"),
		toolReply(llm.ToolCall{ID: "c1", Name: "commit", Arguments: `{"message":"Add a"}`}),
		llm.ToolResultMessage("c1", "Successfully committed changes: Add a"),
		textReply("Done."),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTranscript(&buf, msgs, 40))
	out := buf.String()

	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "── user ")
	assert.Contains(t, out, `commit({"message":"Add a"})`)
	assert.Contains(t, out, "── tool c1 ")
	assert.Contains(t, out, "Successfully committed changes: Add a")
	assert.Less(t, strings.Index(out, "commit my work"), strings.Index(out, "Done."))

	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if strings.HasPrefix(line, "──") {
			assert.Equal(t, 40, len([]rune(line)))
		}
	}
}
