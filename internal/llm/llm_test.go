package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/samzong/gca/internal/git"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompleter records requests and replays a canned response.
type fakeCompleter struct {
	requests []openai.ChatCompletionRequest
	respond  func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

func (f *fakeCompleter) CreateChatCompletion(
	ctx context.Context,
	req openai.ChatCompletionRequest,
) (openai.ChatCompletionResponse, error) {
	f.requests = append(f.requests, req)
	if f.respond != nil {
		return f.respond(ctx, req)
	}
	return textResponse("feat: add new feature\n\nImplement authentication"), nil
}

func textResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
			FinishReason: openai.FinishReasonStop,
		}},
	}
}

func newTestClient(f *fakeCompleter) *Client {
	return NewClient(Options{Model: "test-model", Completer: f, Logger: zerolog.Nop()})
}

func TestGenerateCommitMessage_Success(t *testing.T) {
	f := &fakeCompleter{}
	client := newTestClient(f)

	msg := client.GenerateCommitMessage(context.Background(), "diff --git a/a.go b/a.go\n+x")

	assert.Equal(t, "feat: add new feature", msg)
	require.Len(t, f.requests, 1)
	req := f.requests[0]
	assert.Equal(t, "test-model", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[1].Role)
	assert.Contains(t, req.Messages[1].Content, "+x")
	assert.Empty(t, req.Tools)
}

func TestGenerateCommitMessage_NoChangesSkipsModel(t *testing.T) {
	f := &fakeCompleter{}
	client := newTestClient(f)

	msg := client.GenerateCommitMessage(context.Background(), git.NoChangesSentinel)

	assert.Equal(t, git.NoChangesSentinel, msg)
	assert.Empty(t, f.requests)
}

func TestGenerateCommitMessage_Errors(t *testing.T) {
	tests := []struct {
		name    string
		respond func(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
		expect  string
	}{
		{
			name: "Provider error",
			respond: func(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
				return openai.ChatCompletionResponse{}, errors.New("rate limited")
			},
			expect: "rate limited",
		},
		{
			name: "No choices",
			respond: func(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
				return openai.ChatCompletionResponse{}, nil
			},
			expect: ErrEmptyResponse.Error(),
		},
		{
			name: "Blank content",
			respond: func(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
				return textResponse("  \n "), nil
			},
			expect: ErrEmptyResponse.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(&fakeCompleter{respond: tt.respond})

			msg := client.GenerateCommitMessage(context.Background(), "+change")

			assert.True(t, IsErrorResult(msg))
			assert.True(t, strings.HasPrefix(msg, "Error generating commit message: "))
			assert.Contains(t, msg, tt.expect)
		})
	}
}

func TestGenerateCommitMessage_MissingAPIKey(t *testing.T) {
	client := NewClient(Options{Model: "m", Logger: zerolog.Nop()})

	msg := client.GenerateCommitMessage(context.Background(), "+change")

	assert.True(t, IsErrorResult(msg))
	assert.Contains(t, msg, "API key not set")
}

func TestGenerateCommitMessage_TruncatesDiff(t *testing.T) {
	f := &fakeCompleter{}
	client := NewClient(Options{Model: "m", Completer: f, DiffLimit: 300, Logger: zerolog.Nop()})

	client.GenerateCommitMessage(context.Background(), strings.Repeat("x", 5000))

	require.Len(t, f.requests, 1)
	prompt := f.requests[0].Messages[1].Content
	assert.Contains(t, prompt, "...(content is too long, truncated)")
	assert.Less(t, len(prompt), 1000)
}

func TestChat_ToolRoundTrip(t *testing.T) {
	f := &fakeCompleter{respond: func(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					ID:       "call_1",
					Type:     openai.ToolTypeFunction,
					Function: openai.FunctionCall{Name: "commit", Arguments: `{"message":"Fix bug"}`},
				}},
			},
			FinishReason: openai.FinishReasonToolCalls,
		}}}, nil
	}}
	client := newTestClient(f)

	history := []Message{
		SystemMessage("sys"),
		UserMessage("commit please"),
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call_0", Name: "generate_commit_message", Arguments: "{}"}}},
		ToolResultMessage("call_0", "Fix bug"),
	}
	specs := []ToolSpec{
		{Name: "generate_commit_message", Description: "gen"},
		{Name: "commit", Description: "commit", Parameters: jsonschema.Definition{
			Type:       jsonschema.Object,
			Properties: map[string]jsonschema.Definition{"message": {Type: jsonschema.String}},
			Required:   []string{"message"},
		}},
	}

	reply, err := client.Chat(context.Background(), history, specs)
	require.NoError(t, err)

	assert.Equal(t, RoleAssistant, reply.Role)
	require.Len(t, reply.ToolCalls, 1)
	assert.Equal(t, ToolCall{ID: "call_1", Name: "commit", Arguments: `{"message":"Fix bug"}`}, reply.ToolCalls[0])

	req := f.requests[0]
	require.Len(t, req.Messages, 4)
	assert.Equal(t, "call_0", req.Messages[2].ToolCalls[0].ID)
	assert.Equal(t, openai.ToolTypeFunction, req.Messages[2].ToolCalls[0].Type)
	assert.Equal(t, "call_0", req.Messages[3].ToolCallID)
	assert.Equal(t, openai.ChatMessageRoleTool, req.Messages[3].Role)

	require.Len(t, req.Tools, 2)
	noArgs, ok := req.Tools[0].Function.Parameters.(jsonschema.Definition)
	require.True(t, ok)
	assert.Equal(t, jsonschema.Object, noArgs.Type)
	assert.NotNil(t, noArgs.Properties)
}

func TestChat_MissingAPIKey(t *testing.T) {
	client := NewClient(Options{Model: "m", Logger: zerolog.Nop()})
	_, err := client.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestChat_HonorsTimeout(t *testing.T) {
	f := &fakeCompleter{respond: func(ctx context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		<-ctx.Done()
		return openai.ChatCompletionResponse{}, ctx.Err()
	}}
	client := NewClient(Options{Model: "m", Completer: f, Timeout: 20 * time.Millisecond, Logger: zerolog.Nop()})

	_, err := client.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChat_CancelledContext(t *testing.T) {
	f := &fakeCompleter{}
	client := newTestClient(f)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Chat(ctx, []Message{UserMessage("hi")}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.requests)
}

func TestClient_HTTP(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "test-model",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call_abc",
						"type": "function",
						"function": {"name": "push", "arguments": "{}"}
					}]
				}
			}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`)
	}))
	defer server.Close()

	client := NewClient(Options{
		APIKey:  "sk-test",
		APIBase: server.URL + "/v1",
		Model:   "test-model",
		Logger:  zerolog.Nop(),
	})

	reply, err := client.Chat(context.Background(), []Message{UserMessage("push it")}, []ToolSpec{{Name: "push", Description: "push"}})
	require.NoError(t, err)
	require.Len(t, reply.ToolCalls, 1)
	assert.Equal(t, "push", reply.ToolCalls[0].Name)
	assert.Equal(t, "call_abc", reply.ToolCalls[0].ID)

	assert.Equal(t, "test-model", captured["model"])
	tools, ok := captured["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "push", fn["name"])
}

func TestClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	client := NewClient(Options{APIKey: "sk-bad", APIBase: server.URL + "/v1", Model: "m", Logger: zerolog.Nop()})

	err := client.TestConnection(context.Background())
	require.Error(t, err)
	var apiErr *openai.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.HTTPStatusCode)

	msg := client.GenerateCommitMessage(context.Background(), "+x")
	assert.True(t, IsErrorResult(msg))
	assert.Contains(t, msg, "Incorrect API key provided")
}

func TestIsErrorResult(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "failure report", in: "Error generating commit message: boom", want: true},
		{name: "lowercase error word", in: "Fix error handling in parser"},
		{name: "message starting with Error", in: "Error pages now show the request ID"},
		{name: "message starting with Errors", in: "Errors from the cache are now wrapped"},
		{name: "sentinel", in: git.NoChangesSentinel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsErrorResult(tt.in))
		})
	}
}

func TestErrorResultRoundTrip(t *testing.T) {
	msg := ErrorResult(errors.New("rate limited"))

	assert.Equal(t, "Error generating commit message: rate limited", msg)
	assert.True(t, IsErrorResult(msg))
	assert.Equal(t, "rate limited", ErrorCause(msg))
}

func TestGenerateCommitMessage_MessageStartingWithError(t *testing.T) {
	client := newTestClient(&fakeCompleter{respond: func(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		return textResponse("Error pages now show the request ID"), nil
	}})

	msg := client.GenerateCommitMessage(context.Background(), "+change")

	assert.Equal(t, "Error pages now show the request ID", msg)
	assert.False(t, IsErrorResult(msg))
}
