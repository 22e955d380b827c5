// Package llm talks to an OpenAI-compatible chat-completions endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samzong/gca/internal/formatter"
	"github.com/samzong/gca/internal/git"
	"github.com/sashabaranov/go-openai"
)

var (
	ErrMissingAPIKey = errors.New("API key not set, set OPENAI_API_KEY or run: gca config set api_key YOUR_API_KEY")
	ErrEmptyResponse = errors.New("LLM returned empty response")
)

// ErrorPrefix starts every string GenerateCommitMessage returns on failure.
// It is a full phrase so real messages such as "Error pages show the request ID"
// are not mistaken for failures.
const ErrorPrefix = "Error generating commit message:"

const defaultDiffLimit = 12000

// IsErrorResult reports whether a generated message is actually a failure report.
func IsErrorResult(s string) bool {
	return strings.HasPrefix(s, ErrorPrefix)
}

// ErrorResult formats err the way GenerateCommitMessage reports failures.
func ErrorResult(err error) string {
	return fmt.Sprintf("%s %v", ErrorPrefix, err)
}

// ErrorCause returns the cause part of a failure report.
func ErrorCause(s string) string {
	return strings.TrimSpace(strings.TrimPrefix(s, ErrorPrefix))
}

type Options struct {
	APIKey  string
	APIBase string
	Model   string
	// Timeout bounds each completion request; zero leaves only the caller's context.
	Timeout time.Duration
	// PromptTemplate is template text rendered around the diff; empty selects the builtin default.
	PromptTemplate string
	DiffLimit      int
	// Completer replaces the HTTP client, mostly for tests.
	Completer ChatCompleter
	Logger    zerolog.Logger
}

type Client struct {
	completer      ChatCompleter
	model          string
	timeout        time.Duration
	promptTemplate string
	diffLimit      int
	log            zerolog.Logger
}

func NewClient(opts Options) *Client {
	completer := opts.Completer
	if completer == nil && opts.APIKey != "" {
		clientConfig := openai.DefaultConfig(opts.APIKey)
		if opts.APIBase != "" {
			clientConfig.BaseURL = opts.APIBase
		}
		completer = openai.NewClientWithConfig(clientConfig)
	}

	promptTemplate := opts.PromptTemplate
	if promptTemplate == "" {
		promptTemplate, _ = formatter.GetPromptTemplate("default")
	}
	diffLimit := opts.DiffLimit
	if diffLimit <= 0 {
		diffLimit = defaultDiffLimit
	}

	return &Client{
		completer:      completer,
		model:          opts.Model,
		timeout:        opts.Timeout,
		promptTemplate: promptTemplate,
		diffLimit:      diffLimit,
		log:            opts.Logger.With().Str("component", "llm").Logger(),
	}
}

func (c *Client) Model() string {
	return c.model
}

// Chat sends the conversation with the given tool declarations and returns
// the assistant reply.
func (c *Client) Chat(ctx context.Context, msgs []Message, tools []ToolSpec) (Message, error) {
	if c.completer == nil {
		return Message{}, ErrMissingAPIKey
	}
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.completer.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toOpenAIMessages(msgs),
		Tools:    toOpenAITools(tools),
	})
	if err != nil {
		return Message{}, fmt.Errorf("failed to call LLM: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Message{}, ErrEmptyResponse
	}

	choice := resp.Choices[0]
	c.log.Debug().
		Str("model", c.model).
		Str("finish_reason", string(choice.FinishReason)).
		Int("tool_calls", len(choice.Message.ToolCalls)).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Dur("elapsed", time.Since(start)).
		Msg("chat completion")

	return fromOpenAIMessage(choice.Message), nil
}

// GenerateCommitMessage summarizes diff into a single commit-message line.
// The no-changes sentinel is returned unchanged without contacting the model.
// Failures come back as a string starting with ErrorPrefix.
func (c *Client) GenerateCommitMessage(ctx context.Context, diff string) string {
	if strings.TrimSpace(diff) == git.NoChangesSentinel {
		return git.NoChangesSentinel
	}

	message, err := c.generate(ctx, diff)
	if err != nil {
		c.log.Warn().Err(err).Msg("commit message generation failed")
		return ErrorResult(err)
	}
	return message
}

func (c *Client) generate(ctx context.Context, diff string) (string, error) {
	prompt, err := formatter.BuildPrompt(c.promptTemplate, diff, c.diffLimit)
	if err != nil {
		c.log.Warn().Err(err).Msg("prompt template failed, using simple prompt")
	}

	reply, err := c.Chat(ctx, []Message{
		SystemMessage(formatter.CommitMessageSystemPrompt),
		UserMessage(prompt),
	}, nil)
	if err != nil {
		return "", err
	}

	message := formatter.FormatCommitMessage(reply.Content)
	if message == "" {
		return "", ErrEmptyResponse
	}
	return message, nil
}

// TestConnection sends a minimal request to verify the key, base URL and model.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.Chat(ctx, []Message{UserMessage("Reply with OK.")}, nil)
	return err
}
