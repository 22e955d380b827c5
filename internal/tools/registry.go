package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samzong/gca/internal/llm"
)

var (
	ErrUnknownTool       = errors.New("unknown tool")
	ErrInvalidArguments  = errors.New("invalid tool arguments")
	ErrDuplicateTool     = errors.New("tool already registered")
	errArgumentsNotAnObj = errors.New("arguments must be a JSON object")
)

// Registry maps tool names to tools, keeping registration order for the
// declarations sent to the model.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
	log   zerolog.Logger
}

func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		tools: make(map[string]Tool),
		log:   logger.With().Str("component", "tools").Logger(),
	}
}

func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Descriptor().Name
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Specs returns the declarations of every registered tool in registration order.
func (r *Registry) Specs() []llm.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]llm.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].Descriptor().Spec())
	}
	return specs
}

// Execute validates args against the named tool's schema and runs it.
// Unknown names and malformed arguments are returned as ErrUnknownTool and
// ErrInvalidArguments.
func (r *Registry) Execute(ctx context.Context, name string, args string) (string, error) {
	tool, exists := r.Get(name)
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	raw, err := validateArguments(args, tool.Descriptor().Parameters)
	if err != nil {
		return "", fmt.Errorf("%w for %s: %v", ErrInvalidArguments, name, err)
	}

	r.log.Debug().Str("tool", name).RawJSON("args", raw).Msg("executing tool")
	result, err := tool.Execute(ctx, raw)
	if err != nil {
		if errors.Is(err, ErrInvalidArguments) {
			return "", err
		}
		return "", fmt.Errorf("%w for %s: %v", ErrInvalidArguments, name, err)
	}
	r.log.Debug().Str("tool", name).Str("result", result).Msg("tool finished")
	return result, nil
}

func decodeParams(args json.RawMessage, v any) error {
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}
