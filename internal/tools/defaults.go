package tools

import "github.com/rs/zerolog"

type Options struct {
	Repo      Repository
	Collector DiffCollector
	Generator MessageGenerator
	// Confirm is consulted before every commit; nil commits without asking.
	Confirm    Confirmer
	DryRun     bool
	NoVerify   bool
	EnablePush bool
	Logger     zerolog.Logger
}

// NewDefaultRegistry registers the message, commit and (optionally) push tools.
func NewDefaultRegistry(opts Options) *Registry {
	registry := NewRegistry(opts.Logger)

	tools := []Tool{
		&GenerateMessageTool{Collector: opts.Collector, Generator: opts.Generator},
		&CommitTool{Repo: opts.Repo, Confirm: opts.Confirm, DryRun: opts.DryRun, NoVerify: opts.NoVerify},
	}
	if opts.EnablePush {
		tools = append(tools, &PushTool{Repo: opts.Repo, DryRun: opts.DryRun})
	}

	for _, tool := range tools {
		_ = registry.Register(tool) // names are distinct
	}
	return registry
}
