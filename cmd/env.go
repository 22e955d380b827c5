package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samzong/gca/internal/config"
	"github.com/samzong/gca/internal/formatter"
	"github.com/samzong/gca/internal/git"
	"github.com/samzong/gca/internal/llm"
	"github.com/samzong/gca/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runEnv bundles what every working command needs: the resolved config,
// the logger and the git and LLM clients.
type runEnv struct {
	cfg    *config.Config
	log    zerolog.Logger
	closer io.Closer
	git    *git.Client
	llm    *llm.Client
}

func loadRuntime(cmd *cobra.Command) (*runEnv, error) {
	if configErr != nil {
		return nil, fmt.Errorf("configuration error: %w", configErr)
	}

	// .env values only fill variables that are unset, so they must be
	// exported before viper resolves the environment.
	exported, envErr := config.LoadEnvFile(".", viper.GetString("env_file"))

	cfg, err := config.GetConfig()
	if err != nil {
		return nil, err
	}
	applyFlagOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	logger, closer, logErr := logging.New(logging.Options{
		Verbose: verbose,
		Quiet:   quiet,
		File:    cfg.LogFile,
		Console: errWriter(),
	})
	if logErr != nil {
		logger.Warn().Err(logErr).Msg("file logging disabled")
	}
	if envErr != nil {
		logger.Warn().Err(envErr).Msg("env file ignored")
	} else if len(exported) > 0 {
		logger.Debug().Strs("keys", exported).Msg("loaded env file")
	}

	promptTemplate, err := formatter.GetPromptTemplate(cfg.PromptTemplate)
	if err != nil {
		logger.Warn().Err(err).Msg("falling back to the default prompt template")
		promptTemplate = ""
	}

	rt := &runEnv{
		cfg:    cfg,
		log:    logger,
		closer: closer,
		git:    git.NewClient(git.Options{Verbose: verbose, Logger: logger}),
		llm: llm.NewClient(llm.Options{
			APIKey:         cfg.APIKey,
			APIBase:        cfg.APIBase,
			Model:          cfg.Model,
			Timeout:        cfg.LLMTimeout,
			PromptTemplate: promptTemplate,
			DiffLimit:      cfg.DiffLimit,
			Logger:         logger,
		}),
	}
	logger.Debug().
		Str("model", cfg.Model).
		Str("api_base", cfg.APIBase).
		Int("max_turns", cfg.MaxTurns).
		Dur("timeout", cfg.Timeout).
		Str("config_file", viper.ConfigFileUsed()).
		Msg("configuration loaded")
	return rt, nil
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.Model = modelFlag
	}
	if flags.Changed("api-base") {
		cfg.APIBase = apiBaseFlag
	}
	if flags.Changed("max-turns") {
		cfg.MaxTurns = maxTurns
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}
}

func (rt *runEnv) requireAPIKey() error {
	if strings.TrimSpace(rt.cfg.APIKey) == "" {
		return llm.ErrMissingAPIKey
	}
	return nil
}

func (rt *runEnv) Close() {
	if rt.closer != nil {
		_ = rt.closer.Close()
	}
}
