package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samzong/gca/internal/config"
	"github.com/samzong/gca/internal/workflow"
	"github.com/spf13/cobra"
)

var (
	cfgFile     string
	modelFlag   string
	apiBaseFlag string
	maxTurns    int
	timeout     time.Duration
	dryRun      bool
	noPush      bool
	noVerify    bool
	verbose     bool
	quiet       bool
	autoYes     bool
	configErr   error
	rootCtx     = context.Background()
	rootCmd     = &cobra.Command{
		Use:   "gca [request...]",
		Short: "gca - Git Commit Agent",
		Long: `gca is a CLI agent that reads your working-tree changes, asks an LLM ` +
			`for a one-line commit message, and lets the model commit and push them ` +
			`through a small set of git tools.

Any words after the command are passed to the agent as your request, for example:

  gca "commit this but do not push"`,
		Version: fmt.Sprintf("%s (built at %s)", Version, BuildTime),
		RunE: func(cmd *cobra.Command, args []string) error {
			if configErr != nil {
				return fmt.Errorf("configuration error: %w", configErr)
			}
			return handleErrors(runAgent(cmd, args))
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
)

// SetContext sets the context every command runs under.
func SetContext(ctx context.Context) {
	rootCtx = ctx
}

func Execute() error {
	return rootCmd.ExecuteContext(rootCtx)
}

// RootCmd exposes the command tree for documentation generation.
func RootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"Configuration file path (default is $XDG_CONFIG_HOME/gca/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "Debug logging and git command echo")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log warnings and errors")
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "Model to use for this run")
	rootCmd.PersistentFlags().StringVar(&apiBaseFlag, "api-base", "", "OpenAI-compatible API base URL for this run")

	rootCmd.Flags().IntVar(&maxTurns, "max-turns", config.DefaultMaxTurns, "Maximum number of model calls")
	rootCmd.Flags().DurationVar(&timeout, "timeout", config.DefaultTimeout, "Deadline for the whole run (0 disables)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what commit and push would do without running git")
	rootCmd.Flags().BoolVar(&noPush, "no-push", false, "Do not offer the push tool to the model")
	rootCmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip pre-commit hooks")
	rootCmd.Flags().BoolVarP(&autoYes, "yes", "y", false, "Commit without asking for confirmation")

	rootCmd.AddCommand(configCmd)
}

func initConfig() {
	configErr = config.InitConfig(cfgFile)
}

func handleErrors(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, workflow.ErrNoChanges) {
		fmt.Fprintln(errWriter(), "No changes detected in the working tree.")
		return nil
	}
	return err
}

func runAgent(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.requireAPIKey(); err != nil {
		return err
	}

	flow := workflow.NewAgentFlow(rt.git, rt.llm, workflow.AgentOptions{
		Request:      strings.Join(args, " "),
		SystemPrompt: rt.cfg.SystemPrompt,
		MaxTurns:     rt.cfg.MaxTurns,
		Timeout:      rt.cfg.Timeout,
		DryRun:       dryRun,
		NoVerify:     noVerify,
		NoPush:       noPush,
		AutoYes:      autoYes,
		OutWriter:    outWriter(),
		ErrWriter:    errWriter(),
		Logger:       rt.log,
	})
	_, err = flow.Run(cmd.Context())
	return err
}
