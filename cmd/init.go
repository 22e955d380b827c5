package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samzong/gca/internal/config"
	"github.com/samzong/gca/internal/llm"
	"github.com/spf13/cobra"
)

// llmSettings is what the wizard collects.
type llmSettings struct {
	APIKey  string
	Model   string
	APIBase string
	// KeyFromEnv marks a kept key that came from the environment; it is
	// used for the connection test but never written to the config file.
	KeyFromEnv bool
}

var (
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Initialize gca configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configErr != nil {
				return fmt.Errorf("configuration error: %w", configErr)
			}
			cfg, err := config.GetConfig()
			if err != nil {
				return err
			}
			if err := runInitWizard(cmd.Context(), os.Stdin, outWriter(), cfg); err != nil {
				return err
			}
			fmt.Fprintln(outWriter(), "Initialization complete.")
			return nil
		},
	}

	saveConfigValues = func(s llmSettings) error {
		values := map[string]string{
			"model":    s.Model,
			"api_base": s.APIBase,
		}
		if !s.KeyFromEnv {
			values["api_key"] = s.APIKey
		}
		for key, value := range values {
			if err := config.SetConfigValue(key, value); err != nil {
				return err
			}
		}
		return config.SaveConfig()
	}

	testLLMConnection = func(ctx context.Context, s llmSettings) error {
		client := llm.NewClient(llm.Options{
			APIKey:  s.APIKey,
			APIBase: s.APIBase,
			Model:   s.Model,
			Timeout: config.DefaultLLMTimeout,
			Logger:  zerolog.Nop(),
		})
		return client.TestConnection(ctx)
	}
)

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInitWizard(ctx context.Context, in io.Reader, out io.Writer, cfg *config.Config) error {
	if cfg == nil {
		cfg = config.Default()
	}
	readLine := newTrimmedLineReader(in)
	fmt.Fprintln(out, "gca init - configure the model gca talks to")

	var s llmSettings
	var err error
	var keptKey bool
	if s.APIKey, keptKey, err = promptAPIKey(out, cfg, readLine); err != nil {
		return err
	}
	s.KeyFromEnv = keptKey && config.FromEnvironment("api_key")
	if s.Model, err = promptModel(out, cfg, readLine); err != nil {
		return err
	}
	if s.APIBase, err = promptAPIBase(out, cfg, readLine); err != nil {
		return err
	}

	if err := saveConfigValues(s); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return maybeTestConnection(ctx, out, s, readLine)
}

func newTrimmedLineReader(in io.Reader) func() (string, error) {
	reader := bufio.NewReader(in)
	return func() (string, error) {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		if errors.Is(err, io.EOF) && line == "" {
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	}
}

// promptAPIKey also reports whether the current key was kept unchanged.
func promptAPIKey(out io.Writer, cfg *config.Config, readLine func() (string, error)) (string, bool, error) {
	for {
		if cfg.APIKey != "" {
			fmt.Fprintf(out, "API key [%s] (leave blank to keep): ", maskSecret(cfg.APIKey))
		} else {
			fmt.Fprint(out, "API key (required): ")
		}

		line, err := readLine()
		if err != nil {
			return "", false, err
		}
		if line != "" {
			return line, false, nil
		}
		if cfg.APIKey != "" {
			return cfg.APIKey, true, nil
		}
		fmt.Fprintln(out, "API key is required.")
	}
}

func promptModel(out io.Writer, cfg *config.Config, readLine func() (string, error)) (string, error) {
	modelDefault := cfg.Model
	if modelDefault == "" {
		modelDefault = config.DefaultModel
	}
	fmt.Fprintf(out, "Model (default: %s, e.g. %s): ", modelDefault,
		strings.Join(config.GetSuggestedModels(), ", "))

	line, err := readLine()
	if err != nil {
		return "", err
	}
	if line == "" {
		return modelDefault, nil
	}
	return line, nil
}

func promptAPIBase(out io.Writer, cfg *config.Config, readLine func() (string, error)) (string, error) {
	label := cfg.APIBase
	if label == "" {
		label = "<provider default>"
	}
	fmt.Fprintf(out, "API base URL (default: %s): ", label)

	line, err := readLine()
	if err != nil {
		return "", err
	}
	if line == "" {
		return cfg.APIBase, nil
	}
	return line, nil
}

func maybeTestConnection(ctx context.Context, out io.Writer, s llmSettings, readLine func() (string, error)) error {
	for {
		fmt.Fprint(out, "Test API connection now? [Y/n]: ")
		answer, err := readLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch strings.ToLower(answer) {
		case "", "y", "yes":
			fmt.Fprintln(out, "Testing API connection...")
			if err := testLLMConnection(ctx, s); err != nil {
				fmt.Fprintf(out, "Connection test failed: %v\n", err)
				fmt.Fprintln(out, "Re-run `gca init` or update values with `gca config set`.")
			} else {
				fmt.Fprintln(out, "Connection test succeeded.")
			}
			return nil
		case "n", "no":
			return nil
		default:
			fmt.Fprintln(out, "Please enter y or n.")
		}
	}
}
