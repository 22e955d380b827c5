package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samzong/gca/internal/config"
	"github.com/samzong/gca/internal/formatter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage gca configuration",
		Long: `Manage gca configuration: model, API key and base URL, agent limits ` +
			`and prompt template.`,
	}

	configSetCmd = &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set configuration item",
		Args:  cobra.ExactArgs(2),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.Keys, cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: runConfigSet,
	}

	configGetCmd = &cobra.Command{
		Use:   "get <key>",
		Short: "Print one configuration value",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfigGet,
	}

	configListCmd = &cobra.Command{
		Use:   "list",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE:  runConfigList,
	}

	configTestCmd = &cobra.Command{
		Use:   "test",
		Short: "Send a minimal request to check model, key and API base",
		Args:  cobra.NoArgs,
		RunE:  runConfigTest,
	}
)

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configTestCmd)
}

func runConfigSet(_ *cobra.Command, args []string) error {
	if configErr != nil {
		return fmt.Errorf("configuration error: %w", configErr)
	}

	key, raw := args[0], args[1]
	value, err := parseConfigValue(key, raw)
	if err != nil {
		return err
	}
	previous := viper.Get(key)
	if err := config.SetConfigValue(key, value); err != nil {
		return err
	}

	cfg, err := config.GetConfig()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		_ = config.SetConfigValue(key, previous)
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := config.SaveConfig(); err != nil {
		return err
	}

	fmt.Fprintf(outWriter(), "Set %s = %s\n", key, displayValue(key, raw))
	switch key {
	case "model":
		fmt.Fprintln(errWriter(), "Hint: any model name is accepted, common choices are:")
		for _, m := range config.GetSuggestedModels() {
			fmt.Fprintf(errWriter(), "- %s\n", m)
		}
	case "prompt_template":
		if _, err := formatter.GetPromptTemplate(raw); err != nil {
			fmt.Fprintf(errWriter(), "Warning: %v (builtin templates: %s)\n",
				err, strings.Join(formatter.BuiltinTemplateNames(), ", "))
		}
	}
	return nil
}

// parseConfigValue converts raw to the type the key is stored as, so the
// YAML file keeps numbers as numbers and durations in their string form.
func parseConfigValue(key, raw string) (any, error) {
	switch key {
	case "max_turns", "diff_limit":
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be an integer: %w", key, err)
		}
		return n, nil
	case "timeout", "llm_timeout":
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be a duration such as 90s or 5m: %w", key, err)
		}
		return d.String(), nil
	}
	return raw, nil
}

func runConfigGet(_ *cobra.Command, args []string) error {
	if configErr != nil {
		return fmt.Errorf("configuration error: %w", configErr)
	}
	key := args[0]
	if !config.IsKnownKey(key) {
		return fmt.Errorf("%w: %s", config.ErrUnknownKey, key)
	}
	fmt.Fprintln(outWriter(), displayValue(key, viper.GetString(key)))
	return nil
}

func runConfigList(_ *cobra.Command, _ []string) error {
	if configErr != nil {
		return fmt.Errorf("configuration error: %w", configErr)
	}

	w := outWriter()
	fmt.Fprintf(w, "Config file: %s\n", viper.ConfigFileUsed())
	for _, key := range config.Keys {
		value := displayValue(key, viper.GetString(key))
		if value == "" {
			value = "<not set>"
		}
		fmt.Fprintf(w, "%-16s %s\n", key, value)
	}
	fmt.Fprintf(w, "\nBuiltin prompt templates: %s\n", strings.Join(formatter.BuiltinTemplateNames(), ", "))
	return nil
}

func runConfigTest(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.requireAPIKey(); err != nil {
		return err
	}

	fmt.Fprintf(errWriter(), "Testing model %s...\n", rt.cfg.Model)
	if err := rt.llm.TestConnection(cmd.Context()); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	fmt.Fprintln(outWriter(), "Connection OK")
	return nil
}

func displayValue(key, value string) string {
	if key == "api_key" && value != "" {
		return maskSecret(value)
	}
	return value
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:3] + "..." + s[len(s)-4:]
}
