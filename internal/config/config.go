package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the runtime configuration shared by every gca command.
type Config struct {
	Model          string        `mapstructure:"model"`
	APIKey         string        `mapstructure:"api_key"`
	APIBase        string        `mapstructure:"api_base"`
	MaxTurns       int           `mapstructure:"max_turns"`
	Timeout        time.Duration `mapstructure:"timeout"`
	LLMTimeout     time.Duration `mapstructure:"llm_timeout"`
	DiffLimit      int           `mapstructure:"diff_limit"`
	PromptTemplate string        `mapstructure:"prompt_template"`
	SystemPrompt   string        `mapstructure:"system_prompt"`
	LogFile        string        `mapstructure:"log_file"`
	EnvFile        string        `mapstructure:"env_file"`
}

const (
	DefaultModel          = "gpt-4o-mini"
	DefaultMaxTurns       = 10
	DefaultTimeout        = 5 * time.Minute
	DefaultLLMTimeout     = 60 * time.Second
	DefaultDiffLimit      = 12000
	DefaultPromptTemplate = "default"
	DefaultEnvFile        = ".env"
	DefaultConfigName     = "config"
	DefaultConfigDir      = "gca"
	EnvPrefix             = "GCA"

	// APIKeyEnv is the conventional provider variable, honored alongside GCA_API_KEY.
	APIKeyEnv = "OPENAI_API_KEY"

	minDiffLimit = 256
)

var (
	ErrInvalidMaxTurns  = errors.New("max_turns must be at least 1")
	ErrInvalidDiffLimit = fmt.Errorf("diff_limit must be at least %d", minDiffLimit)
	ErrEmptyModel       = errors.New("model cannot be empty")
	ErrUnknownKey       = errors.New("unknown configuration key")
)

var suggestedModels = []string{
	"gpt-4o-mini",
	"gpt-4o",
	"gpt-4.1-mini",
	"gpt-4.1",
}

// Keys lists the configuration keys accepted by `gca config set`.
var Keys = []string{
	"model",
	"api_key",
	"api_base",
	"max_turns",
	"timeout",
	"llm_timeout",
	"diff_limit",
	"prompt_template",
	"system_prompt",
	"log_file",
	"env_file",
}

// InitConfig loads the config file (creating it when absent), environment
// variables and defaults into the global viper instance.
func InitConfig(cfgFile string) error {
	configPath := cfgFile
	if configPath == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}
		configPath = filepath.Join(dir, DefaultConfigName+".yaml")
	}

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	setDefaults()
	pending = map[string]any{}

	// The file is created before env binding so environment secrets never land on disk.
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := createConfigFile(configPath); err != nil {
			return err
		}
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("api_key", EnvPrefix+"_API_KEY", APIKeyEnv)

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read configuration file %s: %w", configPath, err)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("model", DefaultModel)
	viper.SetDefault("api_key", "")
	viper.SetDefault("api_base", "")
	viper.SetDefault("max_turns", DefaultMaxTurns)
	viper.SetDefault("timeout", DefaultTimeout.String())
	viper.SetDefault("llm_timeout", DefaultLLMTimeout.String())
	viper.SetDefault("diff_limit", DefaultDiffLimit)
	viper.SetDefault("prompt_template", DefaultPromptTemplate)
	viper.SetDefault("system_prompt", "")
	viper.SetDefault("log_file", "")
	viper.SetDefault("env_file", DefaultEnvFile)
}

func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, DefaultConfigDir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("unable to find home directory: %w", err)
	}
	return filepath.Join(home, ".config", DefaultConfigDir), nil
}

func createConfigFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("unable to create configuration directory: %w", err)
	}
	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("unable to write configuration file: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("unable to restrict configuration file permissions: %w", err)
	}
	return nil
}

// GetConfig unmarshals the current viper state.
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	return cfg, nil
}

// MustGetConfig returns the current configuration, falling back to defaults
// when the viper state cannot be decoded.
func MustGetConfig() *Config {
	cfg, err := GetConfig()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns a configuration populated only with default values.
func Default() *Config {
	return &Config{
		Model:          DefaultModel,
		MaxTurns:       DefaultMaxTurns,
		Timeout:        DefaultTimeout,
		LLMTimeout:     DefaultLLMTimeout,
		DiffLimit:      DefaultDiffLimit,
		PromptTemplate: DefaultPromptTemplate,
		EnvFile:        DefaultEnvFile,
	}
}

// Validate reports the first invalid value in cfg.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return ErrEmptyModel
	}
	if c.MaxTurns < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxTurns, c.MaxTurns)
	}
	if c.DiffLimit < minDiffLimit {
		return fmt.Errorf("%w: got %d", ErrInvalidDiffLimit, c.DiffLimit)
	}
	return nil
}

// pending holds values set through SetConfigValue since InitConfig.
var pending = map[string]any{}

// SetConfigValue validates the key and stores the value in viper.
func SetConfigValue(key string, value any) error {
	if !IsKnownKey(key) {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	viper.Set(key, value)
	pending[key] = value
	return nil
}

// SaveConfig writes the file contents plus values set through SetConfigValue
// back to the config file. Values that came from the environment are not persisted.
func SaveConfig() error {
	path := viper.ConfigFileUsed()
	if path == "" {
		return errors.New("no configuration file in use")
	}

	file := viper.New()
	file.SetConfigFile(path)
	file.SetConfigType("yaml")
	if err := file.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}
	for key, value := range pending {
		file.Set(key, value)
	}
	if err := file.WriteConfig(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	pending = map[string]any{}
	return nil
}

// FromEnvironment reports whether key currently resolves from a non-empty
// environment variable rather than the config file.
func FromEnvironment(key string) bool {
	names := []string{EnvPrefix + "_" + strings.ToUpper(key)}
	if key == "api_key" {
		names = append(names, APIKeyEnv)
	}
	for _, name := range names {
		if value, ok := os.LookupEnv(name); ok && value != "" {
			return true
		}
	}
	return false
}

func IsKnownKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// GetSuggestedModels lists commonly used models; any non-empty name is accepted.
func GetSuggestedModels() []string {
	return suggestedModels
}
