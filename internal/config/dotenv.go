package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// LoadEnvFile reads KEY=VALUE pairs from a dotenv file in dir and exports the
// ones that are not already present in the process environment. A missing
// file is not an error. It returns the keys it exported.
func LoadEnvFile(dir, name string) ([]string, error) {
	if name == "" {
		return nil, nil
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, name)
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat env file %s: %w", path, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}

	var exported []string
	for _, key := range v.AllKeys() {
		envKey := strings.ToUpper(key)
		if _, exists := os.LookupEnv(envKey); exists {
			continue
		}
		if err := os.Setenv(envKey, v.GetString(key)); err != nil {
			return exported, fmt.Errorf("failed to export %s: %w", envKey, err)
		}
		exported = append(exported, envKey)
	}
	return exported, nil
}
