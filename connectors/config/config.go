package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	dc "dependabot-stats/domain/config"
)

// DefaultPath is used when CONFIG_PATH is unset.
const DefaultPath = "./config.yml"

// Path resolves the config file location from CONFIG_PATH.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

// Load parses the YAML configuration file at path. A missing file yields an empty
// config so flags alone can drive a run.
func Load(path string) (*dc.Config, error) {
	var c dc.Config
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("config.missing", "path", path)
			return &c, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	slog.Info("config.loaded", "path", path)
	return &c, nil
}

// LoadEnv reads a .env file into the environment when one exists.
func LoadEnv(paths ...string) {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("config.env.error", "error", err)
	}
}
