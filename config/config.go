package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces environment overrides, e.g. SOUPCAST_HISTORY_PATH.
const EnvPrefix = "SOUPCAST"

type Config struct {
	History HistoryConfig `yaml:"history"`
	ML      MLConfig      `yaml:"ml"`
	Audit   AuditConfig   `yaml:"audit"`
	Log     LogConfig     `yaml:"log"`
}

type HistoryConfig struct {
	Path     string `yaml:"path"`
	Encoding string `yaml:"encoding"`
}

type MLConfig struct {
	ModelType        string `yaml:"model_type"`
	ModelDir         string `yaml:"model_dir"`
	NumTrees         int    `yaml:"num_trees"`
	MaxTreeDepth     int    `yaml:"max_tree_depth"`
	MinSamplesSplit  int    `yaml:"min_samples_split"`
	ClassBalanced    bool   `yaml:"class_balanced"`
	Seed             int64  `yaml:"seed"`
	ProfileCacheSize int    `yaml:"profile_cache_size"`
	Training         struct {
		MinDataPoints int     `yaml:"min_data_points"`
		TestRatio     float64 `yaml:"test_ratio"`
	} `yaml:"training"`
}

type AuditConfig struct {
	// Backend is "text", "sqlite" or "none".
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type envOverrides struct {
	HistoryPath     string `envconfig:"HISTORY_PATH"`
	HistoryEncoding string `envconfig:"HISTORY_ENCODING"`
	ModelType       string `envconfig:"MODEL_TYPE"`
	ModelDir        string `envconfig:"MODEL_DIR"`
	AuditBackend    string `envconfig:"AUDIT_BACKEND"`
	AuditPath       string `envconfig:"AUDIT_PATH"`
	LogLevel        string `envconfig:"LOG_LEVEL"`
	LogFile         string `envconfig:"LOG_FILE"`
}

func Default() *Config {
	cfg := &Config{}
	cfg.History.Path = "history_cleaned.csv"
	cfg.History.Encoding = "utf-8"
	cfg.ML.ModelType = "random_forest"
	cfg.ML.ModelDir = "models"
	cfg.ML.NumTrees = 100
	cfg.ML.MaxTreeDepth = 5
	cfg.ML.MinSamplesSplit = 2
	cfg.ML.ClassBalanced = true
	cfg.ML.Seed = 42
	cfg.ML.ProfileCacheSize = 64
	cfg.ML.Training.MinDataPoints = 15
	cfg.ML.Training.TestRatio = 0.2
	cfg.Audit.Backend = "text"
	cfg.Audit.Path = "predictions_log.txt"
	cfg.Log.Level = "info"
	cfg.Log.MaxSizeMB = 10
	cfg.Log.MaxBackups = 3
	return cfg
}

// Load reads the YAML file at path over the defaults, then applies .env and
// SOUPCAST_* overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ApplyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	overrides := []struct {
		value string
		dst   *string
	}{
		{env.HistoryPath, &cfg.History.Path},
		{env.HistoryEncoding, &cfg.History.Encoding},
		{env.ModelType, &cfg.ML.ModelType},
		{env.ModelDir, &cfg.ML.ModelDir},
		{env.AuditBackend, &cfg.Audit.Backend},
		{env.AuditPath, &cfg.Audit.Path},
		{env.LogLevel, &cfg.Log.Level},
		{env.LogFile, &cfg.Log.File},
	}
	for _, o := range overrides {
		if o.value != "" {
			*o.dst = o.value
		}
	}
	return nil
}

func (c *Config) Validate() error {
	if c.History.Path == "" {
		return errors.New("history.path is required")
	}
	if c.ML.ModelDir == "" {
		return errors.New("ml.model_dir is required")
	}
	switch c.ML.ModelType {
	case "random_forest", "decision_tree":
	default:
		return fmt.Errorf("ml.model_type %q is not supported", c.ML.ModelType)
	}
	if r := c.ML.Training.TestRatio; r <= 0 || r >= 1 {
		return fmt.Errorf("ml.training.test_ratio must be in (0, 1), got %g", r)
	}
	switch strings.ToLower(c.Audit.Backend) {
	case "text", "sqlite":
		if c.Audit.Path == "" {
			return errors.New("audit.path is required")
		}
	case "none", "":
	default:
		return fmt.Errorf("audit.backend %q is not supported", c.Audit.Backend)
	}
	return nil
}
