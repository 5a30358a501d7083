package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/kernelpilot-backend/internal/platform/envutil"
)

// Config carries every tunable the services need. It is built once in main
// and injected at construction; nothing reads the environment after Load.
type Config struct {
	Port    string
	LogMode string

	KaggleUsername string
	KaggleBinary   string
	PapermillBin   string

	NotebookRoot string
	DatasetRoot  string
	SQLitePath   string

	CLITimeout     time.Duration
	ExecuteTimeout time.Duration
	PollInterval   time.Duration
	PollMaxWait    time.Duration
}

// fileConfig is the YAML shape. Durations are strings ("20s", "30m") since
// yaml.v3 has no native time.Duration decoding.
type fileConfig struct {
	Port    string `yaml:"port"`
	LogMode string `yaml:"log_mode"`

	KaggleUsername string `yaml:"kaggle_username"`
	KaggleBinary   string `yaml:"kaggle_binary"`
	PapermillBin   string `yaml:"papermill_binary"`

	NotebookRoot string `yaml:"notebook_root"`
	DatasetRoot  string `yaml:"dataset_root"`
	SQLitePath   string `yaml:"sqlite_path"`

	CLITimeout     string `yaml:"cli_timeout"`
	ExecuteTimeout string `yaml:"execute_timeout"`
	PollInterval   string `yaml:"poll_interval"`
	PollMaxWait    string `yaml:"poll_max_wait"`
}

func defaults() Config {
	return Config{
		Port:           "8000",
		LogMode:        "development",
		KaggleBinary:   "kaggle",
		PapermillBin:   "papermill",
		NotebookRoot:   ".",
		DatasetRoot:    "datasets",
		SQLitePath:     "kernelpilot.db",
		CLITimeout:     2 * time.Minute,
		ExecuteTimeout: 10 * time.Minute,
		PollInterval:   20 * time.Second,
		PollMaxWait:    30 * time.Minute,
	}
}

// Load reads the optional YAML file at path (skipped when path is empty or
// the file does not exist), then applies env var overrides on top.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err == nil {
			var fc fileConfig
			if err := yaml.Unmarshal(raw, &fc); err != nil {
				return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
			}
			if err := applyFile(&cfg, &fc); err != nil {
				return Config{}, fmt.Errorf("config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg.Port = envutil.String("PORT", cfg.Port)
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	cfg.KaggleUsername = envutil.String("KAGGLE_USERNAME", cfg.KaggleUsername)
	cfg.KaggleBinary = envutil.String("KAGGLE_BINARY", cfg.KaggleBinary)
	cfg.PapermillBin = envutil.String("PAPERMILL_BINARY", cfg.PapermillBin)
	cfg.NotebookRoot = envutil.String("NOTEBOOK_ROOT", cfg.NotebookRoot)
	cfg.DatasetRoot = envutil.String("DATASET_ROOT", cfg.DatasetRoot)
	cfg.SQLitePath = envutil.String("SQLITE_PATH", cfg.SQLitePath)
	cfg.CLITimeout = envutil.Duration("CLI_TIMEOUT", cfg.CLITimeout)
	cfg.ExecuteTimeout = envutil.Duration("EXECUTE_TIMEOUT", cfg.ExecuteTimeout)
	cfg.PollInterval = envutil.Duration("PUBLISH_POLL_INTERVAL", cfg.PollInterval)
	cfg.PollMaxWait = envutil.Duration("PUBLISH_POLL_MAX_WAIT", cfg.PollMaxWait)

	if cfg.KaggleUsername == "" {
		return Config{}, fmt.Errorf("kaggle username is required (KAGGLE_USERNAME or config file)")
	}
	return cfg, nil
}

func applyFile(cfg *Config, fc *fileConfig) error {
	setString(&cfg.Port, fc.Port)
	setString(&cfg.LogMode, fc.LogMode)
	setString(&cfg.KaggleUsername, fc.KaggleUsername)
	setString(&cfg.KaggleBinary, fc.KaggleBinary)
	setString(&cfg.PapermillBin, fc.PapermillBin)
	setString(&cfg.NotebookRoot, fc.NotebookRoot)
	setString(&cfg.DatasetRoot, fc.DatasetRoot)
	setString(&cfg.SQLitePath, fc.SQLitePath)

	for _, d := range []struct {
		raw  string
		dest *time.Duration
		name string
	}{
		{fc.CLITimeout, &cfg.CLITimeout, "cli_timeout"},
		{fc.ExecuteTimeout, &cfg.ExecuteTimeout, "execute_timeout"},
		{fc.PollInterval, &cfg.PollInterval, "poll_interval"},
		{fc.PollMaxWait, &cfg.PollMaxWait, "poll_max_wait"},
	} {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dest = parsed
	}
	return nil
}

func setString(dest *string, v string) {
	if v != "" {
		*dest = v
	}
}
