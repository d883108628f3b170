package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config controls runtime behavior for the client.
type Config struct {
	APIBaseURL     string        `env:"MAQAMLAB_API_URL" envDefault:"http://localhost:5000"`
	DataDir        string        `env:"MAQAMLAB_DATA_DIR"`
	LogPath        string        `env:"MAQAMLAB_LOG_PATH"`
	RequestTimeout time.Duration `env:"MAQAMLAB_REQUEST_TIMEOUT" envDefault:"15s"`
	FeedbackDelay  time.Duration `env:"MAQAMLAB_FEEDBACK_DELAY" envDefault:"1200ms"`
	ExamDuration   time.Duration `env:"MAQAMLAB_EXAM_DURATION" envDefault:"20m"`
	ASCIIOnly      bool          `env:"MAQAMLAB_ASCII_ONLY"`
}

// fileConfig mirrors Config for the YAML overlay. Durations are strings in
// the file ("15s", "20m"); pointer fields distinguish absent keys from zero
// values so the file only overrides what it names.
type fileConfig struct {
	APIBaseURL     *string `yaml:"api_url"`
	DataDir        *string `yaml:"data_dir"`
	LogPath        *string `yaml:"log_path"`
	RequestTimeout *string `yaml:"request_timeout"`
	FeedbackDelay  *string `yaml:"feedback_delay"`
	ExamDuration   *string `yaml:"exam_duration"`
	ASCIIOnly      *bool   `yaml:"ascii_only"`
}

func (f fileConfig) apply(cfg *Config) error {
	if f.APIBaseURL != nil {
		cfg.APIBaseURL = *f.APIBaseURL
	}
	if f.DataDir != nil {
		cfg.DataDir = *f.DataDir
	}
	if f.LogPath != nil {
		cfg.LogPath = *f.LogPath
	}
	if f.ASCIIOnly != nil {
		cfg.ASCIIOnly = *f.ASCIIOnly
	}
	for _, d := range []struct {
		raw *string
		dst *time.Duration
		key string
	}{
		{f.RequestTimeout, &cfg.RequestTimeout, "request_timeout"},
		{f.FeedbackDelay, &cfg.FeedbackDelay, "feedback_delay"},
		{f.ExamDuration, &cfg.ExamDuration, "exam_duration"},
	} {
		if d.raw == nil {
			continue
		}
		v, err := time.ParseDuration(*d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = v
	}
	return nil
}

// Load reads the environment, then overlays an optional YAML config file if
// one exists at <data dir>/config.yaml or at the explicit path argument.
func Load(configFile string) (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	path := configFile
	if path == "" && cfg.DataDir != "" {
		path = filepath.Join(cfg.DataDir, "config.yaml")
	}
	if path != "" {
		if b, err := os.ReadFile(path); err == nil {
			var file fileConfig
			if err := yaml.Unmarshal(b, &file); err != nil {
				return Config{}, fmt.Errorf("parsing %s: %w", path, err)
			}
			if err := file.apply(&cfg); err != nil {
				return Config{}, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api url %q", c.APIBaseURL)
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 15 * time.Second
	}
	if c.FeedbackDelay <= 0 {
		c.FeedbackDelay = 1200 * time.Millisecond
	}
	if c.ExamDuration <= 0 {
		c.ExamDuration = 20 * time.Minute
	}
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.New("cannot resolve user home directory")
		}
		c.DataDir = filepath.Join(home, ".local", "share", "maqamlab")
	}
	return nil
}
