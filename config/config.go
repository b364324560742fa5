// Package config loads the pipeline configuration from YAML.
package config

import (
	"os"
	"unicode/utf8"

	"github.com/YuminosukeSato/mlpipe/ingestion"
	"github.com/YuminosukeSato/mlpipe/pkg/errors"
	"github.com/YuminosukeSato/mlpipe/pkg/log"
	"github.com/YuminosukeSato/mlpipe/trainer"
	"github.com/YuminosukeSato/mlpipe/transformation"
	"gopkg.in/yaml.v3"
)

// SearchPaths are tried in order when Load is called without a path.
var SearchPaths = []string{"mlpipe.yaml", "configs/mlpipe.yaml"}

// Config is the full pipeline configuration.
type Config struct {
	Source         string                `yaml:"source"`
	Delimiter      string                `yaml:"delimiter"`
	RegistryPath   string                `yaml:"registry_path"`
	Log            log.Options           `yaml:"log"`
	Ingestion      ingestion.Config      `yaml:"ingestion"`
	Transformation transformation.Config `yaml:"transformation"`
	Trainer        trainer.Config        `yaml:"trainer"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Source:         "data/stud.csv",
		Delimiter:      ",",
		Log:            log.Options{Level: "info", Dir: "logs", Console: true},
		Ingestion:      ingestion.DefaultConfig(),
		Transformation: transformation.DefaultConfig(),
		Trainer:        trainer.DefaultConfig(),
	}
}

// Load reads the YAML file at path over the defaults. An empty path tries
// SearchPaths and falls back to the defaults when none exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, p := range SearchPaths {
			data, err := os.ReadFile(p)
			if err == nil {
				return parse(cfg, data, p)
			}
		}
		applyDefaults(cfg)
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	return parse(cfg, data, path)
}

func parse(cfg *Config, data []byte, path string) (*Config, error) {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	applyDefaults(cfg)
	return cfg, cfg.Validate()
}

// applyDefaults fills values a file may have blanked and propagates the
// delimiter to the stages.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Delimiter == "" {
		cfg.Delimiter = def.Delimiter
	}
	if cfg.Ingestion.TrainDataPath == "" {
		cfg.Ingestion.TrainDataPath = def.Ingestion.TrainDataPath
	}
	if cfg.Ingestion.TestDataPath == "" {
		cfg.Ingestion.TestDataPath = def.Ingestion.TestDataPath
	}
	if cfg.Transformation.PreprocessorPath == "" {
		cfg.Transformation.PreprocessorPath = def.Transformation.PreprocessorPath
	}
	if cfg.Trainer.ModelPath == "" {
		cfg.Trainer.ModelPath = def.Trainer.ModelPath
	}

	comma, _ := utf8.DecodeRuneInString(cfg.Delimiter)
	cfg.Ingestion.Comma = comma
	cfg.Transformation.Comma = comma
}

// Validate checks the settings that would otherwise fail deep inside a stage.
func (c *Config) Validate() error {
	if c.Source == "" {
		return errors.NewValidationError("source", "must not be empty", c.Source)
	}
	if utf8.RuneCountInString(c.Delimiter) != 1 {
		return errors.NewValidationError("delimiter", "must be a single character", c.Delimiter)
	}
	switch c.Delimiter {
	case "\"", "\r", "\n":
		return errors.NewValidationError("delimiter", "invalid delimiter", c.Delimiter)
	}
	if ts := c.Ingestion.TestSize; !(ts > 0 && ts < 1) {
		return errors.NewValidationError("ingestion.test_size", "must be in (0, 1)", ts)
	}
	if err := c.Transformation.Schema.Validate(); err != nil {
		return err
	}
	if _, err := c.Trainer.Kinds(); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.NewValidationError("log.level", err.Error(), c.Log.Level)
	}
	return nil
}
