// Package config loads run settings from an optional file and SNEKQ_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/brensch/snekq/logging"
	"github.com/brensch/snekq/qlearn"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// SNEKQ_LEARNING_ALPHA or SNEKQ_STORAGE_TABLE_PATH.
const EnvPrefix = "SNEKQ"

// Config is the root configuration.
type Config struct {
	Learning qlearn.Params  `mapstructure:"learning"`
	Board    BoardConfig    `mapstructure:"board"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Training TrainingConfig `mapstructure:"training"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type BoardConfig struct {
	Width  int32 `mapstructure:"width"`
	Height int32 `mapstructure:"height"`
}

type StorageConfig struct {
	TablePath  string `mapstructure:"table_path"`  // .parquet, or .db/.sqlite for SQLite
	EpisodeDir string `mapstructure:"episode_dir"` // empty disables the episode log
}

type TrainingConfig struct {
	Episodes  int   `mapstructure:"episodes"` // 0 runs until interrupted
	Seed      int64 `mapstructure:"seed"`     // 0 seeds from the clock
	SaveEvery int   `mapstructure:"save_every"`
}

type MonitorConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the monitor server
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads path (any format viper understands) if it is non-empty, then
// applies environment overrides and validates the result. A missing file
// is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !isMissingFile(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks every section and reports all problems together.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Learning.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Board.Width < 2 || c.Board.Height < 2 {
		errs = append(errs, fmt.Errorf("board %dx%d too small", c.Board.Width, c.Board.Height))
	}
	if c.Storage.TablePath == "" {
		errs = append(errs, errors.New("storage.table_path is required"))
	}
	if c.Training.Episodes < 0 {
		errs = append(errs, fmt.Errorf("training.episodes %d is negative", c.Training.Episodes))
	}
	if c.Training.SaveEvery < 1 {
		errs = append(errs, fmt.Errorf("training.save_every %d must be positive", c.Training.SaveEvery))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case logging.FormatPretty, logging.FormatJSON, logging.FormatText:
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}
