package config

import (
	"errors"
	"io/fs"

	"github.com/brensch/snekq/qlearn"
	"github.com/brensch/snekq/rules"
	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	// Learning defaults
	v.SetDefault("learning.gamma", qlearn.DefaultGamma)
	v.SetDefault("learning.alpha", qlearn.DefaultAlpha)
	v.SetDefault("learning.epsilon_init", qlearn.DefaultEpsilonInit)
	v.SetDefault("learning.epsilon_decay", qlearn.DefaultEpsilonDecay)
	v.SetDefault("learning.epsilon_min", qlearn.DefaultEpsilonMin)
	v.SetDefault("learning.max_steps_without_food", qlearn.DefaultMaxStepsWithoutFood)
	v.SetDefault("learning.max_consecutive_skips", qlearn.DefaultMaxConsecutiveSkips)

	// Board defaults
	v.SetDefault("board.width", rules.DefaultWidth)
	v.SetDefault("board.height", rules.DefaultHeight)

	// Storage defaults
	v.SetDefault("storage.table_path", "data/qtable.parquet")
	v.SetDefault("storage.episode_dir", "data/episodes")

	// Training defaults
	v.SetDefault("training.episodes", 0)
	v.SetDefault("training.seed", 0)
	v.SetDefault("training.save_every", 1)

	v.SetDefault("monitor.addr", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "pretty")
}

// viper reports a missing explicit config file as a plain fs error.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
