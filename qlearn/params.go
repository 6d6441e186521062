package qlearn

import (
	"errors"
	"fmt"
)

// Default tunables. Embedders override them through Params.
const (
	DefaultGamma        = 0.9
	DefaultAlpha        = 0.1
	DefaultEpsilonInit  = 0.5
	DefaultEpsilonDecay = 0.99
	DefaultEpsilonMin   = 0.01

	// DefaultMaxStepsWithoutFood truncates episodes that loop forever.
	DefaultMaxStepsWithoutFood = 1000
	// DefaultMaxConsecutiveSkips truncates an episode whose simulation keeps
	// returning unusable snapshots.
	DefaultMaxConsecutiveSkips = 100
)

// Params are the process-wide learning constants for one run.
type Params struct {
	Gamma        float64 `mapstructure:"gamma"`
	Alpha        float64 `mapstructure:"alpha"`
	EpsilonInit  float64 `mapstructure:"epsilon_init"`
	EpsilonDecay float64 `mapstructure:"epsilon_decay"`
	EpsilonMin   float64 `mapstructure:"epsilon_min"`

	// MaxStepsWithoutFood of 0 disables truncation.
	MaxStepsWithoutFood int `mapstructure:"max_steps_without_food"`
	MaxConsecutiveSkips int `mapstructure:"max_consecutive_skips"`
}

func DefaultParams() Params {
	return Params{
		Gamma:               DefaultGamma,
		Alpha:               DefaultAlpha,
		EpsilonInit:         DefaultEpsilonInit,
		EpsilonDecay:        DefaultEpsilonDecay,
		EpsilonMin:          DefaultEpsilonMin,
		MaxStepsWithoutFood: DefaultMaxStepsWithoutFood,
		MaxConsecutiveSkips: DefaultMaxConsecutiveSkips,
	}
}

// Validate reports every out-of-range field at once.
func (p Params) Validate() error {
	var errs []error
	if p.Gamma < 0 || p.Gamma > 1 {
		errs = append(errs, fmt.Errorf("gamma %v not in [0,1]", p.Gamma))
	}
	if p.Alpha <= 0 || p.Alpha > 1 {
		errs = append(errs, fmt.Errorf("alpha %v not in (0,1]", p.Alpha))
	}
	if p.EpsilonInit < 0 || p.EpsilonInit > 1 {
		errs = append(errs, fmt.Errorf("epsilon_init %v not in [0,1]", p.EpsilonInit))
	}
	if p.EpsilonDecay <= 0 || p.EpsilonDecay > 1 {
		errs = append(errs, fmt.Errorf("epsilon_decay %v not in (0,1]", p.EpsilonDecay))
	}
	if p.EpsilonMin < 0 || p.EpsilonMin > p.EpsilonInit {
		errs = append(errs, fmt.Errorf("epsilon_min %v not in [0,epsilon_init]", p.EpsilonMin))
	}
	if p.MaxStepsWithoutFood < 0 {
		errs = append(errs, fmt.Errorf("max_steps_without_food %d is negative", p.MaxStepsWithoutFood))
	}
	if p.MaxConsecutiveSkips < 1 {
		errs = append(errs, fmt.Errorf("max_consecutive_skips %d must be positive", p.MaxConsecutiveSkips))
	}
	return errors.Join(errs...)
}
