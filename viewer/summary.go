package main

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summarize computes statistics over eps, which must be in episode order.
func Summarize(runID string, window int, eps []Episode) Summary {
	s := Summary{
		RunID:    runID,
		Window:   window,
		Episodes: len(eps),
		Phases:   map[string]int64{},
	}
	if len(eps) == 0 {
		return s
	}

	rewards := make([]float64, len(eps))
	food := make([]float64, len(eps))
	steps := make([]float64, len(eps))
	for i, e := range eps {
		rewards[i] = e.TotalReward
		food[i] = float64(e.Food)
		steps[i] = float64(e.Steps)
		s.Phases[e.Phase]++
	}
	s.Reward = describe(rewards)
	s.Food = describe(food)
	s.Steps = describe(steps)
	s.BestFood = int64(floats.Max(food))

	last := eps[len(eps)-1]
	s.FinalEpsilon = last.Epsilon
	s.TableSize = last.TableSize
	return s
}

func describe(xs []float64) Stat {
	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) < 2 {
		// The sample deviation of one value is NaN, which JSON cannot carry.
		std = 0
	}
	return Stat{Mean: mean, StdDev: std, Min: floats.Min(xs), Max: floats.Max(xs)}
}

// MovingAverage returns the trailing mean over up to window values.
func MovingAverage(xs []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(xs))
	for i := range xs {
		lo := max(0, i-window+1)
		out[i] = stat.Mean(xs[lo:i+1], nil)
	}
	return out
}
