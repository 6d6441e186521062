package qlearn

import (
	"testing"

	"github.com/brensch/snekq/game"
)

func TestReward_Branches(t *testing.T) {
	prev := snapshot([]game.Point{{X: 4, Y: 4}, {X: 3, Y: 4}}, game.MoveRight, game.Point{X: 6, Y: 4})

	cases := []struct {
		name     string
		head     game.Point
		food     game.Point
		dead     bool
		terminal bool
		want     float64
		outcome  Outcome
	}{
		{"food", game.Point{X: 6, Y: 4}, game.Point{X: 1, Y: 1}, false, false, RewardFood, OutcomeFood},
		{"closer", game.Point{X: 5, Y: 4}, game.Point{X: 6, Y: 4}, false, false, RewardCloser, OutcomeCloser},
		{"farther", game.Point{X: 4, Y: 5}, game.Point{X: 6, Y: 4}, false, false, RewardFarther, OutcomeFarther},
		{"death", game.Point{X: 5, Y: 4}, game.Point{X: 6, Y: 4}, true, true, RewardDeath, OutcomeDeath},
		{"terminal flag alone", game.Point{X: 5, Y: 4}, game.Point{X: 6, Y: 4}, false, true, RewardDeath, OutcomeDeath},
	}
	for _, c := range cases {
		next := prev
		next.Body = []game.Point{c.head, prev.Body[0]}
		next.Food = c.food
		next.Dead = c.dead
		if got := Classify(prev, next, c.terminal); got != c.outcome {
			t.Fatalf("%s: outcome=%s want=%s", c.name, got, c.outcome)
		}
		if got := Reward(prev, game.MoveRight, next, c.terminal); got != c.want {
			t.Fatalf("%s: reward=%v want=%v", c.name, got, c.want)
		}
	}
}

func TestReward_NeutralStep(t *testing.T) {
	// Both heads are at Manhattan distance 5 from the food at (4,8).
	prev := snapshot([]game.Point{{X: 3, Y: 4}}, game.MoveRight, game.Point{X: 4, Y: 8})
	next := prev
	next.Body = []game.Point{{X: 5, Y: 4}}
	if got := Reward(prev, game.MoveRight, next, false); got != RewardStep {
		t.Fatalf("reward=%v want=%v", got, RewardStep)
	}
}

func TestReward_ExclusiveBranches(t *testing.T) {
	// Eating the food also shortens the distance; only the food reward applies.
	prev := snapshot([]game.Point{{X: 4, Y: 4}}, game.MoveRight, game.Point{X: 5, Y: 4})
	next := prev
	next.Body = []game.Point{{X: 5, Y: 4}, {X: 4, Y: 4}}
	next.Food = game.Point{X: 9, Y: 9}
	if got := Reward(prev, game.MoveRight, next, false); got != 20 {
		t.Fatalf("reward=%v want=20", got)
	}

	// Dying while moving closer is only the death penalty.
	next.Body = []game.Point{{X: 5, Y: 4}}
	next.Dead = true
	prev.Food = game.Point{X: 7, Y: 4}
	if got := Reward(prev, game.MoveRight, next, true); got != -100 {
		t.Fatalf("reward=%v want=-100", got)
	}
}
