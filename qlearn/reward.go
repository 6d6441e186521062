package qlearn

import (
	"github.com/brensch/snekq/game"
)

// Reward magnitudes. These are part of the agent's contract.
const (
	RewardFood    = 20.0
	RewardDeath   = -100.0
	RewardCloser  = 0.5
	RewardFarther = -0.5
	RewardStep    = -0.1
)

// Outcome names the single reward branch a step falls into.
type Outcome int

const (
	OutcomeStep Outcome = iota
	OutcomeCloser
	OutcomeFarther
	OutcomeFood
	OutcomeDeath
)

var outcomeNames = [...]string{"step", "closer", "farther", "food", "death"}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "unknown"
	}
	return outcomeNames[o]
}

// Reward returns the scalar for o.
func (o Outcome) Reward() float64 {
	switch o {
	case OutcomeDeath:
		return RewardDeath
	case OutcomeFood:
		return RewardFood
	case OutcomeCloser:
		return RewardCloser
	case OutcomeFarther:
		return RewardFarther
	default:
		return RewardStep
	}
}

// Classify picks the branch for a transition. Death wins over food, and
// both win over distance shaping. Food counts as eaten when the new head
// sits on the previous food cell. Distance is Manhattan distance from the
// head to the previous food cell.
func Classify(prev, next game.Snapshot, terminal bool) Outcome {
	if terminal || next.Dead {
		return OutcomeDeath
	}
	if len(prev.Body) == 0 || len(next.Body) == 0 {
		return OutcomeStep
	}
	newHead := next.Body[0]
	if newHead == prev.Food {
		return OutcomeFood
	}
	before := game.Manhattan(prev.Body[0], prev.Food)
	after := game.Manhattan(newHead, prev.Food)
	switch {
	case after < before:
		return OutcomeCloser
	case after > before:
		return OutcomeFarther
	default:
		return OutcomeStep
	}
}

// Reward scores one step. The action does not change the score; it is part
// of the signature so callers pass the full transition.
func Reward(prev game.Snapshot, _ game.Move, next game.Snapshot, terminal bool) float64 {
	return Classify(prev, next, terminal).Reward()
}
