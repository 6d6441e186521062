package qlearn

import (
	"math/rand"

	"github.com/brensch/snekq/game"
)

// Policy is an epsilon-greedy action selector.
type Policy struct {
	rng *rand.Rand
}

// NewPolicy uses rng for both the explore draw and the random move.
func NewPolicy(rng *rand.Rand) *Policy {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Policy{rng: rng}
}

// Select explores with probability epsilon, otherwise returns Greedy.
func (p *Policy) Select(t *Table, k StateKey, epsilon float64) game.Move {
	if p.rng.Float64() < epsilon {
		return game.AllMoves[p.rng.Intn(game.NumMoves)]
	}
	return Greedy(t.Get(k))
}

// Greedy returns the argmax of v. Ties go to the first move in
// Up, Down, Left, Right order.
func Greedy(v Values) game.Move {
	best := game.MoveUp
	for _, m := range game.AllMoves[1:] {
		if v[m] > v[best] {
			best = m
		}
	}
	return best
}

// DecayEpsilon applies one multiplicative decay step floored at min.
func DecayEpsilon(epsilon, decay, min float64) float64 {
	return max(epsilon*decay, min)
}
