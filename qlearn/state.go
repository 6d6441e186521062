// Package qlearn implements the tabular Q-learning core: state encoding,
// the value table, the epsilon-greedy policy, the reward function, the
// Bellman update and the episode controller.
//
// Nothing in this package holds package-level mutable state. A training run
// owns its Table and Agent explicitly so independent runs and tests never
// share estimates.
package qlearn

import (
	"fmt"

	"github.com/brensch/snekq/game"
)

// StateKey is the discretized perception of the agent.
//
// FoodX is -1 when the food is left of the head, +1 when right, 0 when in
// the same column. FoodY is -1 below, +1 above, 0 same row. Only the
// direction is kept so the key space does not grow with the board.
type StateKey struct {
	DangerAhead bool
	DangerLeft  bool
	DangerRight bool
	Heading     game.Move
	FoodX       int8
	FoodY       int8
}

// NumStateKeys is the size of the key space: 2*2*2 dangers, 4 headings,
// 3*3 food directions.
const NumStateKeys = 2 * 2 * 2 * game.NumMoves * 3 * 3

func (k StateKey) String() string {
	return fmt.Sprintf("danger[a=%t l=%t r=%t] heading=%s food=(%+d,%+d)",
		k.DangerAhead, k.DangerLeft, k.DangerRight, k.Heading, k.FoodX, k.FoodY)
}

// Valid reports whether every field is inside its domain.
func (k StateKey) Valid() bool {
	return k.Heading.Valid() && k.FoodX >= -1 && k.FoodX <= 1 && k.FoodY >= -1 && k.FoodY <= 1
}

// Index maps k onto [0, NumStateKeys). Invalid keys return -1.
func (k StateKey) Index() int {
	if !k.Valid() {
		return -1
	}
	i := boolBit(k.DangerAhead)
	i = i*2 + boolBit(k.DangerLeft)
	i = i*2 + boolBit(k.DangerRight)
	i = i*game.NumMoves + int(k.Heading)
	i = i*3 + int(k.FoodX+1)
	i = i*3 + int(k.FoodY+1)
	return i
}

// KeyFromIndex is the inverse of Index.
func KeyFromIndex(i int) (StateKey, bool) {
	if i < 0 || i >= NumStateKeys {
		return StateKey{}, false
	}
	var k StateKey
	k.FoodY = int8(i%3) - 1
	i /= 3
	k.FoodX = int8(i%3) - 1
	i /= 3
	k.Heading = game.Move(i % game.NumMoves)
	i /= game.NumMoves
	k.DangerRight = i%2 == 1
	i /= 2
	k.DangerLeft = i%2 == 1
	i /= 2
	k.DangerAhead = i%2 == 1
	return k, true
}

// AllStateKeys enumerates the key space in index order.
func AllStateKeys() []StateKey {
	keys := make([]StateKey, 0, NumStateKeys)
	for i := 0; i < NumStateKeys; i++ {
		k, _ := KeyFromIndex(i)
		keys = append(keys, k)
	}
	return keys
}

// Encode maps a snapshot onto its StateKey.
//
// Danger is tested one cell ahead, left and right of the heading: a cell is
// dangerous when it is off the board or holds any body segment. Encode is
// pure and deterministic; it only fails on snapshots that do not validate.
func Encode(s game.Snapshot) (StateKey, error) {
	if err := s.Validate(); err != nil {
		return StateKey{}, fmt.Errorf("encode: %w", err)
	}
	head := s.Head()
	return StateKey{
		DangerAhead: s.Blocked(head.Add(s.Heading.Delta())),
		DangerLeft:  s.Blocked(head.Add(s.Heading.Left().Delta())),
		DangerRight: s.Blocked(head.Add(s.Heading.Right().Delta())),
		Heading:     s.Heading,
		FoodX:       sign(s.Food.X - head.X),
		FoodY:       sign(s.Food.Y - head.Y),
	}, nil
}

func sign(v int32) int8 {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}

func boolBit(b bool) int {
	if b {
		return 1
	}
	return 0
}
