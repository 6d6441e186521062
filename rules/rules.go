// Package rules is the reference single-snake simulation used to train and
// evaluate the learner. It implements qlearn.Simulation.
package rules

import (
	"math/rand"

	"github.com/brensch/snekq/game"
)

// Board defaults are a 700x600 window split into 20px cells.
const (
	DefaultWidth  = 35
	DefaultHeight = 30
)

// StartBody is the initial snake, head first, heading right.
var StartBody = []game.Point{{X: 5, Y: 5}, {X: 4, Y: 5}, {X: 3, Y: 5}}

// InitialState returns a fresh snapshot with food placed by rng.
func InitialState(width, height int32, rng *rand.Rand) *game.Snapshot {
	s := &game.Snapshot{
		Width:   width,
		Height:  height,
		Heading: game.MoveRight,
	}
	for _, p := range StartBody {
		if s.InBounds(p) {
			s.Body = append(s.Body, p)
		}
	}
	if len(s.Body) == 0 {
		// Tiny boards: start in the corner.
		s.Body = []game.Point{{X: 0, Y: 0}}
	}
	if !game.SpawnFood(s, rng) {
		s.Dead = true
	}
	return s
}

// NextState advances the snapshot by one move and reports whether food was eaten.
//
// A move that reverses the heading of a snake longer than one segment is a
// no-op: the snake keeps its heading. Food placement uses rng; nil rng
// falls back to deterministic placement.
func NextState(state *game.Snapshot, move game.Move, rng *rand.Rand) (*game.Snapshot, bool) {
	next := state.Clone()
	if next.Dead {
		return next, false
	}
	next.Turn++

	if !move.Valid() || (len(next.Body) > 1 && move == next.Heading.Opposite()) {
		move = next.Heading
	}
	next.Heading = move

	newHead := next.Body[0].Add(move.Delta())
	ateFood := newHead == next.Food

	newBody := make([]game.Point, 0, len(next.Body)+1)
	newBody = append(newBody, newHead)
	newBody = append(newBody, next.Body...)
	if !ateFood {
		// Remove tail
		newBody = newBody[:len(newBody)-1]
	}
	next.Body = newBody

	if isCollision(next) {
		next.Dead = true
		return next, false
	}

	if ateFood && !game.SpawnFood(next, rng) {
		// Board is full; nothing left to eat.
		next.Dead = true
	}
	return next, ateFood
}

// isCollision checks the new head against the walls and the rest of the body.
func isCollision(s *game.Snapshot) bool {
	head := s.Body[0]
	if !s.InBounds(head) {
		return true
	}
	for _, p := range s.Body[1:] {
		if p == head {
			return true
		}
	}
	return false
}

// GetLegalMoves returns the moves that do not collide immediately,
// in Up, Down, Left, Right order. The reversing move is never listed.
func GetLegalMoves(state *game.Snapshot) []game.Move {
	if state.Dead || len(state.Body) == 0 {
		return []game.Move{}
	}
	moves := []game.Move{}
	head := state.Body[0]
	for _, m := range game.AllMoves {
		if len(state.Body) > 1 && m == state.Heading.Opposite() {
			continue
		}
		p := head.Add(m.Delta())
		if !state.InBounds(p) {
			continue
		}
		// The tail moves away this turn unless we eat.
		blocked := false
		body := state.Body[1:]
		if p != state.Food && len(body) > 0 {
			body = body[:len(body)-1]
		}
		for _, b := range body {
			if b == p {
				blocked = true
				break
			}
		}
		if !blocked {
			moves = append(moves, m)
		}
	}
	return moves
}

// IsTerminal returns true if the snake is dead.
func IsTerminal(state *game.Snapshot) bool {
	return state == nil || state.Dead
}
