package rules

import (
	"errors"
	"math/rand"

	"github.com/brensch/snekq/game"
)

// Game is a stateful simulation driven one move at a time.
type Game struct {
	width  int32
	height int32
	rng    *rand.Rand

	state *game.Snapshot
	food  int
}

// NewGame creates a simulation. A nil rng gives deterministic food placement.
func NewGame(width, height int32, rng *rand.Rand) *Game {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &Game{width: width, height: height, rng: rng}
}

// Reset starts a new episode.
func (g *Game) Reset() (game.Snapshot, error) {
	g.state = InitialState(g.width, g.height, g.rng)
	g.food = 0
	return *g.state.Clone(), nil
}

// Step applies one move. Stepping a finished game is an error.
func (g *Game) Step(move game.Move) (game.Snapshot, error) {
	if g.state == nil {
		return game.Snapshot{}, errors.New("game not started")
	}
	if IsTerminal(g.state) {
		return game.Snapshot{}, errors.New("game is over")
	}
	next, ate := NextState(g.state, move, g.rng)
	if ate {
		g.food++
	}
	g.state = next
	return *next.Clone(), nil
}

// Score is ten points per food eaten.
func (g *Game) Score() int {
	return g.food * 10
}

// State returns a copy of the current snapshot, or nil before Reset.
func (g *Game) State() *game.Snapshot {
	return g.state.Clone()
}
