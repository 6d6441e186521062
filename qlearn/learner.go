package qlearn

import (
	"fmt"
	"math"

	"github.com/brensch/snekq/game"
)

// Transition is one completed step. It only lives for one update.
type Transition struct {
	State    StateKey
	Action   game.Move
	Reward   float64
	Next     StateKey
	Terminal bool
}

// Learner applies the Q-learning update to a table.
type Learner struct {
	Table *Table
	Alpha float64
	Gamma float64
}

// Target is the Bellman target for tr. Terminal transitions never bootstrap.
func (l *Learner) Target(tr Transition) float64 {
	l.Table.mu.RLock()
	defer l.Table.mu.RUnlock()
	return l.targetLocked(tr)
}

func (l *Learner) targetLocked(tr Transition) float64 {
	if tr.Terminal {
		return tr.Reward
	}
	return tr.Reward + l.Gamma*l.Table.getLocked(tr.Next).Max()
}

// Update moves Q(state, action) toward the target and returns the new value.
// The read-modify-write happens under a single table lock.
func (l *Learner) Update(tr Transition) (float64, error) {
	if !tr.Action.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidAction, int(tr.Action))
	}
	if !tr.State.Valid() || !tr.Next.Valid() {
		return 0, fmt.Errorf("%w: %v -> %v", ErrInvalidKey, tr.State, tr.Next)
	}

	t := l.Table
	t.mu.Lock()
	defer t.mu.Unlock()

	old := t.getLocked(tr.State)[tr.Action]
	target := l.targetLocked(tr)
	updated := old + l.Alpha*(target-old)
	if math.IsNaN(updated) || math.IsInf(updated, 0) {
		return old, fmt.Errorf("%w: update %s/%s gave %v", ErrNonFinite, tr.State, tr.Action, updated)
	}
	t.setLocked(tr.State, tr.Action, updated)
	return updated, nil
}
