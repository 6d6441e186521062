package qlearn

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/brensch/snekq/game"
)

var (
	ErrInvalidAction = errors.New("invalid action")
	ErrInvalidKey    = errors.New("invalid state key")
	ErrNonFinite     = errors.New("non-finite value")
)

// Values holds one estimate per move, indexed by game.Move.
type Values [game.NumMoves]float64

// Finite reports whether no entry is NaN or Inf.
func (v Values) Finite() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Max returns the largest estimate.
func (v Values) Max() float64 {
	best := v[0]
	for _, x := range v[1:] {
		if x > best {
			best = x
		}
	}
	return best
}

// Entry is one persisted table row.
type Entry struct {
	Key    StateKey
	Values Values
}

// Table maps state keys to action-value estimates.
//
// Unseen keys read as the zero vector. Access is serialized so a display
// or server goroutine can read while the trainer writes.
type Table struct {
	mu   sync.RWMutex
	rows map[StateKey]Values

	nonFinite atomic.Int64
}

func NewTable() *Table {
	return &Table{rows: make(map[StateKey]Values)}
}

// Get returns the estimates for k. A row holding NaN or Inf reads as zero.
func (t *Table) Get(k StateKey) Values {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.getLocked(k)
}

func (t *Table) getLocked(k StateKey) Values {
	v, ok := t.rows[k]
	if !ok {
		return Values{}
	}
	if !v.Finite() {
		t.nonFinite.Add(1)
		return Values{}
	}
	return v
}

// NonFiniteReads counts reads that hit a stored NaN or Inf row and were
// served as zero. Set, Put and Update never store one, so any non-zero
// count is a bug; tests assert it stays at zero.
func (t *Table) NonFiniteReads() int64 {
	return t.nonFinite.Load()
}

// Set stores value for (k, action), creating the row if needed.
func (t *Table) Set(k StateKey, action game.Move, value float64) error {
	if !k.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidKey, k)
	}
	if !action.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidAction, int(action))
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %v for %s/%s", ErrNonFinite, value, k, action)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setLocked(k, action, value)
	return nil
}

func (t *Table) setLocked(k StateKey, action game.Move, value float64) {
	v := t.getLocked(k)
	v[action] = value
	t.rows[k] = v
}

// Len returns the number of stored rows.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Entries returns a copy of every row ordered by key index.
func (t *Table) Entries() []Entry {
	t.mu.RLock()
	out := make([]Entry, 0, len(t.rows))
	for k := range t.rows {
		out = append(out, Entry{Key: k, Values: t.getLocked(k)})
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key.Index() < out[j].Key.Index() })
	return out
}

// Put replaces the whole row for k. Used when loading from storage.
func (t *Table) Put(k StateKey, v Values) error {
	if !k.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidKey, k)
	}
	if !v.Finite() {
		return fmt.Errorf("%w: %v for %s", ErrNonFinite, v, k)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows[k] = v
	return nil
}

// Clone returns an independent copy.
func (t *Table) Clone() *Table {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := &Table{rows: make(map[StateKey]Values, len(t.rows))}
	for k, v := range t.rows {
		out.rows[k] = v
	}
	return out
}
