package qlearn

import (
	"math/rand"
	"sync"

	"github.com/brensch/snekq/game"
)

// Agent bundles the table, policy, learner and exploration rate of one run.
type Agent struct {
	params  Params
	table   *Table
	policy  *Policy
	learner *Learner

	mu       sync.RWMutex
	epsilon  float64
	learning bool
}

// NewAgent validates params and wires the components around table.
// A nil table starts empty.
func NewAgent(params Params, table *Table, rng *rand.Rand) (*Agent, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if table == nil {
		table = NewTable()
	}
	return &Agent{
		params:   params,
		table:    table,
		policy:   NewPolicy(rng),
		learner:  &Learner{Table: table, Alpha: params.Alpha, Gamma: params.Gamma},
		epsilon:  params.EpsilonInit,
		learning: true,
	}, nil
}

func (a *Agent) Table() *Table { return a.table }

func (a *Agent) Params() Params { return a.params }

func (a *Agent) Learner() *Learner { return a.learner }

// Epsilon returns the current exploration rate.
func (a *Agent) Epsilon() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.epsilon
}

// SetEpsilon overrides the exploration rate, e.g. when resuming a run.
func (a *Agent) SetEpsilon(epsilon float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.epsilon = max(min(epsilon, 1), a.params.EpsilonMin)
}

// Learning reports whether updates are applied.
func (a *Agent) Learning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.learning
}

// SetLearning toggles training. With learning off the agent plays greedily
// and never touches the table or epsilon.
func (a *Agent) SetLearning(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.learning = enabled
}

// Act selects a move for k.
func (a *Agent) Act(k StateKey) game.Move {
	a.mu.RLock()
	epsilon := a.epsilon
	if !a.learning {
		epsilon = 0
	}
	a.mu.RUnlock()
	return a.policy.Select(a.table, k, epsilon)
}

// Learn applies tr when learning is enabled.
func (a *Agent) Learn(tr Transition) (float64, error) {
	if !a.Learning() {
		return a.table.Get(tr.State)[tr.Action], nil
	}
	return a.learner.Update(tr)
}

// EndEpisode decays epsilon and returns the new value.
func (a *Agent) EndEpisode() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.learning {
		a.epsilon = DecayEpsilon(a.epsilon, a.params.EpsilonDecay, a.params.EpsilonMin)
	}
	return a.epsilon
}
