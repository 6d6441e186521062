package store

import (
	"context"

	"github.com/brensch/snekq/qlearn"
)

// Periodic saves through a backend on every n-th call. The other calls
// return qlearn.ErrCheckpointSkipped. It satisfies qlearn.Checkpointer.
type Periodic struct {
	backend Backend
	every   int
	calls   int
	onErr   func(error)
}

// NewPeriodic wraps b. every < 2 saves on every call. onErr, if set, sees
// each failed save before it is returned.
func NewPeriodic(b Backend, every int, onErr func(error)) *Periodic {
	return &Periodic{backend: b, every: every, onErr: onErr}
}

func (p *Periodic) Save(ctx context.Context, t *qlearn.Table) error {
	p.calls++
	if p.every > 1 && p.calls%p.every != 0 {
		return qlearn.ErrCheckpointSkipped
	}
	err := p.backend.Save(ctx, t)
	if err != nil && p.onErr != nil {
		p.onErr(err)
	}
	return err
}
