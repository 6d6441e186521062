package qlearn

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/brensch/snekq/game"
)

// Simulation is the external game the controller drives.
type Simulation interface {
	Reset() (game.Snapshot, error)
	Step(game.Move) (game.Snapshot, error)
}

// Checkpointer persists the table at episode boundaries. A checkpointer
// that deliberately skips a save returns ErrCheckpointSkipped.
type Checkpointer interface {
	Save(ctx context.Context, t *Table) error
}

// ErrCheckpointSkipped reports a save that was not due. It is not a failure.
var ErrCheckpointSkipped = errors.New("checkpoint skipped")

// Phase is the controller state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseTerminated
	PhaseTruncated
)

var phaseNames = [...]string{"idle", "running", "terminated", "truncated"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// EpisodeResult summarizes one finished episode.
type EpisodeResult struct {
	Episode     int           `json:"episode"`
	Steps       int           `json:"steps"`
	Food        int           `json:"food"`
	TotalReward float64       `json:"total_reward"`
	Epsilon     float64       `json:"epsilon"`
	Phase       Phase         `json:"-"`
	PhaseName   string        `json:"phase"`
	Skipped     int           `json:"skipped"`
	Duration    time.Duration `json:"duration_ns"`
	TableSize   int           `json:"table_size"`
	Saved       bool          `json:"saved"`
}

// Controller drives episodes: observe, act, step, reward, learn.
type Controller struct {
	agent      *Agent
	sim        Simulation
	checkpoint Checkpointer
	logger     *slog.Logger
	observers  []func(EpisodeResult)
	onStep     func(StepEvent)

	phase   Phase
	episode int
}

// StepEvent is emitted after every learned step when a step hook is set.
type StepEvent struct {
	Episode  int
	Step     int
	Snapshot game.Snapshot
	Action   game.Move
	Outcome  Outcome
	Reward   float64
}

type ControllerOption func(*Controller)

// WithCheckpointer saves the table after every learning episode.
func WithCheckpointer(cp Checkpointer) ControllerOption {
	return func(c *Controller) { c.checkpoint = cp }
}

func WithLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// WithObserver registers fn to receive every EpisodeResult.
func WithObserver(fn func(EpisodeResult)) ControllerOption {
	return func(c *Controller) { c.observers = append(c.observers, fn) }
}

// WithStepHook registers fn to receive every applied step.
func WithStepHook(fn func(StepEvent)) ControllerOption {
	return func(c *Controller) { c.onStep = fn }
}

// WithStartEpisode sets the number of the last finished episode, for resumed runs.
func WithStartEpisode(n int) ControllerOption {
	return func(c *Controller) { c.episode = n }
}

func NewController(agent *Agent, sim Simulation, opts ...ControllerOption) *Controller {
	c := &Controller{
		agent:  agent,
		sim:    sim,
		logger: slog.Default(),
		phase:  PhaseIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Phase, Episode and Agent are for the goroutine driving the controller.
func (c *Controller) Phase() Phase { return c.phase }

func (c *Controller) Episode() int { return c.episode }

func (c *Controller) Agent() *Agent { return c.agent }

// Run plays episodes until n have finished or ctx is done. n <= 0 runs
// until cancellation. Only a failed simulation reset stops the loop early.
func (c *Controller) Run(ctx context.Context, n int) error {
	for played := 0; n <= 0 || played < n; played++ {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := c.RunEpisode(ctx); err != nil {
			return err
		}
	}
	return nil
}

// RunEpisode plays one episode from reset to termination or truncation.
func (c *Controller) RunEpisode(ctx context.Context) (EpisodeResult, error) {
	start := time.Now()
	c.episode++
	res := EpisodeResult{Episode: c.episode}
	log := c.logger.With("episode", c.episode)

	current, err := c.sim.Reset()
	if err != nil {
		c.phase = PhaseIdle
		return res, err
	}
	key, err := Encode(current)
	if err != nil {
		c.phase = PhaseIdle
		return res, err
	}

	// A simulation can hand back a board that is already over.
	c.phase = PhaseRunning
	if current.Dead {
		c.phase = PhaseTerminated
	}
	params := c.agent.Params()
	sinceFood := 0
	skips := 0

	for c.phase == PhaseRunning {
		if ctx.Err() != nil {
			c.phase = PhaseTruncated
			break
		}

		action := c.agent.Act(key)
		next, err := c.sim.Step(action)
		var nextKey StateKey
		if err == nil {
			nextKey, err = Encode(next)
		}
		if err != nil {
			res.Skipped++
			skips++
			log.Warn("discarding step", "step", res.Steps, "action", action.String(), "err", err)
			if skips >= params.MaxConsecutiveSkips {
				log.Error("too many consecutive bad steps, truncating episode", "skipped", skips)
				c.phase = PhaseTruncated
			}
			continue
		}
		skips = 0
		res.Steps++

		outcome := Classify(current, next, next.Dead)
		reward := outcome.Reward()
		res.TotalReward += reward

		terminal := next.Dead
		if outcome == OutcomeFood {
			res.Food++
			sinceFood = 0
		} else {
			sinceFood++
		}
		switch {
		case terminal:
			c.phase = PhaseTerminated
		case params.MaxStepsWithoutFood > 0 && sinceFood >= params.MaxStepsWithoutFood:
			// Truncation still bounds the Bellman target.
			terminal = true
			c.phase = PhaseTruncated
		}

		if _, err := c.agent.Learn(Transition{
			State:    key,
			Action:   action,
			Reward:   reward,
			Next:     nextKey,
			Terminal: terminal,
		}); err != nil {
			log.Error("update rejected", "state", key.String(), "action", action.String(), "err", err)
		}

		if c.onStep != nil {
			c.onStep(StepEvent{
				Episode:  c.episode,
				Step:     res.Steps,
				Snapshot: next,
				Action:   action,
				Outcome:  outcome,
				Reward:   reward,
			})
		}

		current = next
		key = nextKey
	}

	res.Phase = c.phase
	res.PhaseName = c.phase.String()
	res.Epsilon = c.agent.EndEpisode()
	res.TableSize = c.agent.Table().Len()

	if c.checkpoint != nil && c.agent.Learning() {
		// The final checkpoint must land even when the run is being cancelled.
		err := c.checkpoint.Save(context.WithoutCancel(ctx), c.agent.Table())
		switch {
		case err == nil:
			res.Saved = true
		case errors.Is(err, ErrCheckpointSkipped):
		default:
			// Keep training on the in-memory table.
			log.Error("checkpoint failed", "err", err)
		}
	}
	res.Duration = time.Since(start)

	log.Info("episode finished",
		"phase", res.PhaseName,
		"steps", res.Steps,
		"food", res.Food,
		"reward", res.TotalReward,
		"epsilon", res.Epsilon,
		"table_size", res.TableSize,
	)
	for _, fn := range c.observers {
		fn(res)
	}

	c.phase = PhaseIdle
	return res, nil
}
