// Package metrics exposes training progress as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/brensch/snekq/qlearn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns a private registry so tests and multiple trainers in one
// process never collide on the global one.
type Recorder struct {
	registry *prometheus.Registry

	episodes           *prometheus.CounterVec
	steps              prometheus.Histogram
	food               prometheus.Histogram
	reward             prometheus.Histogram
	epsilon            prometheus.Gauge
	tableSize          prometheus.Gauge
	lastEpisode        prometheus.Gauge
	skippedSteps       prometheus.Counter
	checkpointFailures prometheus.Counter
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		episodes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "snekq_episodes_total",
			Help: "Finished episodes by end phase",
		}, []string{"phase"}),
		steps: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "snekq_episode_steps",
			Help:    "Steps taken per episode",
			Buckets: prometheus.ExponentialBuckets(8, 2, 10),
		}),
		food: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "snekq_episode_food",
			Help:    "Food eaten per episode",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 40, 80},
		}),
		reward: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "snekq_episode_reward",
			Help:    "Total reward per episode",
			Buckets: []float64{-150, -100, -50, 0, 50, 100, 250, 500, 1000},
		}),
		epsilon: f.NewGauge(prometheus.GaugeOpts{
			Name: "snekq_epsilon",
			Help: "Current exploration rate",
		}),
		tableSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "snekq_table_states",
			Help: "Number of state keys in the value table",
		}),
		lastEpisode: f.NewGauge(prometheus.GaugeOpts{
			Name: "snekq_last_episode",
			Help: "Index of the most recently finished episode",
		}),
		skippedSteps: f.NewCounter(prometheus.CounterOpts{
			Name: "snekq_skipped_steps_total",
			Help: "Steps discarded because the simulation returned an unusable snapshot",
		}),
		checkpointFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "snekq_checkpoint_failures_total",
			Help: "Episodes whose table save failed",
		}),
	}
}

// ObserveEpisode records one finished episode. It has the shape of a
// controller observer.
func (r *Recorder) ObserveEpisode(res qlearn.EpisodeResult) {
	r.episodes.WithLabelValues(res.Phase.String()).Inc()
	r.steps.Observe(float64(res.Steps))
	r.food.Observe(float64(res.Food))
	r.reward.Observe(res.TotalReward)
	r.epsilon.Set(res.Epsilon)
	r.tableSize.Set(float64(res.TableSize))
	r.lastEpisode.Set(float64(res.Episode))
	r.skippedSteps.Add(float64(res.Skipped))
}

// CheckpointFailed counts a failed table save.
func (r *Recorder) CheckpointFailed() {
	r.checkpointFailures.Inc()
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
