package main

// Episode is one row of the episode log.
type Episode struct {
	RunID       string  `json:"run_id"`
	Episode     int64   `json:"episode"`
	Steps       int64   `json:"steps"`
	Food        int64   `json:"food"`
	TotalReward float64 `json:"total_reward"`
	Epsilon     float64 `json:"epsilon"`
	Phase       string  `json:"phase"`
	Skipped     int64   `json:"skipped"`
	DurationMs  float64 `json:"duration_ms"`
	TableSize   int64   `json:"table_size"`
	FinishedAt  int64   `json:"finished_at"`
}

type EpisodesResponse struct {
	Total    int64     `json:"total"`
	Episodes []Episode `json:"episodes"`
}

// RunSummary aggregates every episode of one trainer run.
type RunSummary struct {
	RunID       string  `json:"run_id"`
	Episodes    int64   `json:"episodes"`
	FirstMs     int64   `json:"first_finished_at"`
	LastMs      int64   `json:"last_finished_at"`
	BestFood    int64   `json:"best_food"`
	AvgReward   float64 `json:"avg_reward"`
	LastEpsilon float64 `json:"last_epsilon"`
}

type RunsResponse struct {
	Runs []RunSummary `json:"runs"`
}

// Stat is the mean and sample standard deviation of one metric.
type Stat struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summary describes the last Window episodes of a run.
type Summary struct {
	RunID        string           `json:"run_id"`
	Window       int              `json:"window"`
	Episodes     int              `json:"episodes"`
	Reward       Stat             `json:"reward"`
	Food         Stat             `json:"food"`
	Steps        Stat             `json:"steps"`
	BestFood     int64            `json:"best_food"`
	Phases       map[string]int64 `json:"phases"`
	FinalEpsilon float64          `json:"final_epsilon"`
	TableSize    int64            `json:"table_size"`
}
