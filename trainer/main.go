package main

import (
	"context"
	"flag"
	"io"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/brensch/snekq/config"
	"github.com/brensch/snekq/logging"
	"github.com/brensch/snekq/metrics"
	"github.com/brensch/snekq/monitor"
	"github.com/brensch/snekq/qlearn"
	"github.com/brensch/snekq/rules"
	"github.com/brensch/snekq/store"
	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	configPath := flag.String("config", os.Getenv("SNEKQ_CONFIG"), "Config file (yaml/json/toml). Missing file means defaults")
	episodes := flag.Int("episodes", -1, "Episodes to play, 0 runs until interrupted (-1 keeps training.episodes)")
	tablePath := flag.String("table", "", "Value table path, .parquet or .db (overrides storage.table_path)")
	episodeDir := flag.String("episode-dir", "", "Episode log directory (overrides storage.episode_dir)")
	monitorAddr := flag.String("monitor-addr", "", "Serve /metrics, /healthz and /ws on this address (overrides monitor.addr)")
	seed := flag.Int64("seed", 0, "RNG seed, 0 seeds from the clock (overrides training.seed)")
	play := flag.Bool("play", false, "Play greedily without learning or saving")
	useTUI := flag.Bool("tui", false, "Show a live terminal dashboard; logs go to -log-file")
	logFile := flag.String("log-file", "trainer.log", "Log file used while -tui is active")
	perFile := flag.Int("episodes-per-file", 500, "Episodes per episode log parquet file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *episodes >= 0 {
		cfg.Training.Episodes = *episodes
	}
	if *tablePath != "" {
		cfg.Storage.TablePath = *tablePath
	}
	if *episodeDir != "" {
		cfg.Storage.EpisodeDir = *episodeDir
	}
	if *monitorAddr != "" {
		cfg.Monitor.Addr = *monitorAddr
	}
	if *seed != 0 {
		cfg.Training.Seed = *seed
	}

	var logOut io.Writer = os.Stderr
	if *useTUI {
		f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("error opening log file: %v", err)
		}
		defer f.Close()
		logOut = f
	}
	logger, err := logging.New(logOut, cfg.Logging.Format, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	slog.SetDefault(logger)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	runSeed := cfg.Training.Seed
	if runSeed == 0 {
		runSeed = time.Now().UnixNano()
	}
	runID := strconv.FormatInt(time.Now().Unix(), 10)
	logger = logger.With("run", runID)

	backend := store.Open(cfg.Storage.TablePath)
	table := store.LoadOrEmpty(ctx, backend, logger)

	agent, err := qlearn.NewAgent(cfg.Learning, table, rand.New(rand.NewSource(runSeed)))
	if err != nil {
		log.Fatalf("create agent: %v", err)
	}
	agent.SetLearning(!*play)
	sim := rules.NewGame(cfg.Board.Width, cfg.Board.Height, rand.New(rand.NewSource(runSeed+1)))

	rec := metrics.NewRecorder()
	hub := monitor.NewHub(logger)
	defer hub.Close()

	opts := []qlearn.ControllerOption{
		qlearn.WithLogger(logger),
		qlearn.WithCheckpointer(store.NewPeriodic(backend, cfg.Training.SaveEvery, func(error) { rec.CheckpointFailed() })),
		qlearn.WithObserver(rec.ObserveEpisode),
		qlearn.WithObserver(hub.PublishEpisode),
		qlearn.WithStepHook(func(qlearn.StepEvent) { totalSteps.Add(1) }),
	}

	var episodeLog chan qlearn.EpisodeResult
	logDone := make(chan struct{})
	if cfg.Storage.EpisodeDir != "" {
		episodeLog = make(chan qlearn.EpisodeResult, 256)
		go func() {
			episodeLogLoop(cfg.Storage.EpisodeDir, runID, *perFile, episodeLog, logger)
			close(logDone)
		}()
		opts = append(opts, qlearn.WithObserver(func(res qlearn.EpisodeResult) { episodeLog <- res }))
	} else {
		close(logDone)
	}

	var updates chan qlearn.EpisodeResult
	if *useTUI {
		updates = make(chan qlearn.EpisodeResult, 64)
		// Avoid blocking training if the UI stops consuming.
		opts = append(opts, qlearn.WithObserver(func(res qlearn.EpisodeResult) {
			select {
			case updates <- res:
			default:
			}
		}))
	}

	if cfg.Monitor.Addr != "" {
		srv := monitor.NewServer(cfg.Monitor.Addr, rec, hub, logger)
		go func() {
			if err := srv.Run(ctx); err != nil {
				logger.Error("monitor server stopped", "err", err)
			}
		}()
	}

	controller := qlearn.NewController(agent, sim, opts...)
	logger.Info("starting run",
		"episodes", cfg.Training.Episodes,
		"learning", agent.Learning(),
		"board", strconv.Itoa(int(cfg.Board.Width))+"x"+strconv.Itoa(int(cfg.Board.Height)),
		"table", backend.Path(),
		"seed", runSeed,
	)

	runErr := make(chan error, 1)
	go func() {
		runErr <- controller.Run(ctx, cfg.Training.Episodes)
		if updates != nil {
			close(updates)
		}
	}()

	if *useTUI {
		p := tea.NewProgram(initialModel(updates, agent.Learning()))
		if _, err := p.Run(); err != nil {
			logger.Error("tui failed", "err", err)
		}
		cancel()
	} else {
		reportProgress(ctx, runErr, logger)
	}

	if err := <-runErr; err != nil {
		logger.Error("training stopped", "err", err)
	}
	if episodeLog != nil {
		close(episodeLog)
	}
	<-logDone

	if agent.Learning() {
		if err := backend.Save(context.Background(), agent.Table()); err != nil {
			logger.Error("final save failed", "path", backend.Path(), "err", err)
		} else {
			logger.Info("value table saved", "path", backend.Path(), "states", agent.Table().Len())
		}
	}
	logger.Info("shutdown complete", "episodes", controller.Episode(), "steps", totalSteps.Load())
}

// reportProgress logs throughput once a second until the run finishes. The
// run's error is put back on runErr for the caller.
func reportProgress(ctx context.Context, runErr chan error, logger *slog.Logger) {
	startTime := time.Now()
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case err := <-runErr:
			runErr <- err
			return
		case <-ctx.Done():
			logger.Info("shutdown requested; finishing current episode")
			return
		case <-ticker.C:
			duration := time.Since(startTime)
			steps := totalSteps.Load()
			logger.Info("progress",
				"steps", steps,
				"steps_per_sec", float64(steps)/duration.Seconds(),
			)
		}
	}
}
