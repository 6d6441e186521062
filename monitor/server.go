package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/brensch/snekq/metrics"
)

// Server exposes /metrics, /healthz and /ws on one listener.
type Server struct {
	addr    string
	handler http.Handler
	logger  *slog.Logger
	started time.Time
}

func NewServer(addr string, rec *metrics.Recorder, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{addr: addr, logger: logger, started: time.Now()}

	mux := http.NewServeMux()
	if rec != nil {
		mux.Handle("/metrics", rec.Handler())
	}
	if hub != nil {
		mux.Handle("/ws", hub)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"status":     "ok",
			"uptime_sec": int64(time.Since(s.started).Seconds()),
		}
		if hub != nil {
			resp["ws_clients"] = hub.Clients()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	s.handler = mux
	return s
}

func (s *Server) Handler() http.Handler { return s.handler }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("monitor listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
