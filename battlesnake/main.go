// Package main serves the Battlesnake API, playing the greedy policy of a
// learned value table.
//
// The table only sees the agent's own body and the nearest food. Other
// snakes are handled by refusing moves into occupied cells, falling back to
// the best-valued safe move.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/brensch/snekq/game"
	"github.com/brensch/snekq/logging"
	"github.com/brensch/snekq/qlearn"
	"github.com/brensch/snekq/store"
)

// Server answers moves from the current table. The table can be swapped
// while requests are in flight.
type Server struct {
	table  atomic.Pointer[qlearn.Table]
	logger *slog.Logger
}

func NewServer(table *qlearn.Table, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{logger: logger}
	s.table.Store(table)
	return s
}

// SetTable replaces the table used for new requests.
func (s *Server) SetTable(t *qlearn.Table) {
	s.table.Store(t)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/start", s.handleStart)
	mux.HandleFunc("/move", s.handleMove)
	mux.HandleFunc("/end", s.handleEnd)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	response := BattlesnakeInfoResponse{
		APIVersion: "1",
		Author:     "snekq",
		Color:      "#3cb371",
		Head:       "default",
		Tail:       "default",
		Version:    "1.0.0",
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req GameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.logger.Info("game started", "game", req.Game.ID, "you", req.You.Name, "board", fmt.Sprintf("%dx%d", req.Board.Width, req.Board.Height))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var req GameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	move, values, err := s.chooseMove(&req)
	shout := ""
	if err != nil {
		s.logger.Warn("falling back to a safe move", "game", req.Game.ID, "turn", req.Turn, "err", err)
	} else {
		shout = fmt.Sprintf("q=%.2f", values[move])
	}

	s.logger.Debug("move", "game", req.Game.ID, "turn", req.Turn, "move", move.String(), "took", time.Since(startTime))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(MoveResponse{Move: move.String(), Shout: shout})
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	var req GameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	youAlive := false
	for _, snake := range req.Board.Snakes {
		if snake.ID == req.You.ID {
			youAlive = true
			break
		}
	}

	result := "lost"
	if youAlive {
		result = "won"
	} else if len(req.Board.Snakes) == 0 {
		result = "draw"
	}

	s.logger.Info("game ended", "game", req.Game.ID, "turn", req.Turn, "result", result, "length", len(req.You.Body))
	w.WriteHeader(http.StatusOK)
}

// chooseMove ranks moves by value and returns the best one that does not
// step into a wall or any snake. With an unusable request it still returns
// a safe move, along with the error.
func (s *Server) chooseMove(req *GameRequest) (game.Move, qlearn.Values, error) {
	safe := safeMoves(req)

	snap, err := convertToSnapshot(req)
	if err != nil {
		return firstOr(safe, game.MoveUp), qlearn.Values{}, err
	}
	key, err := qlearn.Encode(snap)
	if err != nil {
		return firstOr(safe, game.MoveUp), qlearn.Values{}, err
	}
	values := s.table.Load().Get(key)

	best := qlearn.Greedy(values)
	if len(safe) == 0 || containsMove(safe, best) {
		return best, values, nil
	}
	// Greedy move is blocked by another snake; take the best safe one.
	pick := safe[0]
	for _, m := range safe[1:] {
		if values[m] > values[pick] {
			pick = m
		}
	}
	return pick, values, nil
}

// convertToSnapshot maps the request onto the single-snake view the table
// was trained on: our body, heading from the neck, and the nearest food.
func convertToSnapshot(req *GameRequest) (game.Snapshot, error) {
	snap := game.Snapshot{
		Width:  int32(req.Board.Width),
		Height: int32(req.Board.Height),
		Turn:   int32(req.Turn),
		Body:   make([]game.Point, len(req.You.Body)),
	}
	for i, b := range req.You.Body {
		snap.Body[i] = game.Point{X: int32(b.X), Y: int32(b.Y)}
	}
	snap.Heading = game.HeadingOf(snap.Body, game.MoveUp)

	if len(snap.Body) > 0 {
		head := snap.Body[0]
		snap.Food = head
		bestDist := int32(-1)
		for _, f := range req.Board.Food {
			p := game.Point{X: int32(f.X), Y: int32(f.Y)}
			if d := game.Manhattan(head, p); bestDist < 0 || d < bestDist {
				bestDist = d
				snap.Food = p
			}
		}
	}

	if err := snap.Validate(); err != nil {
		return game.Snapshot{}, err
	}
	return snap, nil
}

// safeMoves lists moves whose target is on the board and not occupied by
// any snake segment that will still be there next turn.
func safeMoves(req *GameRequest) []game.Move {
	if len(req.You.Body) == 0 {
		return nil
	}
	blocked := make(map[game.Point]struct{})
	for _, snake := range req.Board.Snakes {
		body := snake.Body
		if len(body) > 1 {
			body = body[:len(body)-1]
		}
		for _, b := range body {
			blocked[game.Point{X: int32(b.X), Y: int32(b.Y)}] = struct{}{}
		}
	}
	for _, b := range req.You.Body[:max(len(req.You.Body)-1, 1)] {
		blocked[game.Point{X: int32(b.X), Y: int32(b.Y)}] = struct{}{}
	}

	head := game.Point{X: int32(req.You.Body[0].X), Y: int32(req.You.Body[0].Y)}
	var out []game.Move
	for _, m := range game.AllMoves {
		p := head.Add(m.Delta())
		if p.X < 0 || p.Y < 0 || p.X >= int32(req.Board.Width) || p.Y >= int32(req.Board.Height) {
			continue
		}
		if _, ok := blocked[p]; ok {
			continue
		}
		out = append(out, m)
	}
	return out
}

func containsMove(moves []game.Move, m game.Move) bool {
	for _, x := range moves {
		if x == m {
			return true
		}
	}
	return false
}

func firstOr(moves []game.Move, fallback game.Move) game.Move {
	if len(moves) == 0 {
		return fallback
	}
	return moves[0]
}

// watchTable reloads the table every interval so a running trainer's
// checkpoints are picked up without a restart.
func watchTable(ctx context.Context, s *Server, b store.Backend, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reloadTable(ctx, s, b)
		}
	}
}

// reloadTable swaps in a freshly loaded table and reports whether it did.
// A missing file loads as an empty table, which never replaces a table that
// has learned something.
func reloadTable(ctx context.Context, s *Server, b store.Backend) bool {
	t, err := b.Load(ctx)
	if err != nil {
		s.logger.Warn("table reload failed, keeping current table", "path", b.Path(), "err", err)
		return false
	}
	if current := s.table.Load(); t.Len() == 0 && current != nil && current.Len() > 0 {
		s.logger.Warn("reloaded table is empty, keeping current table", "path", b.Path(), "states", current.Len())
		return false
	}
	s.SetTable(t)
	s.logger.Debug("table reloaded", "path", b.Path(), "states", t.Len())
	return true
}

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	listen := fs.String("listen", ":8080", "HTTP listen address")
	tablePath := fs.String("table", "data/qtable.parquet", "Value table, .parquet or .db")
	reload := fs.Duration("reload", 0, "Reload the table at this interval (0 disables)")
	logLevel := fs.String("log-level", "info", "debug, info, warn or error")
	logFormat := fs.String("log-format", "text", "pretty, json or text")

	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("flag parse: %v", err)
	}

	logger, err := logging.New(os.Stderr, *logFormat, *logLevel)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}

	backend := store.Open(*tablePath)
	table := store.LoadOrEmpty(context.Background(), backend, logger)
	server := NewServer(table, logger)

	if *reload > 0 {
		go watchTable(context.Background(), server, backend, *reload)
	}

	srv := &http.Server{
		Addr:              *listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("battlesnake server listening", "addr", *listen, "table", backend.Path(), "states", table.Len())
	log.Fatal(srv.ListenAndServe())
}
