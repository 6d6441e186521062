package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/brensch/snekq/game"
	"github.com/brensch/snekq/qlearn"
	"github.com/brensch/snekq/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func coords(pts ...[2]int) []Coord {
	out := make([]Coord, len(pts))
	for i, p := range pts {
		out[i] = Coord{X: p[0], Y: p[1]}
	}
	return out
}

// request builds an 11x11 game with our snake heading right along y=5.
func request() GameRequest {
	you := Battlesnake{ID: "me", Name: "snekq", Body: coords([2]int{5, 5}, [2]int{4, 5}, [2]int{3, 5})}
	return GameRequest{
		Game:  Game{ID: "g1"},
		Turn:  3,
		Board: Board{Width: 11, Height: 11, Food: coords([2]int{9, 9}, [2]int{6, 2}), Snakes: []Battlesnake{you}},
		You:   you,
	}
}

func postMove(t *testing.T, h http.Handler, req GameRequest) MoveResponse {
	t.Helper()
	body, _ := json.Marshal(req)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/move", bytes.NewReader(body)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	var resp MoveResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestConvertToSnapshot(t *testing.T) {
	req := request()
	snap, err := convertToSnapshot(&req)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if snap.Heading != game.MoveRight {
		t.Fatalf("heading = %s", snap.Heading)
	}
	// (6,2) is 4 away from (5,5); (9,9) is 8 away.
	if snap.Food != (game.Point{X: 6, Y: 2}) {
		t.Fatalf("nearest food = %+v", snap.Food)
	}
	if snap.Width != 11 || len(snap.Body) != 3 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestConvertToSnapshot_NoFoodAndStackedBody(t *testing.T) {
	req := request()
	req.Board.Food = nil
	req.You.Body = coords([2]int{1, 1}, [2]int{1, 1}, [2]int{1, 1})
	snap, err := convertToSnapshot(&req)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if snap.Heading != game.MoveUp || snap.Food != snap.Head() {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestConvertToSnapshot_Invalid(t *testing.T) {
	req := request()
	req.You.Body = nil
	if _, err := convertToSnapshot(&req); err == nil {
		t.Fatalf("expected error for empty body")
	}
}

func TestMove_PlaysGreedyPolicy(t *testing.T) {
	req := request()
	snap, err := convertToSnapshot(&req)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	key, err := qlearn.Encode(snap)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	table := qlearn.NewTable()
	if err := table.Put(key, qlearn.Values{0, 4, 1, 2}); err != nil {
		t.Fatalf("put: %v", err)
	}

	resp := postMove(t, NewServer(table, quietLogger()).Handler(), req)
	if resp.Move != "down" {
		t.Fatalf("move = %q, want down", resp.Move)
	}
	if resp.Shout != "q=4.00" {
		t.Fatalf("shout = %q", resp.Shout)
	}
}

func TestMove_AvoidsOtherSnakes(t *testing.T) {
	req := request()
	other := Battlesnake{ID: "them", Body: coords([2]int{5, 4}, [2]int{5, 3}, [2]int{5, 2})}
	req.Board.Snakes = append(req.Board.Snakes, other)

	snap, _ := convertToSnapshot(&req)
	key, _ := qlearn.Encode(snap)
	table := qlearn.NewTable()
	// Down is the favourite but (5,4) is taken; right is next best.
	if err := table.Put(key, qlearn.Values{0, 4, 1, 2}); err != nil {
		t.Fatalf("put: %v", err)
	}

	resp := postMove(t, NewServer(table, quietLogger()).Handler(), req)
	if resp.Move != "right" {
		t.Fatalf("move = %q, want right", resp.Move)
	}
}

func TestMove_EmptyTableIsStillSafe(t *testing.T) {
	req := request()
	// Pin the snake in the top-left corner heading up: up and left are walls.
	req.You.Body = coords([2]int{0, 10}, [2]int{0, 9}, [2]int{0, 8})
	req.Board.Snakes = []Battlesnake{req.You}

	resp := postMove(t, NewServer(qlearn.NewTable(), quietLogger()).Handler(), req)
	if resp.Move != "right" {
		t.Fatalf("move = %q, want right", resp.Move)
	}
}

func TestMove_BadRequestFallsBack(t *testing.T) {
	req := request()
	req.Board.Width = 0

	resp := postMove(t, NewServer(qlearn.NewTable(), quietLogger()).Handler(), req)
	if resp.Move != "up" || resp.Shout != "" {
		t.Fatalf("fallback = %+v", resp)
	}
}

func TestIndexStartEnd(t *testing.T) {
	h := NewServer(qlearn.NewTable(), quietLogger()).Handler()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	var info BattlesnakeInfoResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &info); err != nil || info.APIVersion != "1" {
		t.Fatalf("index = %s, %v", rr.Body.String(), err)
	}

	body, _ := json.Marshal(request())
	for _, path := range []string{"/start", "/end"} {
		rr = httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body)))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status %d", path, rr.Code)
		}
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path status %d", rr.Code)
	}
}

func TestReloadTable_KeepsTableWhenFileDisappears(t *testing.T) {
	ctx := context.Background()
	backend := store.Open(filepath.Join(t.TempDir(), "q.parquet"))

	learned := qlearn.NewTable()
	k, _ := qlearn.KeyFromIndex(5)
	if err := learned.Set(k, game.MoveLeft, 3); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := backend.Save(ctx, learned); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s := NewServer(qlearn.NewTable(), quietLogger())
	if !reloadTable(ctx, s, backend) {
		t.Fatalf("first reload did not swap")
	}
	if got := s.table.Load().Get(k)[game.MoveLeft]; got != 3 {
		t.Fatalf("reloaded Q=%v want=3", got)
	}

	if err := os.Remove(backend.Path()); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if reloadTable(ctx, s, backend) {
		t.Fatalf("missing file replaced a learned table")
	}
	if got := s.table.Load().Get(k)[game.MoveLeft]; got != 3 {
		t.Fatalf("after missing file Q=%v want=3", got)
	}
}

func TestReloadTable_EmptyReplacesEmpty(t *testing.T) {
	backend := store.Open(filepath.Join(t.TempDir(), "missing.parquet"))
	s := NewServer(qlearn.NewTable(), quietLogger())
	if !reloadTable(context.Background(), s, backend) {
		t.Fatalf("empty table should replace an empty table")
	}
}
