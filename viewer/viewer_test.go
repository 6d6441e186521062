package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brensch/snekq/qlearn"
	"github.com/brensch/snekq/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSummarize(t *testing.T) {
	eps := []Episode{
		{Episode: 1, TotalReward: -100, Food: 0, Steps: 10, Phase: "terminated", Epsilon: 0.5, TableSize: 4},
		{Episode: 2, TotalReward: 20, Food: 2, Steps: 30, Phase: "terminated", Epsilon: 0.495, TableSize: 9},
		{Episode: 3, TotalReward: 50, Food: 4, Steps: 50, Phase: "truncated", Epsilon: 0.49, TableSize: 12},
	}
	s := Summarize("r", 100, eps)
	if s.Episodes != 3 || s.BestFood != 4 || s.FinalEpsilon != 0.49 || s.TableSize != 12 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if math.Abs(s.Reward.Mean-(-10)) > 1e-9 || s.Reward.Min != -100 || s.Reward.Max != 50 {
		t.Fatalf("reward stat %+v", s.Reward)
	}
	// Sample std of 0,2,4 is 2.
	if math.Abs(s.Food.StdDev-2) > 1e-9 || s.Food.Mean != 2 {
		t.Fatalf("food stat %+v", s.Food)
	}
	if s.Phases["terminated"] != 2 || s.Phases["truncated"] != 1 {
		t.Fatalf("phases %v", s.Phases)
	}
}

func TestSummarize_SmallInputs(t *testing.T) {
	if s := Summarize("r", 10, nil); s.Episodes != 0 || s.Phases == nil {
		t.Fatalf("empty summary %+v", s)
	}
	s := Summarize("r", 10, []Episode{{TotalReward: 5, Phase: "terminated"}})
	if s.Reward.StdDev != 0 || s.Reward.Mean != 5 {
		t.Fatalf("single-episode stat %+v", s.Reward)
	}
	if _, err := json.Marshal(s); err != nil {
		t.Fatalf("summary must be JSON encodable: %v", err)
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("MovingAverage = %v, want %v", got, want)
		}
	}
	if got := MovingAverage([]float64{1, 3}, 0); got[1] != 3 {
		t.Fatalf("window 0 should behave as 1, got %v", got)
	}
}

func TestParseDataRoots(t *testing.T) {
	got := parseDataRoots(" a, b ,,a,c ")
	if strings.Join(got, "|") != "a|b|c" {
		t.Fatalf("roots = %v", got)
	}
}

func writeRun(t *testing.T, dir, runID string, n int, finished time.Time) {
	t.Helper()
	w, err := store.NewEpisodeWriter(dir, runID)
	if err != nil {
		t.Fatalf("writer: %v", err)
	}
	for i := 1; i <= n; i++ {
		res := qlearn.EpisodeResult{
			Episode:     i,
			Steps:       i * 10,
			Food:        i % 3,
			TotalReward: float64(i),
			Epsilon:     0.5,
			Phase:       qlearn.PhaseTerminated,
			TableSize:   i,
		}
		if err := w.Write(store.RowFromResult(runID, res, finished.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if _, _, err := w.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
}

func getJSON(t *testing.T, h http.Handler, path string, v any) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("%s: status %d: %s", path, rr.Code, rr.Body.String())
	}
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("%s: decode: %v", path, err)
	}
}

func TestHandlers_OverEpisodeLogs(t *testing.T) {
	dir := t.TempDir()
	base := time.UnixMilli(1_700_000_000_000)
	writeRun(t, dir, "old", 3, base)
	writeRun(t, dir, "new", 5, base.Add(time.Hour))

	s := NewServer([]string{dir}, time.Minute, quietLogger())
	defer s.Close()
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	var runs RunsResponse
	getJSON(t, mux, "/api/runs", &runs)
	if len(runs.Runs) != 2 || runs.Runs[0].RunID != "new" || runs.Runs[0].Episodes != 5 {
		t.Fatalf("runs = %+v", runs)
	}

	var latest EpisodesResponse
	getJSON(t, mux, "/api/episodes?limit=2&offset=1", &latest)
	if latest.Total != 5 || len(latest.Episodes) != 2 || latest.Episodes[0].Episode != 2 {
		t.Fatalf("latest episodes = %+v", latest)
	}

	var old EpisodesResponse
	getJSON(t, mux, "/api/episodes?run=old", &old)
	if old.Total != 3 || old.Episodes[2].Steps != 30 {
		t.Fatalf("old episodes = %+v", old)
	}

	var sum Summary
	getJSON(t, mux, "/api/summary?last=2", &sum)
	if sum.RunID != "new" || sum.Episodes != 2 || sum.Reward.Mean != 4.5 {
		t.Fatalf("summary = %+v", sum)
	}

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/chart?window=2", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "echarts") {
		t.Fatalf("chart status %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Reward per episode") {
		t.Fatalf("chart missing title")
	}
}

func TestHandlers_EmptyDir(t *testing.T) {
	s := NewServer([]string{t.TempDir()}, time.Minute, quietLogger())
	defer s.Close()
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	var runs RunsResponse
	getJSON(t, mux, "/api/runs", &runs)
	if len(runs.Runs) != 0 {
		t.Fatalf("expected no runs, got %+v", runs)
	}
	var sum Summary
	getJSON(t, mux, "/api/summary", &sum)
	if sum.Episodes != 0 {
		t.Fatalf("expected empty summary, got %+v", sum)
	}

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/runs", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status %d", rr.Code)
	}
}
