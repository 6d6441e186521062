package qlearn

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/brensch/snekq/game"
)

var testKey = StateKey{Heading: game.MoveRight, FoodX: 1}

func TestTable_UnseenIsZero(t *testing.T) {
	tbl := NewTable()
	if v := tbl.Get(testKey); v != (Values{}) {
		t.Fatalf("unseen key=%v want zero", v)
	}
	if tbl.Len() != 0 {
		t.Fatalf("Get created a row")
	}
}

func TestTable_SetGet(t *testing.T) {
	tbl := NewTable()
	if err := tbl.Set(testKey, game.MoveLeft, 1.5); err != nil {
		t.Fatalf("Set: %v", err)
	}
	want := Values{0, 0, 1.5, 0}
	if got := tbl.Get(testKey); got != want {
		t.Fatalf("Get=%v want=%v", got, want)
	}
	if tbl.Len() != 1 {
		t.Fatalf("Len=%d want=1", tbl.Len())
	}
}

func TestTable_SetRejects(t *testing.T) {
	tbl := NewTable()
	if err := tbl.Set(testKey, game.Move(7), 1); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("bad action err=%v", err)
	}
	if err := tbl.Set(testKey, game.MoveUp, math.NaN()); !errors.Is(err, ErrNonFinite) {
		t.Fatalf("NaN err=%v", err)
	}
	if err := tbl.Set(testKey, game.MoveUp, math.Inf(1)); !errors.Is(err, ErrNonFinite) {
		t.Fatalf("Inf err=%v", err)
	}
	if err := tbl.Set(StateKey{Heading: game.Move(-1)}, game.MoveUp, 1); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("bad key err=%v", err)
	}
	if tbl.Len() != 0 {
		t.Fatalf("rejected writes created rows")
	}
}

func TestTable_NonFiniteRowReadsAsZero(t *testing.T) {
	tbl := NewTable()
	// Bypass Set to simulate a corrupted row.
	tbl.rows[testKey] = Values{1, math.NaN(), 0, 0}
	if v := tbl.Get(testKey); v != (Values{}) {
		t.Fatalf("corrupt row read as %v", v)
	}
	if n := tbl.NonFiniteReads(); n != 1 {
		t.Fatalf("NonFiniteReads=%d want=1", n)
	}
}

func TestTable_EntriesSortedAndCloned(t *testing.T) {
	tbl := NewTable()
	hi, _ := KeyFromIndex(200)
	lo, _ := KeyFromIndex(3)
	_ = tbl.Set(hi, game.MoveUp, 2)
	_ = tbl.Set(lo, game.MoveDown, 1)

	entries := tbl.Entries()
	if len(entries) != 2 || entries[0].Key != lo || entries[1].Key != hi {
		t.Fatalf("entries not sorted by index: %v", entries)
	}

	c := tbl.Clone()
	_ = c.Set(lo, game.MoveDown, 9)
	if tbl.Get(lo)[game.MoveDown] != 1 {
		t.Fatalf("Clone shares storage")
	}
}

// Run with -race: the trainer writes while a server or display reads.
func TestTable_ConcurrentUpdateAndRead(t *testing.T) {
	tbl := NewTable()
	l := &Learner{Table: tbl, Alpha: 0.1, Gamma: 0.9}
	next, _ := KeyFromIndex(17)
	if err := tbl.Set(next, game.MoveDown, 5); err != nil {
		t.Fatalf("Set: %v", err)
	}

	const writers, readers, rounds = 8, 8, 500
	tr := Transition{State: testKey, Action: game.MoveUp, Reward: RewardCloser, Next: next}

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				if _, err := l.Update(tr); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				_ = tbl.Get(testKey)
				_ = tbl.Entries()
				_ = tbl.Len()
				_ = l.Target(tr)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Update: %v", err)
	}

	// Every update moves toward the same fixed target, so the result is the
	// serial value regardless of interleaving.
	target := RewardCloser + 0.9*5
	want := target * (1 - math.Pow(0.9, writers*rounds))
	got := tbl.Get(testKey)[game.MoveUp]
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Fatalf("final value not finite: %v", got)
	}
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("final value=%v want=%v", got, want)
	}
	if n := tbl.NonFiniteReads(); n != 0 {
		t.Fatalf("NonFiniteReads=%d want=0", n)
	}
}
