package rules

import (
	"math/rand"
	"testing"

	"github.com/brensch/snekq/game"
)

func logNextState(t *testing.T, label string, before *game.Snapshot, move game.Move, after *game.Snapshot) {
	t.Logf("%s\n  BEFORE (move=%s):\n%s  AFTER:\n%s", label, move, game.Render(before), game.Render(after))
}

func assertBody(t *testing.T, got, want []game.Point) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("body len=%d want=%d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("body[%d]=%v want=%v", i, got[i], want[i])
		}
	}
}

func TestNextState_NormalMove(t *testing.T) {
	before := &game.Snapshot{
		Width:   7,
		Height:  7,
		Body:    []game.Point{{X: 3, Y: 3}, {X: 3, Y: 2}, {X: 3, Y: 1}},
		Heading: game.MoveUp,
		Food:    game.Point{X: 0, Y: 0},
	}

	after, ate := NextState(before, game.MoveUp, nil)
	logNextState(t, "normal move", before, game.MoveUp, after)

	if ate {
		t.Fatalf("ate food unexpectedly")
	}
	assertBody(t, after.Body, []game.Point{{X: 3, Y: 4}, {X: 3, Y: 3}, {X: 3, Y: 2}})
	if after.Turn != 1 {
		t.Fatalf("turn=%d want=1", after.Turn)
	}
	if before.Body[0] != (game.Point{X: 3, Y: 3}) {
		t.Fatalf("NextState mutated its input")
	}
}

func TestNextState_EatFood_Grows(t *testing.T) {
	before := &game.Snapshot{
		Width:   7,
		Height:  7,
		Body:    []game.Point{{X: 3, Y: 3}, {X: 3, Y: 2}, {X: 3, Y: 1}},
		Heading: game.MoveUp,
		Food:    game.Point{X: 3, Y: 4},
	}

	after, ate := NextState(before, game.MoveUp, rand.New(rand.NewSource(3)))
	logNextState(t, "eat food", before, game.MoveUp, after)

	if !ate {
		t.Fatalf("expected food to be eaten")
	}
	assertBody(t, after.Body, []game.Point{{X: 3, Y: 4}, {X: 3, Y: 3}, {X: 3, Y: 2}, {X: 3, Y: 1}})
	if after.Occupied(after.Food) {
		t.Fatalf("food respawned on body at %v", after.Food)
	}
	if after.Dead {
		t.Fatalf("snake died after eating")
	}
}

func TestNextState_ReverseIsNoOp(t *testing.T) {
	before := &game.Snapshot{
		Width:   7,
		Height:  7,
		Body:    []game.Point{{X: 3, Y: 3}, {X: 2, Y: 3}, {X: 1, Y: 3}},
		Heading: game.MoveRight,
		Food:    game.Point{X: 0, Y: 6},
	}

	after, _ := NextState(before, game.MoveLeft, nil)
	logNextState(t, "reverse", before, game.MoveLeft, after)

	if after.Dead {
		t.Fatalf("reversing killed the snake")
	}
	if after.Heading != game.MoveRight {
		t.Fatalf("heading=%s want=right", after.Heading)
	}
	assertBody(t, after.Body, []game.Point{{X: 4, Y: 3}, {X: 3, Y: 3}, {X: 2, Y: 3}})
}

func TestNextState_WallCollision(t *testing.T) {
	before := &game.Snapshot{
		Width:   5,
		Height:  5,
		Body:    []game.Point{{X: 4, Y: 2}, {X: 3, Y: 2}},
		Heading: game.MoveRight,
		Food:    game.Point{X: 0, Y: 0},
	}

	after, _ := NextState(before, game.MoveRight, nil)
	if !after.Dead {
		t.Fatalf("expected wall collision")
	}
	if err := after.Validate(); err != nil {
		t.Fatalf("terminal snapshot should still validate: %v", err)
	}
	if !IsTerminal(after) {
		t.Fatalf("IsTerminal=false after collision")
	}
}

func TestNextState_SelfCollision(t *testing.T) {
	// Head at (2,2) heading up with a body looping round to its left.
	before := &game.Snapshot{
		Width:  7,
		Height: 7,
		Body: []game.Point{
			{X: 2, Y: 2}, {X: 2, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 2}, {X: 1, Y: 3},
		},
		Heading: game.MoveUp,
		Food:    game.Point{X: 6, Y: 6},
	}

	after, _ := NextState(before, game.MoveLeft, nil)
	logNextState(t, "self collision", before, game.MoveLeft, after)
	if !after.Dead {
		t.Fatalf("expected self collision")
	}
}

func TestNextState_ChasingTailIsSafe(t *testing.T) {
	// 2x2 loop: the head moves into the cell the tail vacates.
	before := &game.Snapshot{
		Width:   4,
		Height:  4,
		Body:    []game.Point{{X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0}, {X: 0, Y: 1}},
		Heading: game.MoveUp,
		Food:    game.Point{X: 3, Y: 3},
	}

	after, _ := NextState(before, game.MoveLeft, nil)
	if after.Dead {
		t.Fatalf("moving into the vacating tail should be safe\n%s", game.Render(after))
	}
}

func TestGetLegalMoves(t *testing.T) {
	state := &game.Snapshot{
		Width:   5,
		Height:  5,
		Body:    []game.Point{{X: 0, Y: 2}, {X: 1, Y: 2}, {X: 2, Y: 2}},
		Heading: game.MoveLeft,
		Food:    game.Point{X: 4, Y: 4},
	}
	got := GetLegalMoves(state)
	want := []game.Move{game.MoveUp, game.MoveDown}
	if len(got) != len(want) {
		t.Fatalf("legal=%v want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("legal=%v want=%v", got, want)
		}
	}
}

func TestGame_ResetAndStep(t *testing.T) {
	g := NewGame(0, 0, rand.New(rand.NewSource(42)))
	if _, err := g.Step(game.MoveUp); err == nil {
		t.Fatalf("Step before Reset should fail")
	}

	s, err := g.Reset()
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if s.Width != DefaultWidth || s.Height != DefaultHeight {
		t.Fatalf("board=%dx%d", s.Width, s.Height)
	}
	if s.Heading != game.MoveRight || s.Body[0] != StartBody[0] {
		t.Fatalf("unexpected start: heading=%s head=%v", s.Heading, s.Body[0])
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("initial snapshot invalid: %v", err)
	}

	// Drive straight into the right wall.
	steps := 0
	for !s.Dead {
		s, err = g.Step(game.MoveRight)
		if err != nil {
			t.Fatalf("Step: %v", err)
		}
		steps++
		if steps > DefaultWidth+1 {
			t.Fatalf("snake never hit the wall")
		}
	}
	if _, err := g.Step(game.MoveRight); err == nil {
		t.Fatalf("Step after game over should fail")
	}
	if g.Score()%10 != 0 {
		t.Fatalf("score=%d not a multiple of ten", g.Score())
	}
}
