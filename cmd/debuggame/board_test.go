package main

import (
	"strings"
	"testing"

	"github.com/brensch/snekq/game"
	"github.com/brensch/snekq/qlearn"
	"github.com/logrusorgru/aurora"
)

func TestColorBoard_PlainMatchesRender(t *testing.T) {
	s := &game.Snapshot{
		Width: 4, Height: 3,
		Body:    []game.Point{{X: 1, Y: 1}, {X: 0, Y: 1}},
		Heading: game.MoveRight,
		Food:    game.Point{X: 3, Y: 2},
	}
	got := colorBoard(aurora.NewAurora(false), s)
	if got != game.Render(s) {
		t.Fatalf("uncolored board differs:\n%s\nvs\n%s", got, game.Render(s))
	}
}

func TestColorBoard_AddsEscapes(t *testing.T) {
	s := &game.Snapshot{
		Width: 3, Height: 3,
		Body:    []game.Point{{X: 1, Y: 1}},
		Heading: game.MoveUp,
		Food:    game.Point{X: 0, Y: 0},
	}
	got := colorBoard(aurora.NewAurora(true), s)
	if !strings.Contains(got, "\x1b[") {
		t.Fatalf("expected ANSI escapes in %q", got)
	}
}

func TestDescribeValues(t *testing.T) {
	got := describeValues(aurora.NewAurora(false), qlearn.Values{0, 1.5, -2, 0.25})
	want := "up=0.00 down=1.50 left=-2.00 right=0.25"
	if got != want {
		t.Fatalf("describeValues = %q, want %q", got, want)
	}
}
