// Package game defines the snapshot types exchanged between the snake
// simulation and the learning core.
//
// A Snapshot is read-only input to the learner. It carries everything the
// learner is allowed to observe: board size, the snake body (head first),
// the current heading, the food cell and whether the snake is dead.
package game

import (
	"errors"
	"fmt"
)

// Point is a board coordinate.
// Coordinates follow Battlesnake conventions: (0,0) is bottom-left.
type Point struct {
	X int32
	Y int32
}

// Add returns p shifted by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Manhattan returns the grid distance between p and q.
func Manhattan(p, q Point) int32 {
	return abs32(p.X-q.X) + abs32(p.Y-q.Y)
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// ErrInvalidSnapshot is wrapped by every Snapshot validation failure.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Snapshot is the simulation state as seen by the learner.
type Snapshot struct {
	Width   int32
	Height  int32
	Body    []Point // head first
	Heading Move
	Food    Point
	Dead    bool
	Turn    int32
}

// Head returns the first body segment. Callers must validate first.
func (s *Snapshot) Head() Point {
	return s.Body[0]
}

// InBounds reports whether p is on the board.
func (s *Snapshot) InBounds(p Point) bool {
	return p.X >= 0 && p.X < s.Width && p.Y >= 0 && p.Y < s.Height
}

// Occupied reports whether any body segment sits on p.
func (s *Snapshot) Occupied(p Point) bool {
	for _, b := range s.Body {
		if b == p {
			return true
		}
	}
	return false
}

// Blocked reports whether moving the head onto p would be fatal.
func (s *Snapshot) Blocked(p Point) bool {
	return !s.InBounds(p) || s.Occupied(p)
}

// Validate checks the fields the learner depends on.
// A dead snake may have its head off the board (it just hit a wall).
func (s *Snapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil", ErrInvalidSnapshot)
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: board %dx%d", ErrInvalidSnapshot, s.Width, s.Height)
	}
	if len(s.Body) == 0 {
		return fmt.Errorf("%w: empty body", ErrInvalidSnapshot)
	}
	if !s.Heading.Valid() {
		return fmt.Errorf("%w: heading %d", ErrInvalidSnapshot, int(s.Heading))
	}
	if !s.InBounds(s.Food) {
		return fmt.Errorf("%w: food (%d,%d) off board", ErrInvalidSnapshot, s.Food.X, s.Food.Y)
	}
	if !s.Dead && !s.InBounds(s.Body[0]) {
		return fmt.Errorf("%w: live head (%d,%d) off board", ErrInvalidSnapshot, s.Body[0].X, s.Body[0].Y)
	}
	return nil
}

// Clone performs a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	if len(s.Body) > 0 {
		out.Body = make([]Point, len(s.Body))
		copy(out.Body, s.Body)
	}
	return &out
}
