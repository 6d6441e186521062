package game

import (
	"fmt"
	"strings"
)

// Render draws the board top row first: H head, o body, F food, . empty.
// Cells off the board (a dead head) are not drawn.
func Render(s *Snapshot) string {
	if s == nil {
		return "<nil snapshot>"
	}
	grid := make([][]byte, s.Height)
	for y := range grid {
		grid[y] = []byte(strings.Repeat(".", int(s.Width)))
	}
	if s.InBounds(s.Food) {
		grid[s.Food.Y][s.Food.X] = 'F'
	}
	for i := len(s.Body) - 1; i >= 0; i-- {
		p := s.Body[i]
		if !s.InBounds(p) {
			continue
		}
		if i == 0 {
			grid[p.Y][p.X] = 'H'
		} else {
			grid[p.Y][p.X] = 'o'
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Turn=%d Size=%dx%d Heading=%s Len=%d Dead=%v\n", s.Turn, s.Width, s.Height, s.Heading, len(s.Body), s.Dead)
	for y := s.Height - 1; y >= 0; y-- {
		b.Write(grid[y])
		b.WriteByte('\n')
	}
	return b.String()
}
