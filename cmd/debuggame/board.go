package main

import (
	"fmt"
	"strings"

	"github.com/brensch/snekq/game"
	"github.com/brensch/snekq/qlearn"
	"github.com/logrusorgru/aurora"
)

// colorBoard colors the plain board from game.Render cell by cell.
func colorBoard(au aurora.Aurora, s *game.Snapshot) string {
	plain := game.Render(s)
	lines := strings.SplitAfterN(plain, "\n", 2)

	var b strings.Builder
	b.WriteString(lines[0])
	if len(lines) < 2 {
		return b.String()
	}
	for _, r := range lines[1] {
		switch r {
		case 'H':
			if s.Dead {
				b.WriteString(au.Bold(au.Red("H")).String())
			} else {
				b.WriteString(au.Bold(au.Green("H")).String())
			}
		case 'o':
			b.WriteString(au.Green("o").String())
		case 'F':
			b.WriteString(au.Yellow("F").String())
		case '.':
			b.WriteString(au.BrightBlack(".").String())
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// describeValues prints the four action values with the greedy one highlighted.
func describeValues(au aurora.Aurora, v qlearn.Values) string {
	best := qlearn.Greedy(v)
	parts := make([]string, 0, game.NumMoves)
	for _, m := range game.AllMoves {
		cell := fmt.Sprintf("%s=%.2f", m, v[m])
		if m == best {
			parts = append(parts, au.Cyan(cell).String())
		} else {
			parts = append(parts, cell)
		}
	}
	return strings.Join(parts, " ")
}
