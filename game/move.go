package game

// Move is one of the four absolute directions.
// The numeric order is also the argmax tie-break order.
type Move int

const (
	MoveUp Move = iota
	MoveDown
	MoveLeft
	MoveRight
)

// NumMoves is the size of the action space.
const NumMoves = 4

// AllMoves lists every move in tie-break order.
var AllMoves = [NumMoves]Move{MoveUp, MoveDown, MoveLeft, MoveRight}

var moveNames = [NumMoves]string{"up", "down", "left", "right"}

func (m Move) String() string {
	if !m.Valid() {
		return "invalid"
	}
	return moveNames[m]
}

// ParseMove is the inverse of String.
func ParseMove(s string) (Move, bool) {
	for i, name := range moveNames {
		if name == s {
			return Move(i), true
		}
	}
	return 0, false
}

func (m Move) Valid() bool {
	return m >= MoveUp && m <= MoveRight
}

// Opposite returns the move that reverses m.
func (m Move) Opposite() Move {
	switch m {
	case MoveUp:
		return MoveDown
	case MoveDown:
		return MoveUp
	case MoveLeft:
		return MoveRight
	default:
		return MoveLeft
	}
}

// Left returns the absolute direction to the left of heading m.
func (m Move) Left() Move {
	switch m {
	case MoveUp:
		return MoveLeft
	case MoveLeft:
		return MoveDown
	case MoveDown:
		return MoveRight
	default:
		return MoveUp
	}
}

// Right returns the absolute direction to the right of heading m.
func (m Move) Right() Move {
	return m.Left().Opposite()
}

// Delta is the one-cell offset for m. Up is +Y.
func (m Move) Delta() Point {
	switch m {
	case MoveUp:
		return Point{Y: 1}
	case MoveDown:
		return Point{Y: -1}
	case MoveLeft:
		return Point{X: -1}
	default:
		return Point{X: 1}
	}
}

// HeadingOf infers the heading from the first two body segments.
// Bodies shorter than two segments (or stacked at spawn) report fallback.
func HeadingOf(body []Point, fallback Move) Move {
	if len(body) < 2 {
		return fallback
	}
	d := Point{X: body[0].X - body[1].X, Y: body[0].Y - body[1].Y}
	for _, m := range AllMoves {
		if m.Delta() == d {
			return m
		}
	}
	return fallback
}
