package game

// Point is a board coordinate.
// Coordinates follow Battlesnake conventions: (0,0) is bottom-left, up is +Y.
type Point struct {
	X int32
	Y int32
}

// Move is one of the four cardinal directions.
type Move uint8

const (
	MoveUp Move = iota
	MoveDown
	MoveLeft
	MoveRight
)

// DefaultMove is emitted when nothing better is available.
const DefaultMove = MoveUp

// Moves lists every direction in generation order.
var Moves = [4]Move{MoveUp, MoveDown, MoveLeft, MoveRight}

var moveNames = [4]string{"up", "down", "left", "right"}

func (m Move) String() string {
	if int(m) < len(moveNames) {
		return moveNames[m]
	}
	return "unknown"
}

// ParseMove converts an API direction string into a Move.
func ParseMove(s string) (Move, bool) {
	for i, name := range moveNames {
		if name == s {
			return Move(i), true
		}
	}
	return DefaultMove, false
}

// Delta is the unit vector for m.
func (m Move) Delta() Point {
	switch m {
	case MoveUp:
		return Point{X: 0, Y: 1}
	case MoveDown:
		return Point{X: 0, Y: -1}
	case MoveLeft:
		return Point{X: -1, Y: 0}
	default:
		return Point{X: 1, Y: 0}
	}
}

// Step returns the neighbour of p in direction m.
func (p Point) Step(m Move) Point {
	d := m.Delta()
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Neighbors returns the four orthogonal neighbours in Moves order.
func (p Point) Neighbors() [4]Point {
	return [4]Point{p.Step(MoveUp), p.Step(MoveDown), p.Step(MoveLeft), p.Step(MoveRight)}
}

// Manhattan is the grid distance between two points.
func Manhattan(a, b Point) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return int(dx + dy)
}

// MoveBetween returns the move that takes from to its neighbour to.
func MoveBetween(from, to Point) (Move, bool) {
	for _, m := range Moves {
		if from.Step(m) == to {
			return m, true
		}
	}
	return DefaultMove, false
}
