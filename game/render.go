package game

import (
	"fmt"
	"strings"
)

// Render draws the board top-to-bottom for logs and debug tools.
// The controlled snake is drawn as O/o, rivals as A/a, B/b, ... in slot order.
// Food is F, hazards are ~ and food on a hazard is *.
func Render(state *GameState) string {
	if state == nil {
		return "<nil state>\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Turn=%d Size=%dx%d You=%s\n", state.Turn, state.Width, state.Height, state.YouId)
	for i := range state.Snakes {
		s := &state.Snakes[i]
		fmt.Fprintf(&b, "Snake %s Health=%d Len=%d\n", s.Id, s.Health, len(s.Body))
	}

	w, h := int(state.Width), int(state.Height)
	if w <= 0 || h <= 0 || w > 64 || h > 64 {
		return b.String()
	}

	grid := make([][]byte, h)
	for y := range grid {
		grid[y] = make([]byte, w)
		for x := range grid[y] {
			grid[y][x] = '.'
		}
	}
	put := func(p Point, c byte) {
		if state.InBounds(p) {
			grid[p.Y][p.X] = c
		}
	}

	for _, hz := range state.Hazards {
		put(hz, '~')
	}
	for _, f := range state.Food {
		if state.IsHazard(f) {
			put(f, '*')
		} else {
			put(f, 'F')
		}
	}

	rival := byte(0)
	for i := range state.Snakes {
		s := &state.Snakes[i]
		body, head := byte('o'), byte('O')
		if s.Id != state.YouId {
			body = 'a' + rival%26
			head = body - 32
			rival++
		}
		// Draw tail-first so the head wins on stacked segments.
		for j := len(s.Body) - 1; j >= 0; j-- {
			if j == 0 {
				put(s.Body[j], head)
			} else {
				put(s.Body[j], body)
			}
		}
	}

	for y := h - 1; y >= 0; y-- {
		b.Write(grid[y])
		b.WriteByte('\n')
	}
	return b.String()
}
