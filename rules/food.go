package rules

import (
	"math/rand"

	"github.com/brensch/snekab/game"
)

// FoodSettings matches the common Battlesnake server knobs:
// - MinimumFood: ensure at least this many food items exist after each turn
// - FoodSpawnChance: percentage chance (0-100) to spawn one extra food each turn
//
// Only the arena referee spawns food. The search never does: it plans against
// the food that is on the board now.
type FoodSettings struct {
	MinimumFood     int
	FoodSpawnChance int
}

var DefaultFoodSettings = FoodSettings{MinimumFood: 1, FoodSpawnChance: 15}

// ApplyFoodSettings places food on free cells according to settings. Cells
// are drawn from rng; a nil rng places nothing.
func ApplyFoodSettings(state *game.GameState, rng *rand.Rand, settings FoodSettings) {
	if state == nil || rng == nil || state.Width <= 0 || state.Height <= 0 {
		return
	}
	if settings.MinimumFood < 0 {
		settings.MinimumFood = 0
	}
	settings.FoodSpawnChance = min(max(settings.FoodSpawnChance, 0), 100)

	toSpawn := max(settings.MinimumFood-len(state.Food), 0)
	if settings.FoodSpawnChance > 0 && rng.Intn(100) < settings.FoodSpawnChance {
		toSpawn++
	}
	if toSpawn == 0 {
		return
	}

	cells := int(state.Width) * int(state.Height)
	occupied := make(map[game.Point]struct{}, cells)
	for i := range state.Snakes {
		for _, p := range state.Snakes[i].Body {
			occupied[p] = struct{}{}
		}
	}
	for _, f := range state.Food {
		occupied[f] = struct{}{}
	}

	available := make([]game.Point, 0, max(cells-len(occupied), 0))
	for y := int32(0); y < state.Height; y++ {
		for x := int32(0); x < state.Width; x++ {
			p := game.Point{X: x, Y: y}
			if _, ok := occupied[p]; !ok {
				available = append(available, p)
			}
		}
	}

	for ; toSpawn > 0 && len(available) > 0; toSpawn-- {
		i := rng.Intn(len(available))
		state.Food = append(state.Food, available[i])
		available[i] = available[len(available)-1]
		available = available[:len(available)-1]
	}
}
