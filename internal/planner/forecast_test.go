package planner

import (
	"math"
	"testing"

	"prospector.ai/internal/game"
	"prospector.ai/internal/grid"
	"prospector.ai/internal/tuning"
)

func TestForecastStuckUnitStays(t *testing.T) {
	pos := grid.Point{X: 9, Y: 9}
	s := world{
		w: 16, h: 16,
		yards: []grid.Point{home, enemy},
		cells: map[grid.Point]int{pos: 800},
		units: []game.Unit{{Owner: 1, ID: 5, Pos: pos, Cargo: 0}},
	}.state(t)
	f := HeuristicForecaster{Cfg: tuning.Defaults().Forecast}
	out := f.Forecast(s)
	if len(out) != 1 || out[pos] != 1 {
		t.Fatalf("forecast: %v", out)
	}
}

func TestForecastNormalizesAndCombines(t *testing.T) {
	a := grid.Point{X: 8, Y: 8}
	b := grid.Point{X: 10, Y: 8}
	s := world{
		w: 16, h: 16,
		fill:  100,
		yards: []grid.Point{home, enemy},
		units: []game.Unit{
			{Owner: 1, ID: 5, Pos: a, Cargo: 500},
			{Owner: 1, ID: 6, Pos: b, Cargo: 500},
			{Owner: 0, ID: 1, Pos: grid.Point{X: 2, Y: 2}},
		},
	}.state(t)
	f := HeuristicForecaster{Cfg: tuning.Defaults().Forecast}
	cells, probs := f.predict(s, game.Unit{Owner: 1, ID: 5, Pos: a, Cargo: 500})
	sum := 0.0
	for _, p := range probs {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("probabilities sum to %v", sum)
	}
	if cells[4] != a || probs[4] <= probs[0] {
		t.Fatalf("stay should be favored on a uniform map: %v", probs)
	}

	out := f.Forecast(s)
	mid := grid.Point{X: 9, Y: 8}
	_, pa := f.predict(s, game.Unit{Owner: 1, ID: 5, Pos: a, Cargo: 500})
	_, pb := f.predict(s, game.Unit{Owner: 1, ID: 6, Pos: b, Cargo: 500})
	want := 1 - (1-pa[1])*(1-pb[3])
	if math.Abs(out[mid]-want) > 1e-12 {
		t.Fatalf("combined %v want %v", out[mid], want)
	}
	if _, ok := out[grid.Point{X: 2, Y: 1}]; ok {
		t.Fatalf("own units must not be forecast")
	}
}

func TestThreatHelpers(t *testing.T) {
	if homeProximity(3) != 0 || homeProximity(6) != 1 || math.Abs(homeProximity(4)-1.0/3) > 1e-12 {
		t.Fatalf("homeProximity")
	}
	if unitWorth(0, 0) != 1 || unitWorth(1, 0) != 0 || unitWorth(1, 1) != 1 {
		t.Fatalf("unitWorth")
	}
	if sigmoid(0) > 1e-6 || sigmoid(-100) != 0 || sigmoid(1000) <= sigmoid(500) {
		t.Fatalf("sigmoid shape")
	}
}
