package planner

import (
	"math"
	"sort"

	"prospector.ai/internal/game"
	"prospector.ai/internal/grid"
	"prospector.ai/internal/tuning"
)

// Forecaster estimates, per cell, the probability that a hostile unit will
// occupy it next turn.
type Forecaster interface {
	Forecast(s *game.State) map[grid.Point]float64
}

// HeuristicForecaster guesses each hostile unit's next move from its cargo
// and the resource around it.
type HeuristicForecaster struct {
	Cfg tuning.Forecast
}

func (f HeuristicForecaster) Forecast(s *game.State) map[grid.Point]float64 {
	out := make(map[grid.Point]float64)
	var hostile []game.Unit
	for _, u := range s.Units {
		if u.Owner != s.Me {
			hostile = append(hostile, u)
		}
	}
	sort.Slice(hostile, func(i, j int) bool { return hostile[i].ID < hostile[j].ID })
	for _, u := range hostile {
		cells, probs := f.predict(s, u)
		for i, p := range cells {
			pr := probs[i]
			if pr <= 0 {
				continue
			}
			if prev, ok := out[p]; ok {
				out[p] = 1 - (1-pr)*(1-prev)
			} else {
				out[p] = pr
			}
		}
	}
	return out
}

func (f HeuristicForecaster) predict(s *game.State, u game.Unit) ([5]grid.Point, [5]float64) {
	g := s.Grid
	cells := g.Neighborhood(u.Pos)
	var w [5]float64
	if !s.CanMove(u) {
		w[4] = 1
		return cells, w
	}
	switch {
	case u.Cargo > f.Cfg.HomeCargo:
		w = [5]float64{2, 2, 2, 2, 1}
		if home, ok := s.ShipyardOf(u.Owner); ok {
			w[g.NaiveStep(u.Pos, home)] *= 3
		}
	case s.Halite(u.Pos) > f.Cfg.RichCell:
		w = [5]float64{1, 1, 1, 1, 6}
	default:
		for i, p := range cells {
			w[i] = sigmoid(float64(s.Halite(p)))
		}
		w[4] += 0.1
	}
	for i := 0; i < 4; i++ {
		if _, occupied := s.UnitAt(cells[i]); occupied {
			w[i] *= f.Cfg.CrowdDamping * (float64(u.Cargo)/float64(s.Const.Capacity) + 0.2)
		}
	}
	total := 0.0
	for _, v := range w {
		total += v
	}
	if total > 0 {
		for i := range w {
			w[i] /= total
		}
	}
	return cells, w
}

// sigmoid is about zero for empty cells and rises towards 0.85 on rich ones.
func sigmoid(h float64) float64 {
	return math.Max(0, -0.148047+1/(1+math.Exp(0.0025*(700-h))))
}

// homeProximity scales threat by distance from home: none within 3 cells,
// full from 6 on.
func homeProximity(d int) float64 {
	switch {
	case d >= 6:
		return 1
	case d <= 3:
		return 0
	}
	return float64(d-3) / 3
}

// unitWorth discounts an empty unit late in the game.
func unitWorth(progress, fullness float64) float64 {
	return 1 - progress*progress*(1-fullness)
}
