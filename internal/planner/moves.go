package planner

import (
	"math"
	"sort"

	"prospector.ai/internal/game"
	"prospector.ai/internal/grid"
)

type orderKey struct {
	id       int
	priority int
}

// moveOrder sorts units so that cheap, nearly settled moves claim their
// cells first. Equal priorities go by unit id.
func moveOrder(s *game.State, units []game.Unit, intents map[int]Intent, targets map[int]grid.Point) []int {
	g := s.Grid
	keys := make([]orderKey, 0, len(units))
	for _, u := range units {
		drop, d := s.NearestBase(u.Pos)
		pr := 3 * d
		if u.Pos == drop {
			pr -= 300
		}
		switch intents[u.ID] {
		case Depositing:
			pr -= 300 + u.Cargo/10
		case Mining:
			pr -= 150 + s.Halite(u.Pos)/20
		case Approaching:
			pr += g.Dist(u.Pos, targets[u.ID]) - s.Halite(u.Pos)/20
		}
		keys = append(keys, orderKey{id: u.ID, priority: pr})
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].priority != keys[j].priority {
			return keys[i].priority < keys[j].priority
		}
		return keys[i].id < keys[j].id
	})
	out := make([]int, len(keys))
	for i, k := range keys {
		out[i] = k.id
	}
	return out
}

// moveOptions prices the five moves of u towards target.
func (p *Planner) moveOptions(s *game.State, u game.Unit, target grid.Point, stuck int, threat map[grid.Point]float64) [5]Option {
	g := s.Grid
	costs := p.searcher(g).Costs(u.Pos, target)
	nb := g.Neighborhood(u.Pos)
	var out [5]Option
	for k, d := range grid.Directions {
		o := Option{Dest: nb[k], Dir: d, Cost: float64(costs[k])}
		if u.Pos == target {
			o.Cost -= p.cfg.Moves.StayBonus * float64(s.Halite(o.Dest))
		}
		if pr, ok := threat[o.Dest]; ok && pr > 0 {
			factor := pr * p.cfg.Forecast.Weight *
				homeProximity(s.BaseDist(u.Pos)) *
				unitWorth(float64(s.Turn)/float64(s.Const.MaxTurns), float64(u.Cargo)/float64(s.Const.Capacity))
			factor *= math.Pow(p.cfg.Moves.StuckDecay, float64(stuck))
			o.Threat = grid.StepCost * factor
		}
		out[k] = o
	}
	return out
}
