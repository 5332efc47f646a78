package planner

import (
	"math"
	"sort"

	"prospector.ai/internal/game"
	"prospector.ai/internal/grid"
	"prospector.ai/internal/tuning"
)

// SelectGoals returns exactly k candidate cells: every miner's own cell
// first, then the best cells by resource over one plus distance to the
// nearest base, then copies of the newest base. Equal scores keep row-major
// order.
func SelectGoals(s *game.State, miners []game.Unit, k int) []grid.Point {
	g := s.Grid
	out := make([]grid.Point, 0, k)
	taken := make(map[grid.Point]struct{}, k)
	for _, u := range miners {
		if _, dup := taken[u.Pos]; dup {
			continue
		}
		taken[u.Pos] = struct{}{}
		out = append(out, u.Pos)
	}

	type scored struct {
		idx   int
		score float64
	}
	cells := make([]scored, 0, g.Size())
	for i := 0; i < g.Size(); i++ {
		p := g.PointAt(i)
		if s.IsMyBase(p) {
			continue
		}
		cells = append(cells, scored{idx: i, score: float64(g.Cells[i]) / float64(1+s.Own.Dist[i])})
	}
	sort.Slice(cells, func(a, b int) bool {
		if cells[a].score != cells[b].score {
			return cells[a].score > cells[b].score
		}
		return cells[a].idx < cells[b].idx
	})
	for _, c := range cells {
		if len(out) >= k {
			break
		}
		p := g.PointAt(c.idx)
		if _, dup := taken[p]; dup {
			continue
		}
		taken[p] = struct{}{}
		out = append(out, p)
	}

	home := s.MyBases[len(s.MyBases)-1]
	for len(out) < k {
		out = append(out, home)
	}
	return out
}

// GoalValue estimates the resource per exponentiated turn a unit earns by
// mining goal and delivering to the base nearest it.
func GoalValue(s *game.State, cfg tuning.Value, u game.Unit, intent Intent, goal grid.Point) float64 {
	g := s.Grid
	here := s.Halite(u.Pos)
	leave := 0.0
	if goal != u.Pos && intent == Mining {
		if here > s.Const.Capacity/10 {
			leave = cfg.LeaveRichPenalty * float64(here/s.Const.MoveCostRatio)
		} else {
			leave = float64(here) * cfg.LeavePoorFactor
		}
	}
	drop, _ := s.NearestBase(goal)
	net := float64(s.Halite(goal))*cfg.GoalShare -
		leave -
		cfg.TravelShare*float64(grid.CorridorSum(g, u.Pos, goal, grid.Identity)) -
		cfg.ReturnShare*float64(grid.CorridorSum(g, goal, drop, grid.Tenth))
	turns := cfg.ToGoalTurnWeight*float64(g.Dist(u.Pos, goal)) +
		cfg.ToBaseTurnWeight*float64(g.Dist(goal, drop)) + 1
	return net / math.Pow(turns, cfg.TurnExponent)
}
