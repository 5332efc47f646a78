package planner

import "prospector.ai/internal/grid"

// Option is one of a unit's five moves. Cost is the path cost through the
// destination with the stay bonus folded in; Threat is the forecast penalty
// charged when the destination is not reserved.
type Option struct {
	Dest   grid.Point     `json:"dest"`
	Dir    grid.Direction `json:"dir"`
	Cost   float64        `json:"cost"`
	Threat float64        `json:"threat,omitempty"`
}

// MoveRequest is a movable unit waiting for a committed direction.
type MoveRequest struct {
	UnitID  int
	Pos     grid.Point
	Options [5]Option
}

type Resolution struct {
	Dirs map[int]grid.Direction
	// Rerouted lists units moved off their first choice to make room.
	Rerouted []int
	// Failed lists units that could not be placed and hold position.
	Failed []int

	reserved map[grid.Point]int
	blocked  map[grid.Point]struct{}
	shared   func(grid.Point) bool
}

// Reserved reports whether a committed unit or an immovable one ends the
// turn on p.
func (r *Resolution) Reserved(p grid.Point) bool {
	if _, ok := r.blocked[p]; ok {
		return true
	}
	_, ok := r.reserved[p]
	return ok
}

// Destinations maps every committed unit to the cell it moves to.
func (r *Resolution) Destinations(g *grid.Grid, reqs []MoveRequest) map[int]grid.Point {
	out := make(map[int]grid.Point, len(reqs))
	for _, q := range reqs {
		out[q.UnitID] = g.Step(q.Pos, r.Dirs[q.UnitID])
	}
	return out
}

// Resolver commits one direction per unit so that no two of them share a
// destination, except on cells for which Shared reports true.
type Resolver struct {
	Grid *grid.Grid
	// Penalty is added to the cost of a reserved destination.
	Penalty float64
	// MaxChain bounds the length of a displacement chain.
	MaxChain int
	Shared   func(grid.Point) bool
}

type chainMove struct {
	unit     int
	released grid.Point
	dir      grid.Direction
}

type reroute struct {
	dir   grid.Direction
	dest  grid.Point
	moves []chainMove
	units int
	delta float64
}

// Resolve processes reqs in order. Each unit takes its cheapest destination
// not yet reserved and reserves it. Units left with only reserved
// destinations are then placed by displacing the units holding those cells
// along a chain, choosing the chain that disturbs the fewest units and then
// the one that raises cost the least.
func (rv *Resolver) Resolve(reqs []MoveRequest, immovable []grid.Point) *Resolution {
	shared := rv.Shared
	if shared == nil {
		shared = func(grid.Point) bool { return false }
	}
	res := &Resolution{
		Dirs:     make(map[int]grid.Direction, len(reqs)),
		reserved: make(map[grid.Point]int),
		blocked:  make(map[grid.Point]struct{}),
		shared:   shared,
	}
	for _, p := range immovable {
		if !shared(p) {
			res.blocked[p] = struct{}{}
		}
	}

	byID := make(map[int]int, len(reqs))
	scores := make(map[int][5]float64, len(reqs))
	preferred := make(map[int]grid.Direction, len(reqs))
	var colliding []int

	for i, q := range reqs {
		byID[q.UnitID] = i
		var sc [5]float64
		bestDir, bestScore, found := grid.Still, 0.0, false
		prefDir, prefScore := grid.Still, 0.0
		for k, o := range q.Options {
			_, immov := res.blocked[o.Dest]
			forbidden := res.Reserved(o.Dest)
			score := o.Cost
			if forbidden {
				score += rv.Penalty
			} else {
				score += o.Threat
			}
			// A cell held by another movable unit may still be freed by
			// displacing it, so its penalty is left out of the chain score.
			sc[k] = score
			if forbidden && !immov {
				sc[k] = o.Cost
			}
			if k == 0 || sc[k] < prefScore {
				prefDir, prefScore = o.Dir, sc[k]
			}
			if !forbidden && (!found || score < bestScore) {
				bestDir, bestScore, found = o.Dir, score, true
			}
		}
		scores[q.UnitID] = sc
		preferred[q.UnitID] = prefDir
		if !found {
			colliding = append(colliding, q.UnitID)
			continue
		}
		res.Dirs[q.UnitID] = bestDir
		res.reserve(rv.Grid.Step(q.Pos, bestDir), q.UnitID)
	}

	for _, id := range colliding {
		q := reqs[byID[id]]
		var best *reroute
		for k, o := range q.Options {
			moves, delta, ok := rv.chain(res, reqs, byID, scores, id, o.Dest)
			if !ok {
				continue
			}
			units := len(moves)
			if o.Dir != preferred[id] {
				units++
			}
			delta += scores[id][k]
			if best == nil || units < best.units || (units == best.units && delta < best.delta) {
				best = &reroute{dir: o.Dir, dest: o.Dest, moves: moves, units: units, delta: delta}
			}
		}
		if best == nil {
			res.Failed = append(res.Failed, id)
			continue
		}
		for _, m := range best.moves {
			res.release(m.released)
		}
		res.Dirs[id] = best.dir
		res.reserve(best.dest, id)
		for _, m := range best.moves {
			res.Dirs[m.unit] = m.dir
			res.reserve(rv.Grid.Step(reqs[byID[m.unit]].Pos, m.dir), m.unit)
			res.Rerouted = append(res.Rerouted, m.unit)
		}
	}
	return res
}

func (r *Resolution) reserve(p grid.Point, id int) {
	if r.shared(p) {
		return
	}
	r.reserved[p] = id
}

func (r *Resolution) release(p grid.Point) { delete(r.reserved, p) }

// chain tries to free dest for unit id. The holder of dest moves to its
// cheapest free destination if it has one. Otherwise, if it was moving, it
// is made to stay, and the unit holding its own cell is displaced in turn.
// The walk fails when it reaches an immovable unit or a holder that was
// already staying.
func (rv *Resolver) chain(res *Resolution, reqs []MoveRequest, byID map[int]int, scores map[int][5]float64, id int, dest grid.Point) ([]chainMove, float64, bool) {
	claimed := make(map[grid.Point]int)
	holder := func(p grid.Point) (int, bool) {
		if h, ok := claimed[p]; ok {
			return h, true
		}
		h, ok := res.reserved[p]
		return h, ok
	}
	visited := map[int]bool{id: true}

	var moves []chainMove
	delta := 0.0
	prevID, prevPos := id, dest
	for step := 0; step < rv.MaxChain; step++ {
		if _, immov := res.blocked[prevPos]; immov {
			return nil, 0, false
		}
		h, held := holder(prevPos)
		if !held {
			return moves, delta, true
		}
		if visited[h] {
			return nil, 0, false
		}
		visited[h] = true
		curDir, ok := res.Dirs[h]
		if !ok {
			return nil, 0, false
		}
		claimed[prevPos] = prevID

		q := reqs[byID[h]]
		sc := scores[h]
		bestK := -1
		var prevScore, stillScore float64
		for k, o := range q.Options {
			_, immov := res.blocked[o.Dest]
			_, taken := holder(o.Dest)
			if !immov && !taken && (bestK < 0 || sc[k] < sc[bestK]) {
				bestK = k
			}
			if o.Dir == curDir {
				prevScore = sc[k]
			}
			if o.Dir == grid.Still {
				stillScore = sc[k]
			}
		}
		if bestK >= 0 {
			moves = append(moves, chainMove{unit: h, released: prevPos, dir: q.Options[bestK].Dir})
			return moves, delta + sc[bestK] - prevScore, true
		}
		if curDir == grid.Still {
			return nil, 0, false
		}
		moves = append(moves, chainMove{unit: h, released: prevPos, dir: grid.Still})
		delta += stillScore - prevScore
		prevID, prevPos = h, q.Pos
	}
	return nil, 0, false
}
