package planner

import (
	"prospector.ai/internal/grid"
	"prospector.ai/internal/pqueue"
)

type searchNode struct {
	idx  int
	prio int
}

// Searcher runs backward best-first searches over one grid. Its scratch
// arrays are stamped with a generation so a search never clears them.
type Searcher struct {
	g    *grid.Grid
	cost []int
	seen []uint32
	done []uint32
	gen  uint32
	q    *pqueue.Queue[searchNode]
}

func NewSearcher(g *grid.Grid) *Searcher {
	n := g.Size()
	return &Searcher{
		g:    g,
		cost: make([]int, n),
		seen: make([]uint32, n),
		done: make([]uint32, n),
		q: pqueue.New(func(a, b searchNode) bool {
			if a.prio != b.prio {
				return a.prio < b.prio
			}
			return a.idx < b.idx
		}),
	}
}

func (s *Searcher) next() {
	s.gen++
	if s.gen == 0 {
		clear(s.seen)
		clear(s.done)
		s.gen = 1
	}
	s.q.Reset()
}

// Costs returns, for each of the five moves from `from`, the cheapest cost
// of reaching target from the move's destination. Entering a cell costs
// grid.StepCost plus its resource. The search is rooted at target and stops
// as soon as all five destinations are settled.
func (s *Searcher) Costs(from, target grid.Point) [5]int {
	g := s.g
	s.next()
	from, target = g.Normalize(from), g.Normalize(target)

	nb := g.Neighborhood(from)
	var want [5]int
	pending := 0
	for i, p := range nb {
		want[i] = g.Index(p)
	}
	for i := range want {
		dup := false
		for j := 0; j < i; j++ {
			if want[j] == want[i] {
				dup = true
			}
		}
		if !dup {
			pending++
		}
	}

	ti := g.Index(target)
	s.cost[ti] = 0
	s.seen[ti] = s.gen
	s.q.Push(searchNode{idx: ti, prio: grid.StepCost * g.Dist(from, target)})
	for pending > 0 {
		cur, ok := s.q.Pop()
		if !ok {
			break
		}
		if s.done[cur.idx] == s.gen {
			continue
		}
		s.done[cur.idx] = s.gen
		for _, w := range want {
			if w == cur.idx {
				pending--
				break
			}
		}
		p := g.PointAt(cur.idx)
		for _, d := range grid.Directions[:4] {
			np := g.Step(p, d)
			ni := g.Index(np)
			if s.done[ni] == s.gen {
				continue
			}
			c := s.cost[cur.idx] + grid.StepCost + g.Cells[ni]
			if s.seen[ni] != s.gen || c < s.cost[ni] {
				s.seen[ni] = s.gen
				s.cost[ni] = c
				s.q.Push(searchNode{idx: ni, prio: c + grid.StepCost*g.Dist(from, np)})
			}
		}
	}

	var out [5]int
	for i, w := range want {
		out[i] = s.cost[w]
	}
	return out
}
