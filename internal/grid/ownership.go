package grid

import "errors"

var ErrNoBases = errors.New("grid: no bases")

// Ownership maps each cell to its nearest base and the distance to it.
type Ownership struct {
	Bases []Point `json:"bases"`
	Index []int   `json:"index"`
	Dist  []int   `json:"dist"`
}

// BuildOwnership floods rings outward from every base in lock step. At each
// distance the bases are visited in list order and a cell goes to the first
// base that reaches it, so an equidistant cell belongs to the earlier base.
// A base stops expanding once one of its rings claims nothing.
func BuildOwnership(g *Grid, bases []Point) (*Ownership, error) {
	if len(bases) == 0 {
		return nil, ErrNoBases
	}
	n := g.Size()
	o := &Ownership{
		Bases: make([]Point, len(bases)),
		Index: make([]int, n),
		Dist:  make([]int, n),
	}
	for i, b := range bases {
		o.Bases[i] = g.Normalize(b)
	}

	if len(bases) == 1 {
		b := o.Bases[0]
		for d := 0; d <= g.Radius(); d++ {
			g.EachInRing(b, d, func(p Point) {
				i := g.Index(p)
				o.Dist[i] = d
			})
		}
		return o, nil
	}

	for i := range o.Index {
		o.Index[i] = -1
	}
	open := make([]bool, len(bases))
	for i := range open {
		open[i] = true
	}
	for d, anyOpen := 0, true; anyOpen; d++ {
		anyOpen = false
		for bi, b := range o.Bases {
			if !open[bi] {
				continue
			}
			claimed := false
			g.EachInRing(b, d, func(p Point) {
				i := g.Index(p)
				if o.Index[i] == -1 {
					o.Index[i] = bi
					o.Dist[i] = d
					claimed = true
				}
			})
			if claimed {
				anyOpen = true
			} else {
				open[bi] = false
			}
		}
	}
	return o, nil
}

// Nearest returns the owning base position and its distance from p.
func (o *Ownership) Nearest(g *Grid, p Point) (Point, int) {
	i := g.Index(g.Normalize(p))
	return o.Bases[o.Index[i]], o.Dist[i]
}

func (o *Ownership) DistAt(g *Grid, p Point) int {
	return o.Dist[g.Index(g.Normalize(p))]
}
