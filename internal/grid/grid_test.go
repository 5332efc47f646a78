package grid

import (
	"math/rand"
	"testing"
)

func randomGrid(r *rand.Rand, w, h int) *Grid {
	g := New(w, h)
	for i := range g.Cells {
		g.Cells[i] = r.Intn(1000)
	}
	return g
}

func TestDistSymmetry(t *testing.T) {
	for _, sz := range [][2]int{{8, 8}, {7, 5}, {1, 4}, {32, 32}} {
		g := New(sz[0], sz[1])
		for i := 0; i < g.Size(); i++ {
			a := g.PointAt(i)
			if d := g.Dist(a, a); d != 0 {
				t.Fatalf("dist(a,a)=%d for %v on %v", d, a, sz)
			}
			for j := 0; j < g.Size(); j++ {
				b := g.PointAt(j)
				if g.Dist(a, b) != g.Dist(b, a) {
					t.Fatalf("asymmetric dist %v %v on %v", a, b, sz)
				}
				if g.Dist(a, b) > g.Radius() {
					t.Fatalf("dist %v %v exceeds radius", a, b)
				}
			}
		}
	}
}

func TestNormalizeAndStep(t *testing.T) {
	g := New(5, 4)
	if p := g.Normalize(Point{X: -1, Y: 9}); p != (Point{X: 4, Y: 1}) {
		t.Fatalf("normalize: %v", p)
	}
	if p := g.Step(Point{0, 0}, North); p != (Point{X: 0, Y: 3}) {
		t.Fatalf("north wrap: %v", p)
	}
	if p := g.Step(Point{4, 0}, East); p != (Point{X: 0, Y: 0}) {
		t.Fatalf("east wrap: %v", p)
	}
	nb := g.Neighborhood(Point{2, 2})
	want := [5]Point{{2, 1}, {3, 2}, {2, 3}, {1, 2}, {2, 2}}
	if nb != want {
		t.Fatalf("neighborhood mismatch: %v", nb)
	}
	for i, d := range Directions {
		got, ok := g.DirectionTo(Point{2, 2}, nb[i])
		if !ok || got != d {
			t.Fatalf("DirectionTo %v: %v %v", nb[i], got, ok)
		}
	}
}

func TestRingOrderStartsNorthClockwise(t *testing.T) {
	g := New(16, 16)
	c := Point{5, 5}
	ring := g.Ring(c, 1)
	nb := g.Neighborhood(c)
	if len(ring) != 4 {
		t.Fatalf("ring 1 size %d", len(ring))
	}
	for i := 0; i < 4; i++ {
		if ring[i] != nb[i] {
			t.Fatalf("ring[%d]=%v want %v", i, ring[i], nb[i])
		}
	}
	if r0 := g.Ring(Point{-3, 20}, 0); len(r0) != 1 || r0[0] != (Point{13, 4}) {
		t.Fatalf("ring 0: %v", r0)
	}
}

func TestRingsPartitionTorus(t *testing.T) {
	for _, sz := range [][2]int{{8, 8}, {7, 5}, {6, 9}, {2, 2}, {1, 3}} {
		g := New(sz[0], sz[1])
		c := Point{1, 2}
		seen := make([]int, g.Size())
		total := 0
		for d := 0; d <= g.Radius()+2; d++ {
			ring := g.Ring(c, d)
			if d > g.Radius() && len(ring) != 0 {
				t.Fatalf("ring %d beyond radius not empty on %v", d, sz)
			}
			if d > 0 && 2*d < sz[0] && 2*d < sz[1] && len(ring) != 4*d {
				t.Fatalf("ring %d size %d on %v", d, len(ring), sz)
			}
			for _, p := range ring {
				if g.Dist(c, p) != d {
					t.Fatalf("ring %d contains %v at dist %d", d, p, g.Dist(c, p))
				}
				seen[g.Index(p)]++
				total++
			}
		}
		if total != g.Size() {
			t.Fatalf("rings visited %d cells, want %d on %v", total, g.Size(), sz)
		}
		for i, n := range seen {
			if n != 1 {
				t.Fatalf("cell %v visited %d times on %v", g.PointAt(i), n, sz)
			}
		}
	}
}

func TestDiskSize(t *testing.T) {
	g := New(32, 32)
	for d := 0; d < 8; d++ {
		if n := len(g.Disk(Point{3, 30}, d)); n != 2*d*(d+1)+1 {
			t.Fatalf("disk %d size %d", d, n)
		}
	}
	if n := len(g.Disk(Point{}, 100)); n != g.Size() {
		t.Fatalf("oversized disk: %d", n)
	}
}

func TestOwnershipMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for trial := 0; trial < 40; trial++ {
		w, h := 4+r.Intn(20), 4+r.Intn(20)
		g := New(w, h)
		nb := 1 + r.Intn(5)
		bases := make([]Point, nb)
		for i := range bases {
			bases[i] = Point{r.Intn(w), r.Intn(h)}
		}
		o, err := BuildOwnership(g, bases)
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		for i := 0; i < g.Size(); i++ {
			p := g.PointAt(i)
			best := -1
			for _, b := range bases {
				if d := g.Dist(p, b); best < 0 || d < best {
					best = d
				}
			}
			if o.Dist[i] != best {
				t.Fatalf("trial %d cell %v: dist %d want %d", trial, p, o.Dist[i], best)
			}
			if got := g.Dist(p, bases[o.Index[i]]); got != best {
				t.Fatalf("trial %d cell %v: owner %d at %d want %d", trial, p, o.Index[i], got, best)
			}
		}
	}
}

func TestOwnershipTiesGoToEarlierBase(t *testing.T) {
	g := New(10, 10)
	o, err := BuildOwnership(g, []Point{{2, 5}, {6, 5}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if idx := o.Index[g.Index(Point{4, 5})]; idx != 0 {
		t.Fatalf("tie owner=%d", idx)
	}
	if _, err := BuildOwnership(g, nil); err != ErrNoBases {
		t.Fatalf("empty bases: %v", err)
	}
}

func TestCorridorSumSimple(t *testing.T) {
	g := New(10, 10)
	for x := 0; x < 10; x++ {
		g.Set(Point{x, 0}, x*10)
	}
	if got := CorridorSum(g, Point{1, 0}, Point{4, 0}, Identity); got != 20+30 {
		t.Fatalf("row sum: %d", got)
	}
	// wraps through 9 and 0
	if got := CorridorSum(g, Point{8, 0}, Point{1, 0}, Identity); got != 90+0 {
		t.Fatalf("wrapped row sum: %d", got)
	}
	if got := CorridorSum(g, Point{8, 0}, Point{1, 0}, Tenth); got != 9 {
		t.Fatalf("transformed row sum: %d", got)
	}
	if got := CorridorSum(g, Point{3, 3}, Point{3, 3}, Identity); got != 0 {
		t.Fatalf("self sum: %d", got)
	}
}

func TestCorridorSumAgreesWithPathSearch(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for _, sz := range [][2]int{{9, 7}, {8, 8}, {12, 5}} {
		g := randomGrid(r, sz[0], sz[1])
		for trial := 0; trial < 300; trial++ {
			a := Point{r.Intn(g.W), r.Intn(g.H)}
			b := Point{r.Intn(g.W), r.Intn(g.H)}
			// At exactly half the torus PathSum may take the cheaper wrap
			// while CorridorSum always walks the positive direction.
			if isHalf(a.X, b.X, g.W) || isHalf(a.Y, b.Y, g.H) {
				continue
			}
			for _, f := range []Transform{Identity, Tenth} {
				dp := CorridorSum(g, a, b, f)
				ps := PathSum(g, a, b, f)
				if dp != ps {
					t.Fatalf("%v %v->%v: dp=%d path=%d", sz, a, b, dp, ps)
				}
			}
		}
	}
}

func isHalf(a, b, m int) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return m%2 == 0 && d == m/2
}

func TestNaiveStep(t *testing.T) {
	g := New(10, 10)
	if d := g.NaiveStep(Point{1, 1}, Point{1, 8}); d != North {
		t.Fatalf("wrap north: %v", d)
	}
	if d := g.NaiveStep(Point{1, 1}, Point{4, 1}); d != East {
		t.Fatalf("east: %v", d)
	}
	if d := g.NaiveStep(Point{1, 1}, Point{1, 1}); d != Still {
		t.Fatalf("same cell: %v", d)
	}
}
