package grid

// Radius is the largest wrapped distance between two cells.
func (g *Grid) Radius() int { return g.W/2 + g.H/2 }

func inSpan(v, m int) bool { return v >= -(m-1)/2 && v <= m/2 }

// EachInRing calls fn for every cell at exactly distance d from c. The walk
// starts due north and proceeds clockwise, so ring 1 yields North, East,
// South, West. Offsets outside the canonical span of the torus are skipped,
// which keeps antipodal cells from being visited twice.
func (g *Grid) EachInRing(c Point, d int, fn func(Point)) {
	if d < 0 || d > g.Radius() {
		return
	}
	if d == 0 {
		fn(g.Normalize(c))
		return
	}
	visit := func(dx, dy int) {
		if inSpan(dx, g.W) && inSpan(dy, g.H) {
			fn(g.Offset(c, dx, dy))
		}
	}
	for i := 0; i < d; i++ {
		visit(i, -d+i)
	}
	for i := 0; i < d; i++ {
		visit(d-i, i)
	}
	for i := 0; i < d; i++ {
		visit(-i, d-i)
	}
	for i := 0; i < d; i++ {
		visit(-d+i, -i)
	}
}

func (g *Grid) Ring(c Point, d int) []Point {
	var out []Point
	g.EachInRing(c, d, func(p Point) { out = append(out, p) })
	return out
}

// EachInDisk visits rings 0..d in order.
func (g *Grid) EachInDisk(c Point, d int, fn func(Point)) {
	if d > g.Radius() {
		d = g.Radius()
	}
	for r := 0; r <= d; r++ {
		g.EachInRing(c, r, fn)
	}
}

func (g *Grid) Disk(c Point, d int) []Point {
	var out []Point
	g.EachInDisk(c, d, func(p Point) { out = append(out, p) })
	return out
}

// DiskSum totals the resource within distance d of c.
func (g *Grid) DiskSum(c Point, d int) int {
	n := 0
	g.EachInDisk(c, d, func(p Point) { n += g.Cells[g.Index(p)] })
	return n
}
