package grid

import "fmt"

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Direction is a unit move. North decreases Y.
type Direction uint8

const (
	North Direction = iota
	East
	South
	West
	Still
)

// Directions lists the five move options in canonical order.
var Directions = [5]Direction{North, East, South, West, Still}

func (d Direction) Delta() (dx, dy int) {
	switch d {
	case North:
		return 0, -1
	case East:
		return 1, 0
	case South:
		return 0, 1
	case West:
		return -1, 0
	}
	return 0, 0
}

// Char is the wire letter of the direction.
func (d Direction) Char() byte {
	switch d {
	case North:
		return 'n'
	case East:
		return 'e'
	case South:
		return 's'
	case West:
		return 'w'
	}
	return 'o'
}

func (d Direction) String() string { return string(d.Char()) }

func ParseDirection(c byte) (Direction, bool) {
	for _, d := range Directions {
		if d.Char() == c {
			return d, true
		}
	}
	return Still, false
}

// Grid is a W x H torus of non-negative resource values stored row-major.
type Grid struct {
	W     int   `json:"w"`
	H     int   `json:"h"`
	Cells []int `json:"cells"`
}

func New(w, h int) *Grid {
	if w <= 0 || h <= 0 {
		panic(fmt.Sprintf("grid: bad size %dx%d", w, h))
	}
	return &Grid{W: w, H: h, Cells: make([]int, w*h)}
}

func (g *Grid) Size() int { return g.W * g.H }

// Index expects a normalized point.
func (g *Grid) Index(p Point) int { return p.Y*g.W + p.X }

func (g *Grid) PointAt(i int) Point { return Point{X: i % g.W, Y: i / g.W} }

func (g *Grid) At(p Point) int { return g.Cells[g.Index(g.Normalize(p))] }

func (g *Grid) Set(p Point, v int) { g.Cells[g.Index(g.Normalize(p))] = v }

func (g *Grid) Total() int {
	n := 0
	for _, v := range g.Cells {
		n += v
	}
	return n
}

func (g *Grid) Clone() *Grid {
	c := &Grid{W: g.W, H: g.H, Cells: make([]int, len(g.Cells))}
	copy(c.Cells, g.Cells)
	return c
}

func mod(a, m int) int {
	a %= m
	if a < 0 {
		a += m
	}
	return a
}

func (g *Grid) Normalize(p Point) Point {
	return Point{X: mod(p.X, g.W), Y: mod(p.Y, g.H)}
}

func (g *Grid) Offset(p Point, dx, dy int) Point {
	return g.Normalize(Point{X: p.X + dx, Y: p.Y + dy})
}

func (g *Grid) Step(p Point, d Direction) Point {
	dx, dy := d.Delta()
	return g.Offset(p, dx, dy)
}

func wrapDist(a, b, m int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	d %= m
	if m-d < d {
		return m - d
	}
	return d
}

// Dist is the wrapped Manhattan distance.
func (g *Grid) Dist(a, b Point) int {
	return wrapDist(a.X, b.X, g.W) + wrapDist(a.Y, b.Y, g.H)
}

// Neighborhood returns the destinations of the five moves from p in
// Directions order.
func (g *Grid) Neighborhood(p Point) [5]Point {
	var out [5]Point
	for i, d := range Directions {
		out[i] = g.Step(p, d)
	}
	return out
}

// DirectionTo returns the move from a to an adjacent (or equal) cell b.
func (g *Grid) DirectionTo(a, b Point) (Direction, bool) {
	for _, d := range Directions {
		if g.Step(a, d) == g.Normalize(b) {
			return d, true
		}
	}
	return Still, false
}

// NaiveStep returns the first move in Directions order that brings a
// closest to b.
func (g *Grid) NaiveStep(a, b Point) Direction {
	best, bestDist := Still, -1
	for _, d := range Directions {
		if dist := g.Dist(g.Step(a, d), b); bestDist < 0 || dist < bestDist {
			best, bestDist = d, dist
		}
	}
	return best
}

// signedDelta is the shortest signed step count from a to b modulo m. An
// exact half wrap resolves to the positive direction.
func signedDelta(a, b, m int) int {
	d := mod(b-a, m)
	if d > m/2 {
		d -= m
	}
	return d
}
