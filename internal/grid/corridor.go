package grid

import "prospector.ai/internal/pqueue"

// Transform maps a raw cell value before it is summed.
type Transform func(v int) int

func Identity(v int) int { return v }

// Tenth discounts a value to the share lost when moving off the cell.
func Tenth(v int) int { return v / 10 }

// StepCost dominates any resource total along a shortest path, so searches
// that add it per step only compare paths of minimal length.
const StepCost = 100000

// CorridorSum returns the cheapest total of f(value) over the cells strictly
// between a and b along a shortest wrapped path. Paths that span exactly half
// the torus on an axis walk in the positive direction.
func CorridorSum(g *Grid, a, b Point, f Transform) int {
	a, b = g.Normalize(a), g.Normalize(b)
	dx := signedDelta(a.X, b.X, g.W)
	dy := signedDelta(a.Y, b.Y, g.H)
	sx, nx := sign(dx), abs(dx)
	sy, ny := sign(dy), abs(dy)

	val := func(j, i int) int { return f(g.Cells[g.Index(g.Offset(a, sx*j, sy*i))]) }

	switch {
	case nx == 0 && ny == 0:
		return 0
	case ny == 0:
		sum := 0
		for j := 1; j < nx; j++ {
			sum += val(j, 0)
		}
		return sum
	case nx == 0:
		sum := 0
		for i := 1; i < ny; i++ {
			sum += val(0, i)
		}
		return sum
	}

	// table[i][j] is the cheapest monotone staircase from a to the cell i rows
	// and j columns along the chosen wrap direction, endpoints included.
	cols := nx + 1
	table := make([]int, (ny+1)*cols)
	for i := 0; i <= ny; i++ {
		for j := 0; j <= nx; j++ {
			v := val(j, i)
			switch {
			case i == 0 && j == 0:
				table[0] = v
			case i == 0:
				table[j] = v + table[j-1]
			case j == 0:
				table[i*cols] = v + table[(i-1)*cols]
			default:
				table[i*cols+j] = v + min(table[(i-1)*cols+j], table[i*cols+j-1])
			}
		}
	}
	return table[ny*cols+nx] - val(0, 0) - val(nx, ny)
}

type pathNode struct {
	idx  int
	cost int
	prio int
}

// PathSum finds the same quantity as CorridorSum by running A* from a to b
// and summing the cells on the reconstructed path.
func PathSum(g *Grid, a, b Point, f Transform) int {
	a, b = g.Normalize(a), g.Normalize(b)
	if a == b {
		return 0
	}
	n := g.Size()
	cost := make([]int, n)
	prev := make([]int, n)
	done := make([]bool, n)
	for i := range cost {
		cost[i] = -1
		prev[i] = -1
	}
	q := pqueue.New(func(x, y pathNode) bool {
		if x.prio != y.prio {
			return x.prio < y.prio
		}
		return x.idx < y.idx
	})
	start, goal := g.Index(a), g.Index(b)
	cost[start] = 0
	q.Push(pathNode{idx: start, prio: StepCost * g.Dist(a, b)})
	for q.Len() > 0 {
		cur, _ := q.Pop()
		if done[cur.idx] {
			continue
		}
		done[cur.idx] = true
		if cur.idx == goal {
			break
		}
		p := g.PointAt(cur.idx)
		for _, d := range Directions[:4] {
			np := g.Step(p, d)
			ni := g.Index(np)
			if done[ni] {
				continue
			}
			c := cost[cur.idx] + StepCost + f(g.Cells[ni])
			if cost[ni] == -1 || c < cost[ni] {
				cost[ni] = c
				prev[ni] = cur.idx
				q.Push(pathNode{idx: ni, cost: c, prio: c + StepCost*g.Dist(np, b)})
			}
		}
	}
	sum := 0
	for i := prev[goal]; i != start && i != -1; i = prev[i] {
		sum += f(g.Cells[i])
	}
	return sum
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
