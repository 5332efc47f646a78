// Package cluster groups items with a disjoint-set forest.
package cluster

type DisjointSet struct {
	parent []int
	rank   []uint8
}

func NewDisjointSet(n int) *DisjointSet {
	s := &DisjointSet{parent: make([]int, n), rank: make([]uint8, n)}
	for i := range s.parent {
		s.parent[i] = i
	}
	return s
}

func (s *DisjointSet) Len() int { return len(s.parent) }

func (s *DisjointSet) Find(x int) int {
	root := x
	for s.parent[root] != root {
		root = s.parent[root]
	}
	for s.parent[x] != root {
		next := s.parent[x]
		s.parent[x] = root
		x = next
	}
	return root
}

// Union merges the sets of a and b and reports whether they were distinct.
func (s *DisjointSet) Union(a, b int) bool {
	ra, rb := s.Find(a), s.Find(b)
	if ra == rb {
		return false
	}
	switch {
	case s.rank[ra] < s.rank[rb]:
		s.parent[ra] = rb
	case s.rank[ra] > s.rank[rb]:
		s.parent[rb] = ra
	default:
		s.parent[rb] = ra
		s.rank[ra]++
	}
	return true
}

// Groups returns the members of every set, each group in ascending order and
// groups ordered by their smallest member.
func (s *DisjointSet) Groups() [][]int {
	byRoot := make(map[int]int)
	var out [][]int
	for i := range s.parent {
		r := s.Find(i)
		gi, ok := byRoot[r]
		if !ok {
			gi = len(out)
			byRoot[r] = gi
			out = append(out, nil)
		}
		out[gi] = append(out[gi], i)
	}
	return out
}
