package cluster

import "testing"

func TestUnionFind(t *testing.T) {
	s := NewDisjointSet(6)
	if !s.Union(0, 1) || !s.Union(1, 2) || !s.Union(4, 5) {
		t.Fatalf("expected merges")
	}
	if s.Union(2, 0) {
		t.Fatalf("0 and 2 already joined")
	}
	if s.Find(0) != s.Find(2) || s.Find(3) == s.Find(0) || s.Find(4) != s.Find(5) {
		t.Fatalf("find mismatch")
	}
	g := s.Groups()
	if len(g) != 3 {
		t.Fatalf("groups: %v", g)
	}
	if len(g[0]) != 3 || g[0][0] != 0 || g[0][2] != 2 {
		t.Fatalf("first group: %v", g[0])
	}
	if len(g[1]) != 1 || g[1][0] != 3 {
		t.Fatalf("second group: %v", g[1])
	}
}

func TestGroupsUseRootsNotParents(t *testing.T) {
	s := NewDisjointSet(5)
	s.Union(3, 4)
	s.Union(2, 3)
	s.Union(1, 2)
	s.Union(0, 1)
	if g := s.Groups(); len(g) != 1 || len(g[0]) != 5 {
		t.Fatalf("chain should be one group: %v", g)
	}
}
