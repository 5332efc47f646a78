package planner

import (
	"prospector.ai/internal/cluster"
	"prospector.ai/internal/game"
	"prospector.ai/internal/grid"
	"prospector.ai/internal/tuning"
)

// Candidate is a proposed site for a new base. Units within Radius of
// Center may convert.
type Candidate struct {
	Center grid.Point `json:"center"`
	Radius int        `json:"radius"`
}

func density(s *game.State, c grid.Point, r int) float64 {
	return float64(s.Grid.DiskSum(c, r)) / float64(2*r*(r+1)+1)
}

// retainCandidates drops sites that have been mined out or now sit too
// close to a base, and returns the density of the survivors.
func retainCandidates(s *game.State, cfg tuning.Dropoff, cands []Candidate, spacing int) ([]Candidate, map[grid.Point]float64) {
	dens := make(map[grid.Point]float64, len(cands))
	kept := cands[:0]
	for _, c := range cands {
		d := density(s, c.Center, cfg.DensityRadius)
		if d > cfg.RetainDensity && s.BaseDist(c.Center) >= spacing {
			dens[c.Center] = d
			kept = append(kept, c)
		}
	}
	return kept, dens
}

// clusterCandidates groups goal cells lying within LinkDist of each other
// and proposes the center of every large enough group that is rich and far
// from existing bases.
func clusterCandidates(s *game.State, cfg tuning.Dropoff, goals []grid.Point, cands []Candidate, spacing int) []Candidate {
	g := s.Grid
	var uniq []grid.Point
	seen := make(map[grid.Point]struct{}, len(goals))
	for _, p := range goals {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		uniq = append(uniq, p)
	}
	if len(uniq) < cfg.MinGroup {
		return cands
	}

	ds := cluster.NewDisjointSet(len(uniq))
	for i := 0; i < len(uniq)-1; i++ {
		for j := i + 1; j < len(uniq); j++ {
			if g.Dist(uniq[i], uniq[j]) <= cfg.LinkDist {
				ds.Union(i, j)
			}
		}
	}

	for _, members := range ds.Groups() {
		if len(members) < cfg.MinGroup {
			continue
		}
		center, total := uniq[members[0]], -1
		for _, a := range members {
			sum := 0
			for _, b := range members {
				sum += g.Dist(uniq[a], uniq[b])
			}
			if total < 0 || sum < total {
				center, total = uniq[a], sum
			}
		}
		if hasCandidate(cands, center) {
			continue
		}
		radius := min(total/len(members)+2, cfg.MaxRadius)
		dd := s.BaseDist(center)
		if density(s, center, cfg.DensityRadius)+cfg.DistWeight*float64(dd) > cfg.AcceptScore && dd >= spacing {
			cands = append(cands, Candidate{Center: center, Radius: radius})
		}
	}
	return cands
}

func hasCandidate(cands []Candidate, p grid.Point) bool {
	for _, c := range cands {
		if c.Center == p {
			return true
		}
	}
	return false
}

// pickConverter chooses the unit to turn into a base: far enough from home,
// not on a hostile base, inside a candidate's radius, and scoring highest on
// site density plus weighted distance home.
func pickConverter(s *game.State, cfg tuning.Dropoff, units []game.Unit, cands []Candidate, dens map[grid.Point]float64, spacing int) (int, bool) {
	g := s.Grid
	bestID, best, found := 0, 0.0, false
	for _, u := range units {
		dd := s.BaseDist(u.Pos)
		if dd < spacing || s.IsEnemyBase(u.Pos) {
			continue
		}
		for _, c := range cands {
			if g.Dist(u.Pos, c.Center) > c.Radius {
				continue
			}
			score := dens[c.Center] + cfg.DistWeight*float64(dd)
			if !found || score > best {
				bestID, best, found = u.ID, score, true
			}
		}
	}
	return bestID, found
}
