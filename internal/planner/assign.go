package planner

import "math"

// Pair is one unit-to-goal decision.
type Pair struct {
	Unit  int
	Goal  int
	Value float64
}

// Assigner matches units to goals. values is indexed [goal][unit]. The
// result gives every unit at most one goal and every goal at most one
// unit, in the order the decisions were made.
type Assigner interface {
	Assign(values [][]float64, units int) []Pair
}

// GreedyAssigner repeatedly takes the highest valued pair among unassigned
// units and unclaimed goals. It is not an optimal matching. Ties go to the
// lowest goal index, then the lowest unit index.
type GreedyAssigner struct{}

func (GreedyAssigner) Assign(values [][]float64, units int) []Pair {
	goals := len(values)
	unitDone := make([]bool, units)
	goalDone := make([]bool, goals)
	out := make([]Pair, 0, min(units, goals))
	for len(out) < units && len(out) < goals {
		best := Pair{Unit: -1, Goal: -1, Value: math.Inf(-1)}
		for gi := 0; gi < goals; gi++ {
			if goalDone[gi] {
				continue
			}
			for ui := 0; ui < units; ui++ {
				if unitDone[ui] {
					continue
				}
				if v := values[gi][ui]; best.Unit < 0 || v > best.Value {
					best = Pair{Unit: ui, Goal: gi, Value: v}
				}
			}
		}
		unitDone[best.Unit] = true
		goalDone[best.Goal] = true
		out = append(out, best)
	}
	return out
}
