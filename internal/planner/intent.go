package planner

import (
	"fmt"

	"prospector.ai/internal/game"
	"prospector.ai/internal/grid"
)

type Intent uint8

const (
	Mining Intent = iota
	Approaching
	Depositing
)

func (i Intent) String() string {
	switch i {
	case Mining:
		return "mining"
	case Approaching:
		return "approaching"
	case Depositing:
		return "depositing"
	}
	return fmt.Sprintf("intent(%d)", uint8(i))
}

func (i Intent) MarshalText() ([]byte, error) { return []byte(i.String()), nil }

func (i *Intent) UnmarshalText(b []byte) error {
	switch string(b) {
	case "mining":
		*i = Mining
	case "approaching":
		*i = Approaching
	case "depositing":
		*i = Depositing
	default:
		return fmt.Errorf("unknown intent %q", b)
	}
	return nil
}

// UnitMemory is what the planner remembers about one of its units between
// turns.
type UnitMemory struct {
	Intent Intent     `json:"intent"`
	Stuck  int        `json:"stuck"`
	Prev   grid.Point `json:"prev"`
}

// Memory is the planner state carried across turns.
type Memory struct {
	Units      map[int]UnitMemory `json:"units"`
	Endgame    bool               `json:"endgame"`
	Candidates []Candidate        `json:"candidates,omitempty"`
}

func NewMemory() Memory {
	return Memory{Units: make(map[int]UnitMemory)}
}

func (m Memory) Clone() Memory {
	c := Memory{
		Units:      make(map[int]UnitMemory, len(m.Units)),
		Endgame:    m.Endgame,
		Candidates: append([]Candidate(nil), m.Candidates...),
	}
	for id, u := range m.Units {
		c.Units[id] = u
	}
	return c
}

// reconcile drops units that left the snapshot and refreshes stuck
// counters. A unit is stuck when it has not moved and a hostile unit sits
// within distance 2. New units start mining.
func (m *Memory) reconcile(s *game.State) error {
	ids := s.MyUnitIDs()
	live := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		live[id] = struct{}{}
	}
	for id := range m.Units {
		if _, ok := live[id]; !ok {
			delete(m.Units, id)
		}
	}
	for _, id := range ids {
		u, err := s.Unit(id)
		if err != nil {
			return err
		}
		um, seen := m.Units[id]
		if !seen {
			m.Units[id] = UnitMemory{Intent: Mining, Prev: u.Pos}
			continue
		}
		if u.Pos == um.Prev && hostileNear(s, u) {
			um.Stuck++
		} else {
			um.Stuck = 0
		}
		m.Units[id] = um
	}
	return nil
}

func hostileNear(s *game.State, u game.Unit) bool {
	found := false
	for d := 1; d <= 2 && !found; d++ {
		s.Grid.EachInRing(u.Pos, d, func(p grid.Point) {
			if o, ok := s.UnitAt(p); ok && o.Owner != s.Me {
				found = true
			}
		})
	}
	return found
}

// advance applies the per-turn intent transitions for a movable unit.
// collect reports that the unit must head home to beat the end of the game.
func advance(cur Intent, s *game.State, u game.Unit, collect, endgame bool, depositCargo int) Intent {
	rich := s.Halite(u.Pos) > s.Const.Capacity/10
	switch cur {
	case Depositing:
		if s.IsMyBase(u.Pos) && !endgame {
			return Approaching
		}
	case Approaching:
		if u.Cargo >= depositCargo || collect {
			return Depositing
		}
		if rich {
			return Mining
		}
	case Mining:
		if u.Cargo >= depositCargo || collect {
			return Depositing
		}
		if !rich {
			return Approaching
		}
	}
	return cur
}
