package game

import (
	"errors"
	"fmt"
	"sort"

	"prospector.ai/internal/grid"
)

var ErrUnknownUnit = errors.New("unknown unit")

// State is the world as last observed. Own bases only ever grow; the
// ownership map is rebuilt when they do.
type State struct {
	Const     Constants
	Players   int
	Me        int
	Turn      int
	Grid      *grid.Grid
	Shipyards map[int]grid.Point
	Reserve   map[int]int
	Units     map[int]Unit
	MyBases   []grid.Point
	// EnemyBases maps a cell index to the owning player.
	EnemyBases map[int]int
	Own        *grid.Ownership

	mine   []int
	byCell map[int]int
}

func NewState(in Init) (*State, error) {
	if in.Width <= 0 || in.Height <= 0 {
		return nil, fmt.Errorf("game: bad map size %dx%d", in.Width, in.Height)
	}
	if len(in.Cells) != in.Width*in.Height {
		return nil, fmt.Errorf("game: map has %d cells, want %d", len(in.Cells), in.Width*in.Height)
	}
	g := grid.New(in.Width, in.Height)
	copy(g.Cells, in.Cells)
	s := &State{
		Const:      in.Const.WithDefaults(),
		Players:    in.Players,
		Me:         in.Me,
		Grid:       g,
		Shipyards:  make(map[int]grid.Point),
		Reserve:    make(map[int]int),
		Units:      make(map[int]Unit),
		EnemyBases: make(map[int]int),
	}
	for _, sy := range in.Shipyards {
		p := g.Normalize(sy.Pos)
		s.Shipyards[sy.Owner] = p
		if sy.Owner == in.Me {
			s.MyBases = append(s.MyBases, p)
		} else {
			s.EnemyBases[g.Index(p)] = sy.Owner
		}
	}
	if len(s.MyBases) == 0 {
		return nil, fmt.Errorf("game: no shipyard for player %d: %w", in.Me, grid.ErrNoBases)
	}
	own, err := grid.BuildOwnership(g, s.MyBases)
	if err != nil {
		return nil, err
	}
	s.Own = own
	s.Reindex()
	return s, nil
}

// ApplyFrame replaces the unit registry and reserves with the frame's and
// applies its cell updates.
func (s *State) ApplyFrame(f Frame) error {
	s.Turn = f.Turn
	s.Units = make(map[int]Unit)
	basesChanged := false
	for _, pf := range f.Players {
		s.Reserve[pf.ID] = pf.Reserve
		for _, u := range pf.Units {
			u.Owner = pf.ID
			u.Pos = s.Grid.Normalize(u.Pos)
			s.Units[u.ID] = u
		}
		for _, b := range pf.Bases {
			p := s.Grid.Normalize(b.Pos)
			if pf.ID != s.Me {
				s.EnemyBases[s.Grid.Index(p)] = pf.ID
				continue
			}
			if !s.IsMyBase(p) {
				s.MyBases = append(s.MyBases, p)
				basesChanged = true
			}
		}
	}
	for _, up := range f.Updates {
		if up.Value < 0 {
			return fmt.Errorf("game: negative value %d at %v", up.Value, up.Pos)
		}
		s.Grid.Set(up.Pos, up.Value)
	}
	if basesChanged {
		own, err := grid.BuildOwnership(s.Grid, s.MyBases)
		if err != nil {
			return err
		}
		s.Own = own
	}
	s.Reindex()
	return nil
}

// Reindex rebuilds lookup tables derived from Units. Call it after
// restoring a State from a snapshot.
func (s *State) Reindex() {
	s.mine = s.mine[:0]
	s.byCell = make(map[int]int, len(s.Units))
	for id, u := range s.Units {
		s.byCell[s.Grid.Index(u.Pos)] = id
		if u.Owner == s.Me {
			s.mine = append(s.mine, id)
		}
	}
	sort.Ints(s.mine)
}

func (s *State) Unit(id int) (Unit, error) {
	u, ok := s.Units[id]
	if !ok {
		return Unit{}, fmt.Errorf("unit %d: %w", id, ErrUnknownUnit)
	}
	return u, nil
}

func (s *State) UnitAt(p grid.Point) (Unit, bool) {
	id, ok := s.byCell[s.Grid.Index(s.Grid.Normalize(p))]
	if !ok {
		return Unit{}, false
	}
	return s.Units[id], true
}

// MyUnitIDs lists own unit ids in ascending order.
func (s *State) MyUnitIDs() []int { return s.mine }

func (s *State) MyReserve() int { return s.Reserve[s.Me] }

func (s *State) IsMyBase(p grid.Point) bool {
	p = s.Grid.Normalize(p)
	for _, b := range s.MyBases {
		if b == p {
			return true
		}
	}
	return false
}

func (s *State) IsEnemyBase(p grid.Point) bool {
	_, ok := s.EnemyBases[s.Grid.Index(s.Grid.Normalize(p))]
	return ok
}

func (s *State) NearestBase(p grid.Point) (grid.Point, int) { return s.Own.Nearest(s.Grid, p) }

func (s *State) BaseDist(p grid.Point) int { return s.Own.DistAt(s.Grid, p) }

func (s *State) Halite(p grid.Point) int { return s.Grid.At(p) }

// CanMove reports whether u can pay the cost of leaving its cell.
func (s *State) CanMove(u Unit) bool {
	return s.Halite(u.Pos)/s.Const.MoveCostRatio <= u.Cargo
}

func (s *State) TurnsLeft() int { return s.Const.MaxTurns - s.Turn }

func (s *State) MyShipyard() grid.Point { return s.Shipyards[s.Me] }

// ShipyardOf returns the shipyard of the given player.
func (s *State) ShipyardOf(owner int) (grid.Point, bool) {
	p, ok := s.Shipyards[owner]
	return p, ok
}
