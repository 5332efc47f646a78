package game

import (
	"errors"
	"testing"

	"prospector.ai/internal/grid"
)

func testInit() Init {
	cells := make([]int, 16*16)
	for i := range cells {
		cells[i] = 10
	}
	return Init{
		Const:   Constants{MaxTurns: 400, UnitCost: 1000, BaseCost: 4000, Capacity: 1000},
		Players: 2,
		Me:      0,
		Shipyards: []Base{
			{Owner: 0, Pos: grid.Point{X: 4, Y: 4}},
			{Owner: 1, Pos: grid.Point{X: 12, Y: 12}},
		},
		Width:  16,
		Height: 16,
		Cells:  cells,
	}
}

func TestNewStateDefaults(t *testing.T) {
	s, err := NewState(testInit())
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	if s.Const.MoveCostRatio != 10 || s.Const.ExtractRatio != 4 {
		t.Fatalf("defaults not applied: %+v", s.Const)
	}
	if len(s.MyBases) != 1 || s.MyBases[0] != (grid.Point{X: 4, Y: 4}) {
		t.Fatalf("bases: %v", s.MyBases)
	}
	if !s.IsEnemyBase(grid.Point{X: 12, Y: 12}) {
		t.Fatalf("enemy shipyard not recorded")
	}
	if d := s.BaseDist(grid.Point{X: 6, Y: 5}); d != 3 {
		t.Fatalf("base dist: %d", d)
	}
}

func TestApplyFrameGrowsBasesAndReplacesUnits(t *testing.T) {
	s, err := NewState(testInit())
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	f := Frame{
		Turn: 3,
		Players: []PlayerFrame{
			{ID: 0, Reserve: 5000, Units: []Unit{{ID: 7, Pos: grid.Point{X: 1, Y: 1}, Cargo: 50}, {ID: 2, Pos: grid.Point{X: 5, Y: 4}}}},
			{ID: 1, Reserve: 100, Units: []Unit{{ID: 9, Pos: grid.Point{X: 11, Y: 12}}}},
		},
		Updates: []CellUpdate{{Pos: grid.Point{X: 1, Y: 1}, Value: 900}},
	}
	if err := s.ApplyFrame(f); err != nil {
		t.Fatalf("ApplyFrame: %v", err)
	}
	if ids := s.MyUnitIDs(); len(ids) != 2 || ids[0] != 2 || ids[1] != 7 {
		t.Fatalf("ids: %v", ids)
	}
	if u, ok := s.UnitAt(grid.Point{X: 11, Y: 12}); !ok || u.ID != 9 || u.Owner != 1 {
		t.Fatalf("UnitAt: %+v %v", u, ok)
	}
	if s.Halite(grid.Point{X: 1, Y: 1}) != 900 {
		t.Fatalf("update not applied")
	}
	u, _ := s.Unit(7)
	if s.CanMove(u) {
		t.Fatalf("unit with 50 cargo on 900 cell should not move")
	}

	f2 := Frame{
		Turn: 4,
		Players: []PlayerFrame{
			{ID: 0, Reserve: 1000, Bases: []Base{{ID: 1, Pos: grid.Point{X: 12, Y: 4}}}},
			{ID: 1},
		},
	}
	if err := s.ApplyFrame(f2); err != nil {
		t.Fatalf("ApplyFrame: %v", err)
	}
	if len(s.MyBases) != 2 {
		t.Fatalf("bases: %v", s.MyBases)
	}
	if p, d := s.NearestBase(grid.Point{X: 12, Y: 6}); p != (grid.Point{X: 12, Y: 4}) || d != 2 {
		t.Fatalf("nearest: %v %d", p, d)
	}
	if _, err := s.Unit(7); !errors.Is(err, ErrUnknownUnit) {
		t.Fatalf("expected unknown unit, got %v", err)
	}
	// repeated base announcements do not duplicate
	if err := s.ApplyFrame(f2); err != nil || len(s.MyBases) != 2 {
		t.Fatalf("bases after repeat: %v %v", s.MyBases, err)
	}
}

func TestNewStateRejectsBadMap(t *testing.T) {
	in := testInit()
	in.Cells = in.Cells[:10]
	if _, err := NewState(in); err == nil {
		t.Fatalf("expected error")
	}
	in = testInit()
	in.Me = 5
	if _, err := NewState(in); !errors.Is(err, grid.ErrNoBases) {
		t.Fatalf("expected ErrNoBases, got %v", err)
	}
}
