package main

import (
	"testing"

	"github.com/gdamore/tcell/v2"

	"prospector.ai/internal/game"
	"prospector.ai/internal/grid"
	persistlog "prospector.ai/internal/persistence/log"
	"prospector.ai/internal/persistence/session"
	"prospector.ai/internal/planner"
)

func fixture() (session.Manifest, []persistlog.TurnEntry) {
	m := session.Manifest{
		Session: "v1",
		Init: game.Init{
			Const:   game.Constants{MaxTurns: 50, UnitCost: 1000, BaseCost: 4000, Capacity: 1000},
			Players: 2,
			Me:      0,
			Shipyards: []game.Base{
				{Owner: 0, ID: -1, Pos: grid.Point{X: 1, Y: 1}},
				{Owner: 1, ID: -1, Pos: grid.Point{X: 4, Y: 4}},
			},
			Width:  6,
			Height: 6,
			Cells:  make([]int, 36),
		},
	}
	var entries []persistlog.TurnEntry
	for turn := 0; turn < 4; turn++ {
		f := game.Frame{
			Turn: turn,
			Players: []game.PlayerFrame{
				{ID: 0, Reserve: 1000 * turn, Units: []game.Unit{{ID: 0, Pos: grid.Point{X: 1 + turn, Y: 1}}}},
				{ID: 1, Units: []game.Unit{{ID: 1, Pos: grid.Point{X: 4, Y: 3}}}},
			},
			Updates: []game.CellUpdate{{Pos: grid.Point{X: 5, Y: 5}, Value: 100 * turn}},
		}
		plan := planner.Plan{
			Turn:    turn,
			Targets: map[int]grid.Point{0: {X: 2 + turn, Y: 2}},
			Intents: map[int]planner.Intent{0: planner.Approaching},
		}
		entries = append(entries, persistlog.TurnEntry{Session: "v1", Turn: turn, Frame: f, Plan: plan})
	}
	return m, entries
}

func TestSeekReplaysFrames(t *testing.T) {
	m, entries := fixture()
	v := newViewer(m, entries)
	if err := v.seek(3); err != nil {
		t.Fatalf("seek: %v", err)
	}
	if v.state.Turn != 3 || v.state.MyReserve() != 3000 || v.state.Grid.At(grid.Point{X: 5, Y: 5}) != 300 {
		t.Fatalf("state at turn 3: turn=%d reserve=%d", v.state.Turn, v.state.MyReserve())
	}
	if err := v.seek(1); err != nil {
		t.Fatalf("seek back: %v", err)
	}
	if v.state.Turn != 1 || v.state.Grid.At(grid.Point{X: 5, Y: 5}) != 100 {
		t.Fatalf("state after seeking back: turn=%d", v.state.Turn)
	}
	if err := v.seek(99); err != nil || v.idx != 3 {
		t.Fatalf("seek past end: idx=%d err=%v", v.idx, err)
	}
}

func TestLayoutMarksUnitsAndBases(t *testing.T) {
	m, entries := fixture()
	v := newViewer(m, entries)
	if err := v.seek(0); err != nil {
		t.Fatalf("seek: %v", err)
	}
	out := v.layout(6, 6)
	checks := []struct {
		x, y int
		r    rune
	}{
		{1, 1, 'a'}, // own unit on its shipyard
		{4, 4, 'b'},
		{4, 3, 'x'},
		{2, 2, '+'},
		{0, 0, ' '},
	}
	for _, c := range checks {
		if got := out[c.y][c.x].r; got != c.r {
			t.Fatalf("cell (%d,%d)=%q want %q", c.x, c.y, got, c.r)
		}
	}

	v.ox, v.oy = 1, 1
	out = v.layout(6, 6)
	if out[0][0].r != 'a' || out[5][5].r != ' ' {
		t.Fatalf("panned layout: %q %q", out[0][0].r, out[5][5].r)
	}
}

func TestHandleKey(t *testing.T) {
	m, entries := fixture()
	v := newViewer(m, entries)
	_ = v.seek(0)
	if !v.handleKey(tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone)) || v.idx != 1 {
		t.Fatalf("right arrow: idx=%d", v.idx)
	}
	v.handleKey(tcell.NewEventKey(tcell.KeyEnd, 0, tcell.ModNone))
	if v.idx != 3 {
		t.Fatalf("end: idx=%d", v.idx)
	}
	v.handleKey(tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone))
	if !v.playing {
		t.Fatalf("space should start playback")
	}
	if v.handleKey(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)) {
		t.Fatalf("q should quit")
	}
}

func TestDrawOnSimulationScreen(t *testing.T) {
	m, entries := fixture()
	v := newViewer(m, entries)
	_ = v.seek(2)
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer screen.Fini()
	screen.SetSize(40, 12)
	v.draw(screen)
	if lines := v.status(); len(lines) < 4 {
		t.Fatalf("status lines: %v", lines)
	}
}
