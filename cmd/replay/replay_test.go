package main

import (
	"errors"
	"io"
	"log"
	"testing"

	"prospector.ai/internal/game"
	"prospector.ai/internal/grid"
	persistlog "prospector.ai/internal/persistence/log"
	"prospector.ai/internal/persistence/session"
	"prospector.ai/internal/persistence/snapshot"
	"prospector.ai/internal/planner"
	"prospector.ai/internal/protocol"
	"prospector.ai/internal/tuning"
)

func testInit() game.Init {
	cells := make([]int, 10*10)
	for i := range cells {
		cells[i] = (i*53 + 17) % 350
	}
	return game.Init{
		Const:   game.Constants{MaxTurns: 400, UnitCost: 1000, BaseCost: 4000, Capacity: 1000, MoveCostRatio: 10, ExtractRatio: 4},
		Players: 2,
		Me:      0,
		Shipyards: []game.Base{
			{Owner: 0, ID: -1, Pos: grid.Point{X: 2, Y: 2}},
			{Owner: 1, ID: -1, Pos: grid.Point{X: 7, Y: 7}},
		},
		Width:  10,
		Height: 10,
		Cells:  cells,
	}
}

func testFrame(turn int) game.Frame {
	units := []game.Unit{{ID: 0, Pos: grid.Point{X: 2 + turn%3, Y: 2}, Cargo: 40 * turn}}
	if turn > 2 {
		units = append(units, game.Unit{ID: 2, Pos: grid.Point{X: 2, Y: 3}, Cargo: 0})
	}
	return game.Frame{
		Turn: turn,
		Players: []game.PlayerFrame{
			{ID: 0, Reserve: 5000 - 100*turn, Units: units},
			{ID: 1, Reserve: 3000, Units: []game.Unit{{ID: 1, Pos: grid.Point{X: 7, Y: 6}}}},
		},
		Updates: []game.CellUpdate{{Pos: grid.Point{X: 3, Y: 2}, Value: 10 * turn}},
	}
}

// recordSession writes a session the way the bot does; corrupt names a turn
// whose recorded digest is deliberately wrong (-1 for none).
func recordSession(t *testing.T, turns, corrupt int) string {
	t.Helper()
	dir := session.Dir(t.TempDir(), "rec")
	tune := tuning.Defaults()
	tune.SnapshotEveryTurns = 2
	in := testInit()
	if err := session.WriteManifest(dir, session.Manifest{Session: "rec", Bot: tune.BotName, Init: in}, tune); err != nil {
		t.Fatalf("manifest: %v", err)
	}
	state, err := game.NewState(in)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	pl := planner.New(tune, nil)
	tl := persistlog.NewTurnLogger(dir, 4)
	defer tl.Close()
	for turn := 0; turn < turns; turn++ {
		f := testFrame(turn)
		plan, err := pl.Step(state, f)
		if err != nil {
			t.Fatalf("turn %d: %v", turn, err)
		}
		line := protocol.FormatCommands(plan.Spawn, plan.Commands)
		digest := protocol.Digest(line)
		if turn == corrupt {
			digest = protocol.Digest(line + " x")
		}
		if err := tl.WriteTurn(persistlog.TurnEntry{Session: "rec", Turn: turn, Frame: f, Plan: plan, Line: line, Digest: digest}); err != nil {
			t.Fatalf("write: %v", err)
		}
		if turn%tune.SnapshotEveryTurns == 0 {
			if err := snapshot.WriteSnapshot(snapshot.Path(dir, turn), snapshot.Capture("rec", state, pl.Memory())); err != nil {
				t.Fatalf("snapshot: %v", err)
			}
		}
	}
	return dir
}

func TestReplayFromStart(t *testing.T) {
	dir := recordSession(t, 6, -1)
	res, err := replay(dir, 0, -1, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if res.Checked != 6 || res.LastTurn != 5 || res.Snapshot != "" || res.Session != "rec" {
		t.Fatalf("result: %+v", res)
	}
}

func TestReplayResumesFromSnapshot(t *testing.T) {
	dir := recordSession(t, 6, -1)
	res, err := replay(dir, 3, 4, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if res.Snapshot != snapshot.Path(dir, 2) {
		t.Fatalf("snapshot=%q want turn 2", res.Snapshot)
	}
	if res.Checked != 2 || res.LastTurn != 4 {
		t.Fatalf("result: %+v", res)
	}
}

func TestReplayReportsMismatch(t *testing.T) {
	dir := recordSession(t, 6, 4)
	_, err := replay(dir, 0, -1, log.New(io.Discard, "", 0))
	var mm *MismatchError
	if !errors.As(err, &mm) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if mm.Turn != 4 {
		t.Fatalf("mismatch turn=%d want 4", mm.Turn)
	}
}
