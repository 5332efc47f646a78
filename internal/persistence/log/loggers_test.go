package log

import (
	"path/filepath"
	"testing"

	"prospector.ai/internal/game"
	"prospector.ai/internal/grid"
	"prospector.ai/internal/planner"
)

func TestTurnLoggerSegmentsAndReadsBack(t *testing.T) {
	dir := t.TempDir()
	l := NewTurnLogger(dir, 2)
	for turn := 0; turn < 5; turn++ {
		e := TurnEntry{
			Session: "s1",
			Turn:    turn,
			Frame:   game.Frame{Turn: turn},
			Plan: planner.Plan{
				Turn:     turn,
				Commands: []game.Command{{UnitID: turn, Dir: grid.East}},
			},
			Line:   "m 0 e",
			Digest: "d",
		}
		if err := l.WriteTurn(e); err != nil {
			t.Fatalf("write turn %d: %v", turn, err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	segs, err := Segments(filepath.Join(dir, "turns"), TurnPrefix)
	if err != nil {
		t.Fatalf("segments: %v", err)
	}
	if len(segs) != 3 {
		t.Fatalf("segments=%d want 3: %v", len(segs), segs)
	}

	got, err := ReadTurns(dir)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("entries=%d want 5", len(got))
	}
	for i, e := range got {
		if e.Turn != i || len(e.Plan.Commands) != 1 || e.Plan.Commands[0].UnitID != i || e.Plan.Commands[0].Dir != grid.East {
			t.Fatalf("entry %d: %+v", i, e)
		}
	}
}

func TestAuditLoggerAppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		a := NewAuditLogger(dir)
		if err := a.WriteAudit(AuditEntry{Session: "s1", Turn: i, UnitID: 7, Code: "E_REROUTE_FAILED"}); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := a.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	var got []AuditEntry
	err := Scan(filepath.Join(dir, "audit"), AuditPrefix, func(e AuditEntry) error {
		got = append(got, e)
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 2 || got[0].Turn != 0 || got[1].Turn != 1 || got[1].Code != "E_REROUTE_FAILED" {
		t.Fatalf("audit entries: %+v", got)
	}
}

func TestReadTurnsMissingDir(t *testing.T) {
	got, err := ReadTurns(t.TempDir())
	if err != nil || len(got) != 0 {
		t.Fatalf("empty session: %v %v", got, err)
	}
}
