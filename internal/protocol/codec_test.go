package protocol

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"prospector.ai/internal/game"
	"prospector.ai/internal/grid"
)

const sampleSession = `{"MAX_TURNS":400,"NEW_ENTITY_ENERGY_COST":1000,"DROPOFF_COST":4000,"MAX_ENERGY":1000,"MOVE_COST_RATIO":10,"EXTRACT_RATIO":4,"INSPIRATION_ENABLED":true}
2 1
0 1 1
1 2 2
4 3
1 2 3 4
5 6 7 8
9 10 11 12
1
0 2 0 5000
3 1 1 0
7 2 0 40
1 1 1 4000
9 0 0 300
4 3 2
2
1 2 99
3 0 0
`

func TestReadSession(t *testing.T) {
	r := NewReader(strings.NewReader(sampleSession))
	in, err := r.ReadInit()
	if err != nil {
		t.Fatalf("ReadInit: %v", err)
	}
	if in.Players != 2 || in.Me != 1 || in.Width != 4 || in.Height != 3 {
		t.Fatalf("header mismatch: %+v", in)
	}
	if in.Const.MaxTurns != 400 || in.Const.BaseCost != 4000 || in.Const.MoveCostRatio != 10 {
		t.Fatalf("constants mismatch: %+v", in.Const)
	}
	if len(in.Cells) != 12 || in.Cells[5] != 6 {
		t.Fatalf("cells mismatch: %v", in.Cells)
	}
	if in.Shipyards[1].Pos != (grid.Point{X: 2, Y: 2}) {
		t.Fatalf("shipyard mismatch: %+v", in.Shipyards)
	}

	f, err := r.ReadFrame(in.Players)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if f.Turn != 0 || len(f.Players) != 2 {
		t.Fatalf("frame mismatch: %+v", f)
	}
	p0 := f.Players[0]
	if len(p0.Units) != 2 || p0.Units[1].Cargo != 40 || p0.Reserve != 5000 {
		t.Fatalf("player 0 mismatch: %+v", p0)
	}
	p1 := f.Players[1]
	if len(p1.Units) != 1 || len(p1.Bases) != 1 || p1.Bases[0].Pos != (grid.Point{X: 3, Y: 2}) {
		t.Fatalf("player 1 mismatch: %+v", p1)
	}
	if len(f.Updates) != 2 || f.Updates[0].Value != 99 {
		t.Fatalf("updates mismatch: %+v", f.Updates)
	}
	if _, err := r.ReadFrame(in.Players); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestReadInitRejectsBadConstants(t *testing.T) {
	r := NewReader(strings.NewReader("{\"MAX_TURNS\":0}\n1 0\n"))
	_, err := r.ReadInit()
	var pe *Error
	if !errors.As(err, &pe) || pe.Code != ErrProtoBadConst {
		t.Fatalf("expected bad constants, got %v", err)
	}
}

func TestReadFrameRejectsShortLine(t *testing.T) {
	r := NewReader(strings.NewReader("3\n0 1 0\n"))
	_, err := r.ReadFrame(1)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected malformed, got %v", err)
	}
	var pe *Error
	if !errors.As(err, &pe) || pe.Line != 2 || pe.Code != ErrProtoBadLine {
		t.Fatalf("unexpected error detail: %v", err)
	}
}

func TestCommandLine(t *testing.T) {
	cmds := []game.Command{
		{UnitID: 3, Dir: grid.North},
		{UnitID: 5, Convert: true},
		{UnitID: 8, Dir: grid.Still},
	}
	line := FormatCommands(true, cmds)
	if line != "g m 3 n c 5 m 8 o" {
		t.Fatalf("line: %q", line)
	}
	spawn, got, err := ParseCommands(line)
	if err != nil || !spawn || len(got) != 3 || got[1] != cmds[1] || got[2] != cmds[2] {
		t.Fatalf("parse: %v %v %+v", spawn, err, got)
	}
	if FormatCommands(false, nil) != "" {
		t.Fatalf("empty turn should be empty line")
	}
	if _, _, err := ParseCommands("m 3"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected malformed, got %v", err)
	}
	if Digest(line) == Digest("g m 3 n c 5 m 8 n") || len(Digest("")) != 64 {
		t.Fatalf("digest should separate lines and be hex sha256")
	}
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Ready("prospector"); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if err := w.WriteTurn(false, []game.Command{{UnitID: 1, Dir: grid.East}}); err != nil {
		t.Fatalf("WriteTurn: %v", err)
	}
	if buf.String() != "prospector\nm 1 e\n" {
		t.Fatalf("output: %q", buf.String())
	}
}
