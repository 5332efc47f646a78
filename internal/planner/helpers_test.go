package planner

import (
	"testing"

	"prospector.ai/internal/game"
	"prospector.ai/internal/grid"
)

type world struct {
	w, h    int
	players int
	cells   map[grid.Point]int
	fill    int
	yards   []grid.Point
	units   []game.Unit
	reserve int
	turn    int
	maxTurn int
}

func (wd world) state(t *testing.T) *game.State {
	t.Helper()
	cells := make([]int, wd.w*wd.h)
	for i := range cells {
		cells[i] = wd.fill
	}
	for p, v := range wd.cells {
		cells[p.Y*wd.w+p.X] = v
	}
	players := wd.players
	if players == 0 {
		players = 2
	}
	maxTurn := wd.maxTurn
	if maxTurn == 0 {
		maxTurn = 400
	}
	in := game.Init{
		Const:   game.Constants{MaxTurns: maxTurn, UnitCost: 1000, BaseCost: 4000, Capacity: 1000},
		Players: players,
		Me:      0,
		Width:   wd.w,
		Height:  wd.h,
		Cells:   cells,
	}
	for i, y := range wd.yards {
		in.Shipyards = append(in.Shipyards, game.Base{Owner: i, Pos: y})
	}
	s, err := game.NewState(in)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	f := game.Frame{Turn: wd.turn}
	for pid := 0; pid < players; pid++ {
		pf := game.PlayerFrame{ID: pid}
		if pid == 0 {
			pf.Reserve = wd.reserve
		}
		for _, u := range wd.units {
			if u.Owner == pid {
				pf.Units = append(pf.Units, u)
			}
		}
		f.Players = append(f.Players, pf)
	}
	if err := s.ApplyFrame(f); err != nil {
		t.Fatalf("ApplyFrame: %v", err)
	}
	return s
}

func commandOf(t *testing.T, plan Plan, id int) game.Command {
	t.Helper()
	for _, c := range plan.Commands {
		if c.UnitID == id {
			return c
		}
	}
	t.Fatalf("no command for unit %d in %+v", id, plan.Commands)
	return game.Command{}
}
