package main

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"prospector.ai/internal/game"
	"prospector.ai/internal/grid"
	persistlog "prospector.ai/internal/persistence/log"
	"prospector.ai/internal/persistence/session"
	"prospector.ai/internal/planner"
)

type glyph struct {
	r     rune
	style tcell.Style
}

type viewer struct {
	manifest session.Manifest
	entries  []persistlog.TurnEntry

	idx     int
	state   *game.State
	built   int
	ox, oy  int
	playing bool
	err     error
}

func newViewer(m session.Manifest, entries []persistlog.TurnEntry) *viewer {
	return &viewer{manifest: m, entries: entries, built: -1}
}

// seek moves to entries[i], replaying frames forward from the last built
// position or from the session start when stepping back.
func (v *viewer) seek(i int) error {
	if len(v.entries) == 0 {
		return fmt.Errorf("no turns")
	}
	i = max(0, min(i, len(v.entries)-1))
	if v.state == nil || i < v.built {
		st, err := game.NewState(v.manifest.Init)
		if err != nil {
			return err
		}
		v.state = st
		v.built = -1
	}
	for j := v.built + 1; j <= i; j++ {
		if err := v.state.ApplyFrame(v.entries[j].Frame); err != nil {
			v.err = fmt.Errorf("turn %d: %w", v.entries[j].Turn, err)
		}
		v.built = j
	}
	v.idx = i
	return nil
}

// handleKey returns false when the viewer should exit.
func (v *viewer) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyRight:
		_ = v.seek(v.idx + 1)
	case tcell.KeyLeft:
		_ = v.seek(v.idx - 1)
	case tcell.KeyPgDn:
		_ = v.seek(v.idx + 10)
	case tcell.KeyPgUp:
		_ = v.seek(v.idx - 10)
	case tcell.KeyHome:
		_ = v.seek(0)
	case tcell.KeyEnd:
		_ = v.seek(len(v.entries) - 1)
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case ' ':
			v.playing = !v.playing
		case 'l':
			_ = v.seek(v.idx + 1)
		case 'h':
			_ = v.seek(v.idx - 1)
		case 'w':
			v.oy--
		case 's':
			v.oy++
		case 'a':
			v.ox--
		case 'd':
			v.ox++
		}
	}
	return true
}

var (
	styleBase      = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorYellow).Bold(true)
	styleEnemyBase = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorRed)
	styleMine      = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleEnemy     = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleTarget    = tcell.StyleDefault.Foreground(tcell.ColorFuchsia)
	styleText      = tcell.StyleDefault
)

// cellColor shades a cell by its resource on a green ramp.
func cellColor(value, capacity int) tcell.Color {
	if capacity <= 0 {
		capacity = 1000
	}
	level := min(255, value*255/capacity)
	return tcell.NewRGBColor(0, int32(level), 0)
}

func intentRune(in planner.Intent) rune {
	switch in {
	case planner.Approaching:
		return 'a'
	case planner.Depositing:
		return 'd'
	}
	return 'm'
}

// layout renders the map window of w x h cells at the current offset.
// Torus coordinates wrap so panning never runs off the map.
func (v *viewer) layout(w, h int) [][]glyph {
	s := v.state
	e := v.entries[v.idx]
	g := s.Grid
	out := make([][]glyph, h)
	for y := range out {
		out[y] = make([]glyph, w)
		for x := range out[y] {
			p := g.Normalize(grid.Point{X: x + v.ox, Y: y + v.oy})
			out[y][x] = glyph{r: ' ', style: tcell.StyleDefault.Background(cellColor(g.At(p), s.Const.Capacity))}
		}
	}
	put := func(p grid.Point, r rune, st tcell.Style) {
		x := mod(p.X-v.ox, g.W)
		y := mod(p.Y-v.oy, g.H)
		if x < w && y < h {
			out[y][x] = glyph{r: r, style: st}
		}
	}
	for _, t := range e.Plan.Targets {
		put(t, '+', styleTarget.Background(cellColor(g.At(t), s.Const.Capacity)))
	}
	for idx := range s.EnemyBases {
		put(g.PointAt(idx), 'b', styleEnemyBase)
	}
	for _, b := range s.MyBases {
		put(b, 'B', styleBase)
	}
	for _, u := range s.Units {
		if u.Owner == s.Me {
			put(u.Pos, intentRune(e.Plan.Intents[u.ID]), styleMine)
		} else {
			put(u.Pos, 'x', styleEnemy)
		}
	}
	return out
}

func mod(a, m int) int {
	a %= m
	if a < 0 {
		a += m
	}
	return a
}

func (v *viewer) status() []string {
	e := v.entries[v.idx]
	lines := []string{
		fmt.Sprintf("session %s  turn %d/%d", v.manifest.Session, e.Turn, v.entries[len(v.entries)-1].Turn),
		fmt.Sprintf("reserve %d  units %d  bases %d  plan %.2fms", v.state.MyReserve(), len(v.state.MyUnitIDs()), len(v.state.MyBases), e.DurationMs),
		fmt.Sprintf("spawn=%v endgame=%v saving=%v rerouted=%d failures=%d", e.Plan.Spawn, e.Plan.Endgame, e.Plan.Saving, len(e.Plan.Rerouted), len(e.Plan.Failures)),
	}
	if e.Aborted != "" {
		lines = append(lines, "aborted: "+e.Aborted)
	}
	if v.err != nil {
		lines = append(lines, "error: "+v.err.Error())
	}
	lines = append(lines, "<-/-> step  PgUp/PgDn 10  space play  wasd pan  q quit")
	return lines
}

func (v *viewer) draw(screen tcell.Screen) {
	screen.Clear()
	sw, sh := screen.Size()
	status := v.status()
	mapH := min(v.state.Grid.H, max(0, sh-len(status)-1))
	mapW := min(v.state.Grid.W, sw)
	for y, row := range v.layout(mapW, mapH) {
		for x, gl := range row {
			screen.SetContent(x, y, gl.r, nil, gl.style)
		}
	}
	for i, line := range status {
		for x, r := range []rune(line) {
			if x >= sw {
				break
			}
			screen.SetContent(x, mapH+1+i, r, nil, styleText)
		}
	}
	screen.Show()
}
