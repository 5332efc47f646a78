package protocol

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"prospector.ai/internal/game"
	"prospector.ai/internal/grid"
)

var ErrMalformed = errors.New("malformed input")

// Error carries a failure code alongside the underlying cause.
type Error struct {
	Code string
	Line int
	Err  error
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d): %v", e.Code, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Reader decodes the engine's line protocol.
type Reader struct {
	sc   *bufio.Scanner
	line int
}

func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	return &Reader{sc: sc}
}

func (r *Reader) Line() int { return r.line }

func (r *Reader) next() (string, error) {
	for r.sc.Scan() {
		r.line++
		s := strings.TrimSpace(r.sc.Text())
		if s != "" {
			return s, nil
		}
	}
	if err := r.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (r *Reader) bad(format string, args ...any) error {
	return &Error{Code: ErrProtoBadLine, Line: r.line, Err: fmt.Errorf("%w: "+format, append([]any{ErrMalformed}, args...)...)}
}

// ints reads one line of exactly n integers, or any count when n < 0.
func (r *Reader) ints(n int) ([]int, error) {
	s, err := r.next()
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(s)
	if n >= 0 && len(fields) != n {
		return nil, r.bad("want %d fields, got %d", n, len(fields))
	}
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, r.bad("field %d: %v", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// ReadInit reads the session header through the initial map.
func (r *Reader) ReadInit() (game.Init, error) {
	var in game.Init
	first, err := r.next()
	if err != nil {
		return in, err
	}
	c, err := ParseConstants([]byte(first))
	if err != nil {
		return in, err
	}
	in.Const = c

	hdr, err := r.ints(2)
	if err != nil {
		return in, err
	}
	in.Players, in.Me = hdr[0], hdr[1]
	if in.Players <= 0 {
		return in, r.bad("player count %d", in.Players)
	}
	for i := 0; i < in.Players; i++ {
		v, err := r.ints(3)
		if err != nil {
			return in, err
		}
		in.Shipyards = append(in.Shipyards, game.Base{Owner: v[0], Pos: grid.Point{X: v[1], Y: v[2]}})
	}
	dims, err := r.ints(2)
	if err != nil {
		return in, err
	}
	in.Width, in.Height = dims[0], dims[1]
	if in.Width <= 0 || in.Height <= 0 {
		return in, r.bad("map size %dx%d", in.Width, in.Height)
	}
	in.Cells = make([]int, 0, in.Width*in.Height)
	for y := 0; y < in.Height; y++ {
		row, err := r.ints(in.Width)
		if err != nil {
			return in, err
		}
		in.Cells = append(in.Cells, row...)
	}
	return in, nil
}

// ReadFrame reads one turn. The wire turn number is one-based; the frame's
// is zero-based. It returns io.EOF when the engine closes the stream.
func (r *Reader) ReadFrame(players int) (game.Frame, error) {
	var f game.Frame
	t, err := r.ints(1)
	if err != nil {
		return f, err
	}
	f.Turn = t[0] - 1
	for i := 0; i < players; i++ {
		v, err := r.ints(4)
		if err != nil {
			return f, err
		}
		pf := game.PlayerFrame{ID: v[0], Reserve: v[3]}
		nUnits, nBases := v[1], v[2]
		for j := 0; j < nUnits; j++ {
			u, err := r.ints(4)
			if err != nil {
				return f, err
			}
			pf.Units = append(pf.Units, game.Unit{Owner: pf.ID, ID: u[0], Pos: grid.Point{X: u[1], Y: u[2]}, Cargo: u[3]})
		}
		for j := 0; j < nBases; j++ {
			b, err := r.ints(3)
			if err != nil {
				return f, err
			}
			pf.Bases = append(pf.Bases, game.Base{Owner: pf.ID, ID: b[0], Pos: grid.Point{X: b[1], Y: b[2]}})
		}
		f.Players = append(f.Players, pf)
	}
	n, err := r.ints(1)
	if err != nil {
		return f, err
	}
	for i := 0; i < n[0]; i++ {
		v, err := r.ints(3)
		if err != nil {
			return f, err
		}
		f.Updates = append(f.Updates, game.CellUpdate{Pos: grid.Point{X: v[0], Y: v[1]}, Value: v[2]})
	}
	return f, nil
}

// FormatCommands renders a turn's orders as one line of space separated
// tokens, spawn first.
func FormatCommands(spawn bool, cmds []game.Command) string {
	var b strings.Builder
	if spawn {
		b.WriteString("g")
	}
	for _, c := range cmds {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		if c.Convert {
			fmt.Fprintf(&b, "c %d", c.UnitID)
		} else {
			fmt.Fprintf(&b, "m %d %c", c.UnitID, c.Dir.Char())
		}
	}
	return b.String()
}

// Digest fingerprints a rendered command line for replay checks.
func Digest(line string) string {
	sum := sha256.Sum256([]byte(line))
	return hex.EncodeToString(sum[:])
}

// ParseCommands is the inverse of FormatCommands.
func ParseCommands(line string) (bool, []game.Command, error) {
	fields := strings.Fields(line)
	spawn := false
	var cmds []game.Command
	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "g":
			spawn = true
		case "c":
			if i+1 >= len(fields) {
				return false, nil, fmt.Errorf("%w: truncated convert", ErrMalformed)
			}
			id, err := strconv.Atoi(fields[i+1])
			if err != nil {
				return false, nil, fmt.Errorf("%w: convert id: %v", ErrMalformed, err)
			}
			cmds = append(cmds, game.Command{UnitID: id, Convert: true})
			i++
		case "m":
			if i+2 >= len(fields) {
				return false, nil, fmt.Errorf("%w: truncated move", ErrMalformed)
			}
			id, err := strconv.Atoi(fields[i+1])
			if err != nil {
				return false, nil, fmt.Errorf("%w: move id: %v", ErrMalformed, err)
			}
			if len(fields[i+2]) != 1 {
				return false, nil, fmt.Errorf("%w: direction %q", ErrMalformed, fields[i+2])
			}
			d, ok := grid.ParseDirection(fields[i+2][0])
			if !ok {
				return false, nil, fmt.Errorf("%w: direction %q", ErrMalformed, fields[i+2])
			}
			cmds = append(cmds, game.Command{UnitID: id, Dir: d})
			i += 2
		default:
			return false, nil, fmt.Errorf("%w: token %q", ErrMalformed, fields[i])
		}
	}
	return spawn, cmds, nil
}

// Writer emits the bot's side of the protocol.
type Writer struct {
	w *bufio.Writer
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: bufio.NewWriter(w)} }

// Ready answers the session header with the bot's name.
func (w *Writer) Ready(name string) error { return w.line(name) }

func (w *Writer) WriteTurn(spawn bool, cmds []game.Command) error {
	return w.line(FormatCommands(spawn, cmds))
}

func (w *Writer) line(s string) error {
	if _, err := w.w.WriteString(s); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}
