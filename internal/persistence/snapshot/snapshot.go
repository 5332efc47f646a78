package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"prospector.ai/internal/game"
	"prospector.ai/internal/grid"
	"prospector.ai/internal/planner"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	Session string `json:"session"`
	Turn    int    `json:"turn"`
}

// SnapshotV1 holds everything needed to resume planning after Turn:
// the observed world and the planner's carried memory.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Const   game.Constants `json:"constants"`
	Players int            `json:"players"`
	Me      int            `json:"me"`
	Width   int            `json:"width"`
	Height  int            `json:"height"`
	Cells   []int          `json:"cells"`

	Shipyards  []game.Base   `json:"shipyards"`
	Reserves   []ReserveV1   `json:"reserves"`
	Units      []game.Unit   `json:"units"`
	MyBases    []grid.Point  `json:"my_bases"`
	EnemyBases []EnemyBaseV1 `json:"enemy_bases"`

	Memory MemoryV1 `json:"memory"`
}

type ReserveV1 struct {
	Player int `json:"player"`
	Amount int `json:"amount"`
}

type EnemyBaseV1 struct {
	Owner int        `json:"owner"`
	Pos   grid.Point `json:"pos"`
}

type UnitMemoryV1 struct {
	ID     int        `json:"id"`
	Intent string     `json:"intent"`
	Stuck  int        `json:"stuck"`
	Prev   grid.Point `json:"prev"`
}

type MemoryV1 struct {
	Units      []UnitMemoryV1      `json:"units"`
	Endgame    bool                `json:"endgame"`
	Candidates []planner.Candidate `json:"candidates,omitempty"`
}

// Capture flattens a state and planner memory into a snapshot. Map backed
// fields are emitted in key order so equal inputs encode identically.
func Capture(session string, s *game.State, mem planner.Memory) SnapshotV1 {
	snap := SnapshotV1{
		Header:  Header{Version: Version, Session: session, Turn: s.Turn},
		Const:   s.Const,
		Players: s.Players,
		Me:      s.Me,
		Width:   s.Grid.W,
		Height:  s.Grid.H,
		Cells:   append([]int(nil), s.Grid.Cells...),
		MyBases: append([]grid.Point(nil), s.MyBases...),
	}
	for _, owner := range sortedKeys(s.Shipyards) {
		snap.Shipyards = append(snap.Shipyards, game.Base{Owner: owner, ID: -1, Pos: s.Shipyards[owner]})
	}
	for _, p := range sortedKeys(s.Reserve) {
		snap.Reserves = append(snap.Reserves, ReserveV1{Player: p, Amount: s.Reserve[p]})
	}
	for _, id := range sortedKeys(s.Units) {
		snap.Units = append(snap.Units, s.Units[id])
	}
	for _, idx := range sortedKeys(s.EnemyBases) {
		snap.EnemyBases = append(snap.EnemyBases, EnemyBaseV1{Owner: s.EnemyBases[idx], Pos: s.Grid.PointAt(idx)})
	}
	snap.Memory.Endgame = mem.Endgame
	snap.Memory.Candidates = append([]planner.Candidate(nil), mem.Candidates...)
	for _, id := range sortedKeys(mem.Units) {
		um := mem.Units[id]
		snap.Memory.Units = append(snap.Memory.Units, UnitMemoryV1{ID: id, Intent: um.Intent.String(), Stuck: um.Stuck, Prev: um.Prev})
	}
	return snap
}

// Restore rebuilds the state (ownership map included) and planner memory.
func (snap SnapshotV1) Restore() (*game.State, planner.Memory, error) {
	if snap.Header.Version != Version {
		return nil, planner.Memory{}, fmt.Errorf("snapshot: unsupported version %d", snap.Header.Version)
	}
	if snap.Width <= 0 || snap.Height <= 0 || len(snap.Cells) != snap.Width*snap.Height {
		return nil, planner.Memory{}, fmt.Errorf("snapshot: bad map %dx%d with %d cells", snap.Width, snap.Height, len(snap.Cells))
	}
	g := grid.New(snap.Width, snap.Height)
	copy(g.Cells, snap.Cells)
	s := &game.State{
		Const:      snap.Const,
		Players:    snap.Players,
		Me:         snap.Me,
		Turn:       snap.Header.Turn,
		Grid:       g,
		Shipyards:  make(map[int]grid.Point, len(snap.Shipyards)),
		Reserve:    make(map[int]int, len(snap.Reserves)),
		Units:      make(map[int]game.Unit, len(snap.Units)),
		MyBases:    append([]grid.Point(nil), snap.MyBases...),
		EnemyBases: make(map[int]int, len(snap.EnemyBases)),
	}
	for _, b := range snap.Shipyards {
		s.Shipyards[b.Owner] = b.Pos
	}
	for _, r := range snap.Reserves {
		s.Reserve[r.Player] = r.Amount
	}
	for _, u := range snap.Units {
		s.Units[u.ID] = u
	}
	for _, b := range snap.EnemyBases {
		s.EnemyBases[g.Index(g.Normalize(b.Pos))] = b.Owner
	}
	own, err := grid.BuildOwnership(g, s.MyBases)
	if err != nil {
		return nil, planner.Memory{}, fmt.Errorf("snapshot: %w", err)
	}
	s.Own = own
	s.Reindex()

	mem := planner.NewMemory()
	mem.Endgame = snap.Memory.Endgame
	mem.Candidates = append([]planner.Candidate(nil), snap.Memory.Candidates...)
	for _, um := range snap.Memory.Units {
		var in planner.Intent
		if err := in.UnmarshalText([]byte(um.Intent)); err != nil {
			return nil, planner.Memory{}, fmt.Errorf("snapshot: unit %d: %w", um.ID, err)
		}
		mem.Units[um.ID] = planner.UnitMemory{Intent: in, Stuck: um.Stuck, Prev: um.Prev}
	}
	return s, mem, nil
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Path names the snapshot file for a turn inside a session directory.
func Path(sessionDir string, turn int) string {
	return filepath.Join(sessionDir, "snapshots", fmt.Sprintf("%06d.snap.zst", turn))
}

// Latest returns the newest snapshot at or before turn, or "" if none.
func Latest(sessionDir string, turn int) (string, error) {
	paths, err := filepath.Glob(filepath.Join(sessionDir, "snapshots", "*.snap.zst"))
	if err != nil {
		return "", err
	}
	sort.Strings(paths)
	best := ""
	for _, p := range paths {
		var t int
		if _, err := fmt.Sscanf(filepath.Base(p), "%06d.snap.zst", &t); err != nil {
			continue
		}
		if turn < 0 || t <= turn {
			best = p
		}
	}
	return best, nil
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

// ReadHeader decodes only the leading JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()
	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, err
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("snapshot header: %w", err)
	}
	return h, nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The gob body repeats the header.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("snapshot header: %w", err)
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}
