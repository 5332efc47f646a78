package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/klauspost/compress/zstd"

	"prospector.ai/internal/game"
	"prospector.ai/internal/planner"
)

// JSONLZstdWriter appends JSON lines to zstd compressed segment files.
// Callers pick the segment; a new segment closes the previous file.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	mu     sync.Mutex
	curSeg int
	open   bool
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(seg int, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.open || seg != w.curSeg {
		if err := w.rotateLocked(seg); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	// Flush the encoder too so a killed bot leaves complete frames behind.
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(seg int) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(SegmentPath(w.baseDir, w.prefix, seg), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curSeg = seg
	w.open = true
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.open = false
	return err1
}

func SegmentPath(dir, prefix string, seg int) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%06d.jsonl.zst", prefix, seg))
}

// Segments lists a directory's segment files for prefix in order.
func Segments(dir, prefix string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, prefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// Scan decodes every line of every segment in order and hands it to fn.
func Scan[T any](dir, prefix string, fn func(T) error) error {
	paths, err := Segments(dir, prefix)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := scanFile(p, fn); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
	}
	return nil
}

func scanFile[T any](path string, fn func(T) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 256*1024), 64*1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var v T
		if err := json.Unmarshal(sc.Bytes(), &v); err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return sc.Err()
}

// TurnEntry is the per-turn record of what the bot saw and answered.
type TurnEntry struct {
	Session    string       `json:"session"`
	Turn       int          `json:"turn"`
	Frame      game.Frame   `json:"frame"`
	Plan       planner.Plan `json:"plan"`
	Line       string       `json:"line"`
	Digest     string       `json:"digest"`
	DurationMs float64      `json:"duration_ms"`
	Aborted    string       `json:"aborted,omitempty"`
}

// AuditEntry records one planning failure.
type AuditEntry struct {
	Session string `json:"session"`
	Turn    int    `json:"turn"`
	UnitID  int    `json:"unit_id,omitempty"`
	Code    string `json:"code"`
	Detail  string `json:"detail,omitempty"`
}

const (
	TurnPrefix  = "turns"
	AuditPrefix = "audit"
)

func TurnsDir(sessionDir string) string { return filepath.Join(sessionDir, "turns") }
func AuditDir(sessionDir string) string { return filepath.Join(sessionDir, "audit") }

// TurnLogger writes one JSONL entry per turn (compressed), segmented every
// segTurns turns.
type TurnLogger struct {
	w        *JSONLZstdWriter
	segTurns int
}

func NewTurnLogger(sessionDir string, segTurns int) *TurnLogger {
	if segTurns <= 0 {
		segTurns = 100
	}
	return &TurnLogger{w: NewJSONLZstdWriter(TurnsDir(sessionDir), TurnPrefix), segTurns: segTurns}
}

func (l *TurnLogger) WriteTurn(v TurnEntry) error { return l.w.Write(v.Turn/l.segTurns, v) }
func (l *TurnLogger) Close() error                { return l.w.Close() }

// AuditLogger writes failure JSONL entries (compressed) into one segment.
type AuditLogger struct{ w *JSONLZstdWriter }

func NewAuditLogger(sessionDir string) *AuditLogger {
	return &AuditLogger{w: NewJSONLZstdWriter(AuditDir(sessionDir), AuditPrefix)}
}

func (l *AuditLogger) WriteAudit(v AuditEntry) error { return l.w.Write(0, v) }
func (l *AuditLogger) Close() error                  { return l.w.Close() }

// ReadTurns loads a session's turn log in turn order.
func ReadTurns(sessionDir string) ([]TurnEntry, error) {
	var out []TurnEntry
	err := Scan(TurnsDir(sessionDir), TurnPrefix, func(e TurnEntry) error {
		out = append(out, e)
		return nil
	})
	return out, err
}
