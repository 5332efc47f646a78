package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	persistlog "prospector.ai/internal/persistence/log"
)

// SQLiteIndex is a queryable read model of the bot's sessions. Writes are
// queued to one goroutine and dropped under backpressure; the turn log
// stays the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTurn     atomic.Uint64
	dropFailure  atomic.Uint64
	dropSnapshot atomic.Uint64
	dropSession  atomic.Uint64
	writeErrors  atomic.Uint64
}

type reqKind int

const (
	reqSession reqKind = iota + 1
	reqFinish
	reqTurn
	reqFailure
	reqSnapshot
)

type req struct {
	kind reqKind

	session  SessionRow
	turn     persistlog.TurnEntry
	failure  persistlog.AuditEntry
	snapshot SnapshotRow
}

type SessionRow struct {
	ID        string `json:"id"`
	Bot       string `json:"bot"`
	Players   int    `json:"players"`
	Me        int    `json:"me"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	MaxTurns  int    `json:"max_turns"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at,omitempty"`
	LastTurn  int    `json:"last_turn"`
	Reserve   int    `json:"reserve"`
}

type TurnRow struct {
	Session    string  `json:"session"`
	Turn       int     `json:"turn"`
	Digest     string  `json:"digest"`
	Spawn      bool    `json:"spawn"`
	Commands   int     `json:"commands"`
	Rerouted   int     `json:"rerouted"`
	Failures   int     `json:"failures"`
	Endgame    bool    `json:"endgame"`
	DurationMs float64 `json:"duration_ms"`
}

type FailureRow struct {
	Session string `json:"session"`
	Turn    int    `json:"turn"`
	Seq     int    `json:"seq"`
	UnitID  int    `json:"unit_id"`
	Code    string `json:"code"`
	Detail  string `json:"detail,omitempty"`
}

type SnapshotRow struct {
	Session string `json:"session"`
	Turn    int    `json:"turn"`
	Path    string `json:"path"`
	Units   int    `json:"units"`
	Bases   int    `json:"bases"`
}

type Stats struct {
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
	DropTurnTotal     uint64 `json:"drop_turn_total"`
	DropFailureTotal  uint64 `json:"drop_failure_total"`
	DropSnapshotTotal uint64 `json:"drop_snapshot_total"`
	DropSessionTotal  uint64 `json:"drop_session_total"`
	WriteErrorTotal   uint64 `json:"write_error_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

// OpenReadOnly opens an existing index for queries without a writer.
func OpenReadOnly(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			bot TEXT NOT NULL,
			players INTEGER NOT NULL,
			me INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			max_turns INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			last_turn INTEGER NOT NULL DEFAULT 0,
			reserve INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS turns (
			session TEXT NOT NULL,
			turn INTEGER NOT NULL,
			digest TEXT NOT NULL,
			spawn INTEGER NOT NULL,
			commands INTEGER NOT NULL,
			rerouted INTEGER NOT NULL,
			failures INTEGER NOT NULL,
			endgame INTEGER NOT NULL,
			duration_ms REAL NOT NULL,
			plan_json TEXT NOT NULL,
			PRIMARY KEY (session, turn)
		);`,
		`CREATE TABLE IF NOT EXISTS failures (
			session TEXT NOT NULL,
			turn INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			unit_id INTEGER NOT NULL,
			code TEXT NOT NULL,
			detail TEXT,
			PRIMARY KEY (session, turn, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_failures_code ON failures(code, session);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			session TEXT NOT NULL,
			turn INTEGER NOT NULL,
			path TEXT NOT NULL,
			units INTEGER NOT NULL,
			bases INTEGER NOT NULL,
			PRIMARY KEY (session, turn)
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// DB exposes the handle for queries. Writes must go through the queue.
func (s *SQLiteIndex) DB() *sql.DB { return s.db }

func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		drops.Add(1)
	}
}

func (s *SQLiteIndex) RecordSession(row SessionRow) {
	if s == nil {
		return
	}
	if row.StartedAt == "" {
		row.StartedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	s.enqueue(req{kind: reqSession, session: row}, &s.dropSession)
}

// FinishSession stamps the end time, last turn and final reserve.
func (s *SQLiteIndex) FinishSession(id string, lastTurn, reserve int) {
	if s == nil {
		return
	}
	row := SessionRow{ID: id, LastTurn: lastTurn, Reserve: reserve, EndedAt: time.Now().UTC().Format(time.RFC3339Nano)}
	s.enqueue(req{kind: reqFinish, session: row}, &s.dropSession)
}

func (s *SQLiteIndex) WriteTurn(e persistlog.TurnEntry) error {
	if s == nil {
		return nil
	}
	s.enqueue(req{kind: reqTurn, turn: e}, &s.dropTurn)
	return nil
}

func (s *SQLiteIndex) WriteFailure(e persistlog.AuditEntry) error {
	if s == nil {
		return nil
	}
	s.enqueue(req{kind: reqFailure, failure: e}, &s.dropFailure)
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(row SnapshotRow) {
	if s == nil {
		return
	}
	s.enqueue(req{kind: reqSnapshot, snapshot: row}, &s.dropSnapshot)
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropTurnTotal:     s.dropTurn.Load(),
		DropFailureTotal:  s.dropFailure.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
		DropSessionTotal:  s.dropSession.Load(),
		WriteErrorTotal:   s.writeErrors.Load(),
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second

		failSession string
		failTurn    = -1
		failSeq     int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			s.writeErrors.Add(1)
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.writeErrors.Add(1)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		s.writeErrors.Add(1)
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(query string, args ...any) {
		if tx == nil {
			return
		}
		if _, err := tx.Exec(query, args...); err != nil {
			rollback()
			return
		}
		opCount++
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqSession:
			se := r.session
			exec(`INSERT OR REPLACE INTO sessions(id,bot,players,me,width,height,max_turns,started_at,last_turn,reserve) VALUES(?,?,?,?,?,?,?,?,?,?)`,
				se.ID, se.Bot, se.Players, se.Me, se.Width, se.Height, se.MaxTurns, se.StartedAt, se.LastTurn, se.Reserve)

		case reqFinish:
			se := r.session
			exec(`UPDATE sessions SET ended_at=?, last_turn=?, reserve=? WHERE id=?`, se.EndedAt, se.LastTurn, se.Reserve, se.ID)

		case reqTurn:
			e := r.turn
			planJSON, _ := json.Marshal(e.Plan)
			exec(`INSERT OR REPLACE INTO turns(session,turn,digest,spawn,commands,rerouted,failures,endgame,duration_ms,plan_json) VALUES(?,?,?,?,?,?,?,?,?,?)`,
				e.Session, e.Turn, e.Digest, boolInt(e.Plan.Spawn), len(e.Plan.Commands), len(e.Plan.Rerouted), len(e.Plan.Failures), boolInt(e.Plan.Endgame), e.DurationMs, string(planJSON))
			exec(`UPDATE sessions SET last_turn=MAX(last_turn, ?) WHERE id=?`, e.Turn, e.Session)

		case reqFailure:
			a := r.failure
			if a.Session != failSession || a.Turn != failTurn {
				failSession, failTurn, failSeq = a.Session, a.Turn, 0
			}
			seq := failSeq
			failSeq++
			exec(`INSERT OR REPLACE INTO failures(session,turn,seq,unit_id,code,detail) VALUES(?,?,?,?,?,?)`,
				a.Session, a.Turn, seq, a.UnitID, a.Code, a.Detail)

		case reqSnapshot:
			sn := r.snapshot
			exec(`INSERT OR REPLACE INTO snapshots(session,turn,path,units,bases) VALUES(?,?,?,?,?)`,
				sn.Session, sn.Turn, sn.Path, sn.Units, sn.Bases)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0) {
			commit()
		}
	}

	commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
