package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"prospector.ai/internal/game"
	"prospector.ai/internal/persistence/indexdb"
	persistlog "prospector.ai/internal/persistence/log"
	"prospector.ai/internal/persistence/offload"
	"prospector.ai/internal/persistence/session"
	"prospector.ai/internal/persistence/snapshot"
	"prospector.ai/internal/planner"
	"prospector.ai/internal/protocol"
	"prospector.ai/internal/transport/observer"
	"prospector.ai/internal/tuning"
)

const turnSegment = 100

type runConfig struct {
	Session     string
	SessionDir  string
	DBPath      string
	ObserveAddr string
	DisableDB   bool
	Tune        tuning.Tuning
	Upload      *offload.Uploader
}

// sinks collects the optional per-turn outputs. Every field may be nil.
type sinks struct {
	turns *persistlog.TurnLogger
	audit *persistlog.AuditLogger
	idx   *indexdb.SQLiteIndex
	hub   *observer.Hub
}

func (k *sinks) close() {
	if k.turns != nil {
		_ = k.turns.Close()
	}
	if k.audit != nil {
		_ = k.audit.Close()
	}
	if k.idx != nil {
		_ = k.idx.Close()
	}
}

// run plays one engine session over in/out. It returns nil when the engine
// closes the stream; a malformed frame ends the session with an error.
func run(ctx context.Context, cfg runConfig, in io.Reader, out io.Writer, logger *log.Logger) error {
	r := protocol.NewReader(in)
	w := protocol.NewWriter(out)

	hdr, err := r.ReadInit()
	if err != nil {
		return fmt.Errorf("read init: %w", err)
	}
	state, err := game.NewState(hdr)
	if err != nil {
		return fmt.Errorf("init state: %w", err)
	}

	manifest := session.Manifest{
		Session:   cfg.Session,
		Bot:       cfg.Tune.BotName,
		StartedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Init:      hdr,
	}
	if err := session.WriteManifest(cfg.SessionDir, manifest, cfg.Tune); err != nil {
		logger.Printf("write manifest: %v", err)
	}

	k := &sinks{
		turns: persistlog.NewTurnLogger(cfg.SessionDir, turnSegment),
		audit: persistlog.NewAuditLogger(cfg.SessionDir),
	}
	defer k.close()
	if !cfg.DisableDB && cfg.DBPath != "" {
		idx, err := indexdb.OpenSQLite(cfg.DBPath)
		if err != nil {
			logger.Printf("index disabled: %v", err)
		} else {
			k.idx = idx
			idx.RecordSession(indexdb.SessionRow{
				ID:        cfg.Session,
				Bot:       cfg.Tune.BotName,
				Players:   hdr.Players,
				Me:        hdr.Me,
				Width:     hdr.Width,
				Height:    hdr.Height,
				MaxTurns:  state.Const.MaxTurns,
				StartedAt: manifest.StartedAt,
			})
		}
	}
	if cfg.ObserveAddr != "" {
		k.hub = observer.NewHub(cfg.Session)
		srv := observer.NewServer(k.hub, logger)
		obsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := srv.Start(obsCtx, cfg.ObserveAddr); err != nil {
				logger.Printf("observer: %v", err)
			}
		}()
		logger.Printf("observer listening on %s", cfg.ObserveAddr)
	}

	pl := planner.New(cfg.Tune, logger)
	if err := w.Ready(cfg.Tune.BotName); err != nil {
		return fmt.Errorf("send name: %w", err)
	}
	logger.Printf("ready: %dx%d map, %d players, me=%d", hdr.Width, hdr.Height, hdr.Players, hdr.Me)

	lastTurn := -1
	for {
		if err := ctx.Err(); err != nil {
			break
		}
		frame, err := r.ReadFrame(hdr.Players)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		line := playTurn(cfg, state, pl, frame, k, logger)
		if err := w.WriteTurn(line.spawn, line.cmds); err != nil {
			return fmt.Errorf("send turn %d: %w", frame.Turn, err)
		}
		lastTurn = frame.Turn
	}
	if k.idx != nil {
		k.idx.FinishSession(cfg.Session, lastTurn, state.MyReserve())
	}
	k.close()
	if err := cfg.Upload.EnqueueSession(cfg.SessionDir); err != nil {
		logger.Printf("offload: %v", err)
	}
	return nil
}

type turnLine struct {
	spawn bool
	cmds  []game.Command
}

// playTurn plans one frame and records it. A planning failure is logged and
// answered with an empty command line so every unit holds.
func playTurn(cfg runConfig, state *game.State, pl *planner.Planner, frame game.Frame, k *sinks, logger *log.Logger) turnLine {
	start := time.Now()
	entry := persistlog.TurnEntry{Session: cfg.Session, Turn: frame.Turn, Frame: frame}

	plan, err := pl.Step(state, frame)
	if err != nil {
		code := protocol.ErrPlanningAbort
		if errors.Is(err, game.ErrUnknownUnit) {
			code = protocol.ErrUnknownUnit
		}
		logger.Printf("turn %d aborted: %v", frame.Turn, err)
		entry.Aborted = err.Error()
		plan = planner.Plan{Turn: frame.Turn}
		audit(k, persistlog.AuditEntry{Session: cfg.Session, Turn: frame.Turn, UnitID: -1, Code: code, Detail: err.Error()}, logger)
	}
	for _, f := range plan.Failures {
		audit(k, persistlog.AuditEntry{Session: cfg.Session, Turn: frame.Turn, UnitID: f.UnitID, Code: f.Code, Detail: f.Detail}, logger)
	}

	out := turnLine{spawn: plan.Spawn, cmds: plan.Commands}
	cmdLine := protocol.FormatCommands(out.spawn, out.cmds)
	dur := float64(time.Since(start).Microseconds()) / 1000

	entry.Plan = plan
	entry.Line = cmdLine
	entry.Digest = protocol.Digest(cmdLine)
	entry.DurationMs = dur
	if err := k.turns.WriteTurn(entry); err != nil {
		logger.Printf("turn log: %v", err)
	}
	if k.idx != nil {
		_ = k.idx.WriteTurn(entry)
	}
	if every := cfg.Tune.SnapshotEveryTurns; every > 0 && frame.Turn%every == 0 && entry.Aborted == "" {
		writeSnapshot(cfg, state, pl, k, logger)
	}
	if k.hub != nil {
		k.hub.Publish(observer.BuildTurn(state, plan, dur))
	}
	return out
}

func audit(k *sinks, e persistlog.AuditEntry, logger *log.Logger) {
	if err := k.audit.WriteAudit(e); err != nil {
		logger.Printf("audit log: %v", err)
	}
	if k.idx != nil {
		_ = k.idx.WriteFailure(e)
	}
}

func writeSnapshot(cfg runConfig, state *game.State, pl *planner.Planner, k *sinks, logger *log.Logger) {
	path := snapshot.Path(cfg.SessionDir, state.Turn)
	snap := snapshot.Capture(cfg.Session, state, pl.Memory())
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		logger.Printf("snapshot turn %d: %v", state.Turn, err)
		return
	}
	if k.idx != nil {
		k.idx.RecordSnapshot(indexdb.SnapshotRow{
			Session: cfg.Session,
			Turn:    state.Turn,
			Path:    path,
			Units:   len(state.MyUnitIDs()),
			Bases:   len(state.MyBases),
		})
	}
}
