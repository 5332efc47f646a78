package main

import (
	"errors"
	"fmt"
	"log"

	"prospector.ai/internal/game"
	persistlog "prospector.ai/internal/persistence/log"
	"prospector.ai/internal/persistence/session"
	"prospector.ai/internal/persistence/snapshot"
	"prospector.ai/internal/planner"
	"prospector.ai/internal/protocol"
)

type result struct {
	Session  string
	Snapshot string
	Checked  int
	LastTurn int
}

// MismatchError reports the first turn whose re-planned command line
// differs from the recorded one.
type MismatchError struct {
	Turn int
	Want string
	Got  string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("turn %d: digest mismatch\n  recorded: %q\n  replayed: %q", e.Turn, e.Want, e.Got)
}

var errStop = errors.New("stop")

// replay re-plans recorded frames from turn from (or the session start)
// and compares each command digest with the turn log.
func replay(sessionDir string, from, to int, logger *log.Logger) (result, error) {
	manifest, tune, err := session.ReadManifest(sessionDir)
	if err != nil {
		return result{}, fmt.Errorf("manifest: %w", err)
	}
	res := result{Session: manifest.Session, LastTurn: -1}

	pl := planner.New(tune, logger)
	var state *game.State
	startTurn := -1
	if from > 0 {
		path, err := snapshot.Latest(sessionDir, from-1)
		if err != nil {
			return res, err
		}
		if path != "" {
			snap, err := snapshot.ReadSnapshot(path)
			if err != nil {
				return res, fmt.Errorf("%s: %w", path, err)
			}
			st, mem, err := snap.Restore()
			if err != nil {
				return res, err
			}
			state = st
			pl.Restore(mem)
			startTurn = snap.Header.Turn
			res.Snapshot = path
		}
	}
	if state == nil {
		state, err = game.NewState(manifest.Init)
		if err != nil {
			return res, fmt.Errorf("init state: %w", err)
		}
	}

	err = persistlog.Scan(persistlog.TurnsDir(sessionDir), persistlog.TurnPrefix, func(e persistlog.TurnEntry) error {
		if e.Turn <= startTurn {
			return nil
		}
		if to >= 0 && e.Turn > to {
			return errStop
		}
		line := ""
		if plan, err := pl.Step(state, e.Frame); err == nil {
			line = protocol.FormatCommands(plan.Spawn, plan.Commands)
		} else {
			logger.Printf("turn %d aborted: %v", e.Turn, err)
		}
		if protocol.Digest(line) != e.Digest {
			return &MismatchError{Turn: e.Turn, Want: e.Line, Got: line}
		}
		if e.Turn >= from {
			res.Checked++
		}
		res.LastTurn = e.Turn
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return res, err
	}
	return res, nil
}
