package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

func main() {
	var (
		dataDir   = flag.String("data", "./data", "runtime data directory")
		sessionID = flag.String("session", "", "session id")
		dir       = flag.String("dir", "", "session directory (overrides -data/-session)")
		fromTurn  = flag.Int("from_turn", 0, "first turn to verify; resumes from the newest earlier snapshot")
		toTurn    = flag.Int("to_turn", -1, "last turn to verify (inclusive, -1 for all)")
		verbose   = flag.Bool("v", false, "log planner output to stderr")
	)
	flag.Parse()

	sessionDir := strings.TrimSpace(*dir)
	if sessionDir == "" {
		if strings.TrimSpace(*sessionID) == "" {
			fmt.Fprintln(os.Stderr, "missing -session or -dir")
			os.Exit(2)
		}
		sessionDir = filepath.Join(*dataDir, "sessions", *sessionID)
	}

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(os.Stderr, "[replay] ", log.LstdFlags|log.Lmicroseconds)
	}

	res, err := replay(sessionDir, *fromTurn, *toTurn, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	start := "init"
	if res.Snapshot != "" {
		start = filepath.Base(res.Snapshot)
	}
	fmt.Printf("replay ok: session=%s checked=%d turns (start=%s, last turn=%d)\n", res.Session, res.Checked, start, res.LastTurn)
}
