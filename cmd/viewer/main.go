package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	persistlog "prospector.ai/internal/persistence/log"
	"prospector.ai/internal/persistence/session"
)

func main() {
	var (
		dataDir   = flag.String("data", "./data", "runtime data directory")
		sessionID = flag.String("session", "", "session id")
		dir       = flag.String("dir", "", "session directory (overrides -data/-session)")
		startTurn = flag.Int("turn", 0, "turn to open at")
		speed     = flag.Duration("speed", 150*time.Millisecond, "autoplay step interval")
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

	m, _, err := session.ReadManifest(sessionDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "manifest:", err)
		os.Exit(1)
	}
	entries, err := persistlog.ReadTurns(sessionDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "turns:", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "session has no turns")
		os.Exit(1)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintln(os.Stderr, "screen:", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "screen init:", err)
		os.Exit(1)
	}
	defer screen.Fini()

	v := newViewer(m, entries)
	if err := v.seek(*startTurn); err != nil {
		screen.Fini()
		fmt.Fprintln(os.Stderr, "seek:", err)
		os.Exit(1)
	}
	v.run(screen, *speed)
}

func (v *viewer) run(screen tcell.Screen, speed time.Duration) {
	ticker := time.NewTicker(speed)
	defer ticker.Stop()

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	v.draw(screen)
	for {
		select {
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if !v.handleKey(ev) {
					return
				}
			case *tcell.EventResize:
				screen.Sync()
			}
			v.draw(screen)
		case <-ticker.C:
			if v.playing {
				if v.idx+1 >= len(v.entries) {
					v.playing = false
				} else {
					_ = v.seek(v.idx + 1)
				}
				v.draw(screen)
			}
		}
	}
}
