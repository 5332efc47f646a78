package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	persistlog "prospector.ai/internal/persistence/log"
	"prospector.ai/internal/persistence/session"
	"prospector.ai/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "turns":
			turnsCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		case "live":
			liveCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

type sessionSummary struct {
	ID        string `json:"id"`
	Bot       string `json:"bot"`
	Map       string `json:"map"`
	Players   int    `json:"players"`
	Turns     int    `json:"turns"`
	Aborted   int    `json:"aborted"`
	Snapshots int    `json:"snapshots"`
	Size      string `json:"size"`
}

func summarize(dataDir, id string) (sessionSummary, error) {
	dir := session.Dir(dataDir, id)
	sum := sessionSummary{ID: id}
	m, _, err := session.ReadManifest(dir)
	if err != nil {
		return sum, err
	}
	sum.Bot = m.Bot
	sum.Map = fmt.Sprintf("%dx%d", m.Init.Width, m.Init.Height)
	sum.Players = m.Init.Players
	err = persistlog.Scan(persistlog.TurnsDir(dir), persistlog.TurnPrefix, func(e persistlog.TurnEntry) error {
		sum.Turns++
		if e.Aborted != "" {
			sum.Aborted++
		}
		return nil
	})
	if err != nil {
		return sum, err
	}
	snaps, _ := filepath.Glob(filepath.Join(dir, "snapshots", "*.snap.zst"))
	sum.Snapshots = len(snaps)
	size, err := dirSize(dir)
	if err != nil {
		return sum, err
	}
	sum.Size = humanize.Bytes(uint64(size))
	return sum, nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	sessionID := fs.String("session", "", "session id (optional)")
	_ = fs.Parse(args)

	ids := []string{*sessionID}
	if strings.TrimSpace(*sessionID) == "" {
		var err error
		ids, err = session.List(*dataDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
	}
	for _, id := range ids {
		sum, err := summarize(*dataDir, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", id, err)
			continue
		}
		printJSON(sum)
	}
}

func turnsCmd(args []string) {
	fs := flag.NewFlagSet("turns", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	sessionID := fs.String("session", "", "session id")
	turn := fs.Int("turn", -1, "print the full entry of one turn (optional)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*sessionID) == "" {
		fmt.Fprintln(os.Stderr, "missing -session")
		os.Exit(2)
	}
	dir := session.Dir(*dataDir, *sessionID)
	err := persistlog.Scan(persistlog.TurnsDir(dir), persistlog.TurnPrefix, func(e persistlog.TurnEntry) error {
		if *turn >= 0 {
			if e.Turn == *turn {
				printJSON(e)
			}
			return nil
		}
		fmt.Printf("turn %4d  %-8s cmds=%-3d rerouted=%-2d failures=%-2d %s %q\n",
			e.Turn, fmt.Sprintf("%.2fms", e.DurationMs), len(e.Plan.Commands), len(e.Plan.Rerouted), len(e.Plan.Failures), e.Digest[:min(12, len(e.Digest))], e.Aborted)
		return nil
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "scan:", err)
		os.Exit(1)
	}
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	path := fs.String("path", "", "path to .snap.zst")
	dataDir := fs.String("data", "./data", "runtime data directory")
	sessionID := fs.String("session", "", "session id (uses the latest snapshot when -path is empty)")
	_ = fs.Parse(args)

	p := strings.TrimSpace(*path)
	if p == "" {
		if strings.TrimSpace(*sessionID) == "" {
			fmt.Fprintln(os.Stderr, "missing -path or -session")
			os.Exit(2)
		}
		latest, err := snapshot.Latest(session.Dir(*dataDir, *sessionID), -1)
		if err != nil || latest == "" {
			fmt.Fprintln(os.Stderr, "no snapshot found", err)
			os.Exit(1)
		}
		p = latest
	}
	snap, err := snapshot.ReadSnapshot(p)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	info, _ := os.Stat(p)
	var size string
	if info != nil {
		size = humanize.Bytes(uint64(info.Size()))
	}
	total := 0
	for _, v := range snap.Cells {
		total += v
	}
	fmt.Printf("snapshot v%d session=%s turn=%d map=%dx%d units=%d bases=%d enemy_bases=%d halite=%s memory_units=%d endgame=%v size=%s\n",
		snap.Header.Version, snap.Header.Session, snap.Header.Turn, snap.Width, snap.Height,
		len(snap.Units), len(snap.MyBases), len(snap.EnemyBases), humanize.Comma(int64(total)),
		len(snap.Memory.Units), snap.Memory.Endgame, size)
}
