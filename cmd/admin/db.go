package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"prospector.ai/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional; defaults to <data>/index/bot.sqlite)")
	sessionID := fs.String("session", "", "session id (required for turns/failures/counts)")
	fromTurn := fs.Int("from_turn", 0, "first turn (turns)")
	code := fs.String("code", "", "failure code filter (failures)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "sessions"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "bot.sqlite")
	}
	db, err := indexdb.OpenReadOnly(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if q != "sessions" && strings.TrimSpace(*sessionID) == "" {
		fmt.Fprintln(os.Stderr, "missing -session")
		os.Exit(2)
	}

	switch q {
	case "sessions":
		rows, err := indexdb.Sessions(ctx, db, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, r := range rows {
			printJSON(struct {
				indexdb.SessionRow
				Age string `json:"age,omitempty"`
			}{r, since(r.StartedAt)})
		}

	case "turns":
		rows, err := indexdb.Turns(ctx, db, *sessionID, *fromTurn, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, r := range rows {
			printJSON(r)
		}

	case "failures":
		rows, err := indexdb.Failures(ctx, db, *sessionID, *code, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, r := range rows {
			printJSON(r)
		}

	case "counts":
		counts, err := indexdb.FailureCounts(ctx, db, *sessionID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for code, n := range counts {
			fmt.Printf("%-22s %s\n", code, humanize.Comma(int64(n)))
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(sessions|turns|failures|counts)")
		os.Exit(2)
	}
}

// since renders an RFC3339 timestamp as a relative age.
func since(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ""
	}
	return humanize.Time(t)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
