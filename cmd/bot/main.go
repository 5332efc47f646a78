package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"prospector.ai/internal/persistence/offload"
	"prospector.ai/internal/tuning"
)

func main() {
	var (
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		dataDir    = flag.String("data", envOr("PROSPECTOR_DATA", "./data"), "runtime data directory")
		observe    = flag.String("observe", os.Getenv("PROSPECTOR_OBSERVE"), "observer listen address, e.g. 127.0.0.1:8081 (empty to disable)")
		name       = flag.String("name", "", "bot name announced to the engine (default: tuning bot_name)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite session index")
		quiet      = flag.Bool("quiet", false, "log to the session file only, not stderr")

		offEndpoint = flag.String("offload_endpoint", os.Getenv("PROSPECTOR_OFFLOAD_ENDPOINT"), "S3 compatible endpoint for session offload (empty to disable)")
		offBucket   = flag.String("offload_bucket", os.Getenv("PROSPECTOR_OFFLOAD_BUCKET"), "offload bucket")
		offRegion   = flag.String("offload_region", os.Getenv("PROSPECTOR_OFFLOAD_REGION"), "offload region (default auto)")
		offPrefix   = flag.String("offload_prefix", os.Getenv("PROSPECTOR_OFFLOAD_PREFIX"), "object key prefix")
	)
	flag.Parse()

	session := uuid.NewString()
	sessionDir := filepath.Join(*dataDir, "sessions", session)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		log.New(os.Stderr, "[bot] ", log.LstdFlags).Fatalf("session dir: %v", err)
	}
	logFile, err := os.OpenFile(filepath.Join(sessionDir, "bot.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.New(os.Stderr, "[bot] ", log.LstdFlags).Fatalf("open log: %v", err)
	}
	defer logFile.Close()

	// stdout carries the engine protocol; never log there.
	var sink io.Writer = io.MultiWriter(logFile, os.Stderr)
	if *quiet {
		sink = logFile
	}
	logger := log.New(sink, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}
	if n := strings.TrimSpace(*name); n != "" {
		tune.BotName = n
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var upload *offload.Uploader
	offCfg := offload.Config{
		Endpoint:  *offEndpoint,
		Bucket:    *offBucket,
		Region:    *offRegion,
		AccessKey: os.Getenv("PROSPECTOR_OFFLOAD_ACCESS_KEY"),
		SecretKey: os.Getenv("PROSPECTOR_OFFLOAD_SECRET_KEY"),
		Prefix:    *offPrefix,
	}
	if offCfg.Enabled() {
		client, err := offload.NewClient(offCfg)
		if err != nil {
			logger.Fatalf("offload: %v", err)
		}
		upload = offload.NewUploader(client, *dataDir, offCfg.Prefix, 2, logger)
		defer upload.Close()
	}

	cfg := runConfig{
		Session:     session,
		SessionDir:  sessionDir,
		DBPath:      filepath.Join(*dataDir, "index", "bot.sqlite"),
		ObserveAddr: strings.TrimSpace(*observe),
		DisableDB:   *disableDB,
		Tune:        tune,
		Upload:      upload,
	}
	logger.Printf("session %s starting (data=%s)", session, sessionDir)
	if err := run(ctx, cfg, os.Stdin, os.Stdout, logger); err != nil {
		logger.Fatalf("session %s: %v", session, err)
	}
	logger.Printf("session %s finished", session)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
