package offload

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Putter is the upload half of Client.
type Putter interface {
	PutFile(ctx context.Context, key, localPath string) error
}

type Stats struct {
	Queued   uint64
	Dropped  uint64
	Uploaded uint64
	Failed   uint64
}

// Uploader copies session artifacts to a bucket in the background. Object
// keys mirror the path below the data directory.
type Uploader struct {
	put     Putter
	dataDir string
	prefix  string
	logger  *log.Logger

	jobs     chan string
	wait     time.Duration
	attempts int
	backoff  time.Duration
	wg       sync.WaitGroup
	once     sync.Once

	queued   atomic.Uint64
	dropped  atomic.Uint64
	uploaded atomic.Uint64
	failed   atomic.Uint64
}

func NewUploader(put Putter, dataDir, prefix string, workers int, logger *log.Logger) *Uploader {
	workers = max(1, workers)
	u := &Uploader{
		put:      put,
		dataDir:  dataDir,
		prefix:   strings.Trim(strings.ReplaceAll(prefix, "\\", "/"), "/"),
		logger:   logger,
		jobs:     make(chan string, 1024),
		wait:     25 * time.Millisecond,
		attempts: 4,
		backoff:  200 * time.Millisecond,
	}
	for i := 0; i < workers; i++ {
		u.wg.Add(1)
		go func() {
			defer u.wg.Done()
			for p := range u.jobs {
				u.upload(p)
			}
		}()
	}
	return u
}

// Enqueue schedules one file. A full queue waits briefly, then drops the
// file so the turn loop never stalls.
func (u *Uploader) Enqueue(localPath string) {
	if u == nil {
		return
	}
	u.queued.Add(1)
	select {
	case u.jobs <- localPath:
		return
	default:
	}
	t := time.NewTimer(u.wait)
	defer t.Stop()
	select {
	case u.jobs <- localPath:
	case <-t.C:
		n := u.dropped.Add(1)
		u.printf("offload drop %s (dropped=%d)", localPath, n)
	}
}

// EnqueueSession schedules every regular file under a session directory.
func (u *Uploader) EnqueueSession(sessionDir string) error {
	if u == nil {
		return nil
	}
	return filepath.WalkDir(sessionDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			u.Enqueue(p)
		}
		return nil
	})
}

// Close drains the queue and waits for in-flight uploads.
func (u *Uploader) Close() {
	if u == nil {
		return
	}
	u.once.Do(func() { close(u.jobs) })
	u.wg.Wait()
}

func (u *Uploader) Stats() Stats {
	if u == nil {
		return Stats{}
	}
	return Stats{
		Queued:   u.queued.Load(),
		Dropped:  u.dropped.Load(),
		Uploaded: u.uploaded.Load(),
		Failed:   u.failed.Load(),
	}
}

func (u *Uploader) upload(localPath string) {
	key, err := u.Key(localPath)
	if err != nil {
		u.failed.Add(1)
		u.printf("offload skip %s: %v", localPath, err)
		return
	}
	var last error
	for attempt := 1; attempt <= u.attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		last = u.put.PutFile(ctx, key, localPath)
		cancel()
		if last == nil {
			u.uploaded.Add(1)
			return
		}
		if attempt < u.attempts {
			time.Sleep(time.Duration(attempt*attempt) * u.backoff)
		}
	}
	u.failed.Add(1)
	u.printf("offload %s failed: %v", key, last)
}

// Key maps a local path below the data directory to its object key.
func (u *Uploader) Key(localPath string) (string, error) {
	base, err := filepath.Abs(u.dataDir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside %s", abs, base)
	}
	if u.prefix != "" {
		rel = path.Join(u.prefix, rel)
	}
	return rel, nil
}

func (u *Uploader) printf(format string, args ...any) {
	if u.logger != nil {
		u.logger.Printf(format, args...)
	}
}
