package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const logFilePrefix = "registry-"

var numberedLogFile = regexp.MustCompile(`registry-\d{4}-W\d{2}_(\d{2})\.log$`)

// rotatingWriter writes log output to weekly files under dir, starting a
// numbered continuation file when the current one reaches maxSize. Files
// older than the retention window are pruned by a background sweep.
type rotatingWriter struct {
	dir       string
	file      *os.File
	week      string
	retention time.Duration
	maxSize   int64
	size      atomic.Int64
	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	sweepDone chan struct{}
}

func newRotatingWriter(dir string, retentionWeeks int, maxSize int64) *rotatingWriter {
	ctx, cancel := context.WithCancel(context.Background())
	rw := &rotatingWriter{
		dir:       dir,
		retention: time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxSize:   maxSize,
		ctx:       ctx,
		cancel:    cancel,
		sweepDone: make(chan struct{}),
	}
	go rw.sweep()
	return rw
}

// weekKey returns the ISO week in YYYY-Www form.
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func (rw *rotatingWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	week := weekKey(time.Now())
	rotate := rw.week != week
	if !rotate && rw.maxSize > 0 && rw.size.Load()+int64(len(p)) > rw.maxSize {
		rotate = true
		rw.size.Store(rw.maxSize)
	}

	if rotate {
		if err := rw.rotate(week); err != nil {
			return 0, err
		}
	}
	if rw.file == nil {
		return 0, fmt.Errorf("no log file open")
	}

	n, err := rw.file.Write(p)
	rw.size.Add(int64(n))
	return n, err
}

// rotate closes the current file and opens the right one for week. Caller
// holds rw.mu.
func (rw *rotatingWriter) rotate(week string) error {
	if rw.file != nil {
		if err := rw.file.Close(); err != nil {
			slog.Warn("Failed to close log file during rotation", "error", err)
		}
	}

	sizeRotation := rw.maxSize > 0 && rw.size.Load() >= rw.maxSize
	name, fresh := rw.pickFile(week, sizeRotation)

	path := filepath.Join(rw.dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	rw.file = file
	rw.week = week

	if fresh {
		rw.size.Store(0)
	} else if info, err := os.Stat(path); err == nil {
		rw.size.Store(info.Size())
	}
	return nil
}

// pickFile chooses the file name for week: the base weekly file while it has
// room, otherwise the latest numbered continuation with room, otherwise the
// next number in sequence. The second return reports whether the file starts
// empty.
func (rw *rotatingWriter) pickFile(week string, sizeRotation bool) (string, bool) {
	base := fmt.Sprintf("%s%s.log", logFilePrefix, week)

	if !sizeRotation {
		info, err := os.Stat(filepath.Join(rw.dir, base))
		if err != nil || rw.maxSize == 0 || info.Size() < rw.maxSize {
			return base, false
		}
	}

	highest, lastName, lastSize := rw.latestNumbered(week)
	if lastName != "" && lastSize < rw.maxSize {
		return lastName, false
	}
	return fmt.Sprintf("%s%s_%02d.log", logFilePrefix, week, highest+1), true
}

// latestNumbered scans for numbered continuation files of week and returns
// the highest sequence number found with that file's name and size.
func (rw *rotatingWriter) latestNumbered(week string) (int, string, int64) {
	pattern := fmt.Sprintf("%s%s_??.log", logFilePrefix, week)
	matches, _ := filepath.Glob(filepath.Join(rw.dir, pattern))

	highest := 0
	var name string
	var size int64
	for _, match := range matches {
		sub := numberedLogFile.FindStringSubmatch(filepath.Base(match))
		if len(sub) < 2 {
			continue
		}
		num, _ := strconv.Atoi(sub[1])
		if num <= highest {
			continue
		}
		highest = num
		name = filepath.Base(match)
		size = 0
		if info, err := os.Stat(match); err == nil {
			size = info.Size()
		}
	}
	return highest, name, size
}

// prune removes log files whose modification time is past the retention
// window.
func (rw *rotatingWriter) prune() error {
	entries, err := os.ReadDir(rw.dir)
	if err != nil {
		return fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := time.Now().Add(-rw.retention)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(rw.dir, name)); err == nil {
			removed++
		}
	}

	if removed > 0 {
		// Console only; writing through the logger would recurse.
		fmt.Printf("Pruned %d expired log files\n", removed)
	}
	return nil
}

// sweep runs prune once a day until the writer is closed.
func (rw *rotatingWriter) sweep() {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	defer close(rw.sweepDone)

	for {
		select {
		case <-rw.ctx.Done():
			return
		case <-ticker.C:
			if err := rw.prune(); err != nil {
				slog.Warn("Log pruning failed", "error", err)
			}
		}
	}
}

// Close stops the sweep goroutine and closes the current file.
func (rw *rotatingWriter) Close() error {
	rw.cancel()

	select {
	case <-rw.sweepDone:
	case <-time.After(5 * time.Second):
		fmt.Printf("Warning: log sweep goroutine did not stop in time\n")
	}

	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.file != nil {
		return rw.file.Close()
	}
	return nil
}

// setup builds the process logger: text to the console, JSON to rotating
// files, both gated at opts.Level. Falls back to console only when the log
// directory is unusable.
func setup(opts Options) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	console := slog.NewTextHandler(os.Stdout, handlerOpts)

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		logger := slog.New(console)
		logger.Error("Failed to create log directory", "error", err, "dir", opts.Dir)
		return logger
	}

	writer := newRotatingWriter(opts.Dir, opts.RetentionWeeks, opts.MaxFileSize)
	writer.mu.Lock()
	err := writer.rotate(weekKey(time.Now()))
	writer.mu.Unlock()
	if err != nil {
		writer.Close()
		logger := slog.New(console)
		logger.Error("Failed to open log file", "error", err)
		return logger
	}

	return slog.New(&teeHandler{handlers: []slog.Handler{
		console,
		slog.NewJSONHandler(writer, handlerOpts),
	}})
}

// teeHandler fans each record out to every underlying handler.
type teeHandler struct {
	handlers []slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range t.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &teeHandler{handlers: handlers}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &teeHandler{handlers: handlers}
}
