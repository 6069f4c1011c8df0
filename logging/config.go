package logging

import (
	"context"
	"fmt"
	"io"
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

const logFilePrefix = "meditrust-"

var numberedLogFileRegex = regexp.MustCompile(`^` + logFilePrefix + `\d{4}-W\d{2}_(\d{2})\.log$`)

// RotatingLogger writes to one log file per ISO week, starting a numbered
// file when the size limit is reached, and removes files past retention.
type RotatingLogger struct {
	logDir      string
	currentFile *os.File
	currentWeek string
	retention   time.Duration
	maxFileSize int64
	currentSize atomic.Int64
	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	cleanupDone chan struct{}
	cleaning    atomic.Bool
}

// NewRotatingLogger creates a rotating logger. A maxFileSize of 0 disables size rotation.
func NewRotatingLogger(logDir string, retentionWeeks int, maxFileSize int64) *RotatingLogger {
	ctx, cancel := context.WithCancel(context.Background())
	return &RotatingLogger{
		logDir:      logDir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		ctx:         ctx,
		cancel:      cancel,
		cleanupDone: make(chan struct{}),
	}
}

// getWeekKey returns the week key in YYYY-Www format (ISO week)
func getWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// rotate opens the file to write to for targetWeek (caller must hold the lock)
func (rl *RotatingLogger) rotate(targetWeek string, sizeExceeded bool) error {
	if rl.currentFile != nil {
		if err := rl.currentFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file during rotation: %v\n", err)
		}
		rl.currentFile = nil
	}

	fileName := rl.fileNameFor(targetWeek, sizeExceeded)
	logPath := filepath.Join(rl.logDir, fileName)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}

	rl.currentFile = file
	rl.currentWeek = targetWeek
	rl.currentSize.Store(0)
	if info, err := file.Stat(); err == nil {
		rl.currentSize.Store(info.Size())
	}

	return nil
}

// fileNameFor picks the base weekly file while it has room, then numbered files
func (rl *RotatingLogger) fileNameFor(week string, sizeExceeded bool) string {
	base := fmt.Sprintf("%s%s.log", logFilePrefix, week)
	if !sizeExceeded && !rl.isFull(filepath.Join(rl.logDir, base)) {
		return base
	}

	pattern := filepath.Join(rl.logDir, fmt.Sprintf("%s%s_??.log", logFilePrefix, week))
	matches, _ := filepath.Glob(pattern)

	highest := 0
	lastPath := ""
	for _, match := range matches {
		sub := numberedLogFileRegex.FindStringSubmatch(filepath.Base(match))
		if len(sub) < 2 {
			continue
		}
		if num, err := strconv.Atoi(sub[1]); err == nil && num > highest {
			highest, lastPath = num, match
		}
	}

	if lastPath != "" && !sizeExceeded && !rl.isFull(lastPath) {
		return filepath.Base(lastPath)
	}
	return fmt.Sprintf("%s%s_%02d.log", logFilePrefix, week, highest+1)
}

func (rl *RotatingLogger) isFull(path string) bool {
	if rl.maxFileSize <= 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Size() >= rl.maxFileSize
}

// Write writes data to the current log file, rotating first when needed
func (rl *RotatingLogger) Write(p []byte) (int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	week := getWeekKey(time.Now())
	sizeExceeded := rl.maxFileSize > 0 && rl.currentSize.Load()+int64(len(p)) > rl.maxFileSize && rl.currentSize.Load() > 0

	if rl.currentFile == nil || rl.currentWeek != week || sizeExceeded {
		if err := rl.rotate(week, sizeExceeded && rl.currentWeek == week); err != nil {
			return 0, err
		}
	}

	n, err := rl.currentFile.Write(p)
	rl.currentSize.Add(int64(n))
	return n, err
}

// cleanupOldLogs removes log files older than the retention period
func (rl *RotatingLogger) cleanupOldLogs() (int, error) {
	entries, err := os.ReadDir(rl.logDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := time.Now().Add(-rl.retention)
	deleted := 0

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(rl.logDir, name)); err == nil {
				deleted++
			}
		}
	}

	return deleted, nil
}

// startCleanup runs the retention cleanup once a day until Close is called
func (rl *RotatingLogger) startCleanup() {
	rl.cleaning.Store(true)
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		defer close(rl.cleanupDone)

		for {
			select {
			case <-rl.ctx.Done():
				return
			case <-ticker.C:
				if deleted, err := rl.cleanupOldLogs(); err != nil {
					fmt.Fprintf(os.Stderr, "failed to cleanup old logs: %v\n", err)
				} else if deleted > 0 {
					// Console only, logging here would recurse into Write
					fmt.Printf("Cleaned up %d old log files\n", deleted)
				}
			}
		}
	}()
}

// Close stops the background cleanup and closes the current file
func (rl *RotatingLogger) Close() error {
	rl.cancel()

	if rl.cleaning.Load() {
		select {
		case <-rl.cleanupDone:
		case <-time.After(time.Second):
		}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.currentFile != nil {
		err := rl.currentFile.Close()
		rl.currentFile = nil
		return err
	}
	return nil
}

// Options configures SetupLogger
type Options struct {
	Level          slog.Level
	RetentionWeeks int
	MaxFileSize    int64
	Console        io.Writer // Defaults to stdout
}

// DefaultOptions mirrors the configuration defaults
func DefaultOptions() Options {
	return Options{
		Level:          slog.LevelInfo,
		RetentionWeeks: 4,
		MaxFileSize:    100 * 1024 * 1024,
	}
}

// ParseLevel converts a LOG_LEVEL value to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger builds a logger writing text to the console and, when logDir is
// not empty, JSON to a rotating file. The returned RotatingLogger is nil for
// console-only loggers.
func SetupLogger(logDir string, opts Options) (*slog.Logger, *RotatingLogger) {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	consoleHandler := slog.NewTextHandler(console, &slog.HandlerOptions{Level: opts.Level})

	if logDir == "" {
		return slog.New(consoleHandler), nil
	}

	if err := os.MkdirAll(logDir, 0750); err != nil {
		logger := slog.New(consoleHandler)
		logger.Error("Failed to create logs directory", "error", err)
		return logger, nil
	}

	rotatingLogger := NewRotatingLogger(logDir, opts.RetentionWeeks, opts.MaxFileSize)
	rotatingLogger.startCleanup()

	fileHandler := slog.NewJSONHandler(rotatingLogger, &slog.HandlerOptions{Level: opts.Level})

	return slog.New(&multiHandler{handlers: []slog.Handler{consoleHandler, fileHandler}}), rotatingLogger
}

// multiHandler implements slog.Handler to write to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}
