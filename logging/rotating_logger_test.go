package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestGetWeekKey(t *testing.T) {
	got := getWeekKey(time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC))
	if got != "2026-W01" {
		t.Errorf("getWeekKey() = %s, want 2026-W01", got)
	}

	// ISO week of 2027-01-01 still belongs to 2026
	got = getWeekKey(time.Date(2027, time.January, 1, 12, 0, 0, 0, time.UTC))
	if got != "2026-W53" {
		t.Errorf("getWeekKey() = %s, want 2026-W53", got)
	}
}

func TestRotatingLoggerWritesWeeklyFile(t *testing.T) {
	dir := t.TempDir()
	rl := NewRotatingLogger(dir, 4, 0)
	defer rl.Close()

	if _, err := rl.Write([]byte("first line\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	expected := filepath.Join(dir, logFilePrefix+getWeekKey(time.Now())+".log")
	content, err := os.ReadFile(expected)
	if err != nil {
		t.Fatalf("expected log file %s: %v", expected, err)
	}
	if string(content) != "first line\n" {
		t.Errorf("unexpected content: %q", content)
	}
}

func TestRotatingLoggerWithSizeLimit(t *testing.T) {
	dir := t.TempDir()
	rl := NewRotatingLogger(dir, 4, 32)
	defer rl.Close()

	line := []byte(strings.Repeat("x", 20) + "\n")
	for range 3 {
		if _, err := rl.Write(line); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	week := getWeekKey(time.Now())
	matches, _ := filepath.Glob(filepath.Join(dir, logFilePrefix+week+"*.log"))
	if len(matches) != 3 {
		t.Errorf("expected 3 log files after size rotation, got %d: %v", len(matches), matches)
	}
	if _, err := os.Stat(filepath.Join(dir, logFilePrefix+week+"_02.log")); err != nil {
		t.Errorf("expected second numbered file: %v", err)
	}
}

func TestRotatingLoggerReusesFileBelowLimit(t *testing.T) {
	dir := t.TempDir()
	week := getWeekKey(time.Now())
	base := filepath.Join(dir, logFilePrefix+week+".log")
	if err := os.WriteFile(base, []byte("existing\n"), 0640); err != nil {
		t.Fatal(err)
	}

	rl := NewRotatingLogger(dir, 4, 1024)
	defer rl.Close()

	if _, err := rl.Write([]byte("appended\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	content, _ := os.ReadFile(base)
	if string(content) != "existing\nappended\n" {
		t.Errorf("expected append to existing file, got %q", content)
	}
}

func TestRotatingLoggerSkipsFullExistingFile(t *testing.T) {
	dir := t.TempDir()
	week := getWeekKey(time.Now())
	base := filepath.Join(dir, logFilePrefix+week+".log")
	if err := os.WriteFile(base, []byte(strings.Repeat("y", 64)), 0640); err != nil {
		t.Fatal(err)
	}

	rl := NewRotatingLogger(dir, 4, 64)
	defer rl.Close()

	if _, err := rl.Write([]byte("new\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, logFilePrefix+week+"_01.log")); err != nil {
		t.Errorf("expected a numbered file when the weekly file is full: %v", err)
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, logFilePrefix+"2020-W01.log")
	recent := filepath.Join(dir, logFilePrefix+"2099-W01.log")
	unrelated := filepath.Join(dir, "other.log")
	for _, path := range []string{old, recent, unrelated} {
		if err := os.WriteFile(path, []byte("x"), 0640); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-60 * 24 * time.Hour)
	_ = os.Chtimes(old, past, past)
	_ = os.Chtimes(unrelated, past, past)

	rl := NewRotatingLogger(dir, 4, 0)
	defer rl.Close()

	deleted, err := rl.cleanupOldLogs()
	if err != nil {
		t.Fatalf("cleanupOldLogs() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted file, got %d", deleted)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("old log file should have been removed")
	}
	if _, err := os.Stat(recent); err != nil {
		t.Error("recent log file should be kept")
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Error("files without the log prefix should be kept")
	}
}

func TestRotatingLoggerConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	rl := NewRotatingLogger(dir, 4, 0)
	defer rl.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = rl.Write([]byte("line\n"))
			}
		}()
	}
	wg.Wait()

	content, err := os.ReadFile(filepath.Join(dir, logFilePrefix+getWeekKey(time.Now())+".log"))
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(content), "\n"); lines != 1000 {
		t.Errorf("expected 1000 lines, got %d", lines)
	}
}

func TestSetupLoggerWritesJSONToFile(t *testing.T) {
	dir := t.TempDir()
	logger, rl := SetupLogger(dir, Options{Level: slog.LevelDebug, RetentionWeeks: 1})
	if rl == nil {
		t.Fatal("expected a rotating logger when a directory is given")
	}
	defer rl.Close()

	logger.Debug("catalog refreshed", "medicines", 3)

	content, err := os.ReadFile(filepath.Join(dir, logFilePrefix+getWeekKey(time.Now())+".log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), `"msg":"catalog refreshed"`) || !strings.Contains(string(content), `"medicines":3`) {
		t.Errorf("unexpected JSON log content: %s", content)
	}
}

func TestMultiHandlerMethods(t *testing.T) {
	var a, b strings.Builder
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	}}

	logger := slog.New(h).With("component", "resolver").WithGroup("g")
	logger.Info("hello", "k", "v")

	if !strings.Contains(a.String(), "component=resolver") || !strings.Contains(a.String(), "g.k=v") {
		t.Errorf("info handler missing attrs: %s", a.String())
	}
	if b.Len() != 0 {
		t.Errorf("error-level handler should not receive info records: %s", b.String())
	}
}
