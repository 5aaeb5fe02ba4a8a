package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"dtrack/internal/logs"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append log: %v", err)
	}
}

func TestTailLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dtrack.log")
	writeLog(t, path, "a\nb\nc\n")

	chunk, err := logs.Tail(path, 2)
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if len(chunk.Lines) != 2 || chunk.Lines[0] != "b" || chunk.Lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", chunk.Lines)
	}
	if chunk.Offset != 6 {
		t.Fatalf("offset = %d, want 6", chunk.Offset)
	}

	chunk, err = logs.Tail(path, 10)
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if len(chunk.Lines) != 3 {
		t.Fatalf("expected all lines, got %#v", chunk.Lines)
	}
}

func TestTailMissingFile(t *testing.T) {
	chunk, err := logs.Tail(filepath.Join(t.TempDir(), "none.log"), 5)
	if err != nil {
		t.Fatalf("tail missing file: %v", err)
	}
	if len(chunk.Lines) != 0 || chunk.Offset != 0 {
		t.Fatalf("unexpected chunk %#v", chunk)
	}
}

func TestReadFromLeavesPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dtrack.log")
	writeLog(t, path, "one\ntw")

	chunk, err := logs.ReadFrom(path, 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(chunk.Lines) != 1 || chunk.Lines[0] != "one" || chunk.Offset != 4 {
		t.Fatalf("unexpected chunk %#v", chunk)
	}

	appendLog(t, path, "o\n")
	chunk, err = logs.ReadFrom(path, chunk.Offset)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(chunk.Lines) != 1 || chunk.Lines[0] != "two" {
		t.Fatalf("unexpected lines %#v", chunk.Lines)
	}

	chunk, err = logs.ReadFrom(path, 1<<20)
	if err != nil {
		t.Fatalf("read past end: %v", err)
	}
	if len(chunk.Lines) != 2 {
		t.Fatalf("expected restart after truncation, got %#v", chunk.Lines)
	}
}

func TestFollowStreamsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dtrack.log")
	writeLog(t, path, "start\n")

	initial, err := logs.Tail(path, 1)
	if err != nil {
		t.Fatalf("initial tail: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var (
		mu  sync.Mutex
		got []string
	)
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, initial.Offset, 20*time.Millisecond, func(lines []string) error {
			mu.Lock()
			got = append(got, lines...)
			mu.Unlock()
			if len(got) > 0 {
				cancel()
			}
			return nil
		})
	}()

	time.Sleep(50 * time.Millisecond)
	appendLog(t, path, "later\n")

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("follow: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not return")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "later" {
		t.Fatalf("unexpected follow lines %#v", got)
	}
}

func TestLatestPicksNewestRunLog(t *testing.T) {
	dir := t.TempDir()
	if path, err := logs.Latest(dir, "train-*.log"); err != nil || path != "" {
		t.Fatalf("empty dir: %q %v", path, err)
	}

	older := filepath.Join(dir, "train-20260101T000000.log")
	newer := filepath.Join(dir, "train-20260102T000000.log")
	writeLog(t, older, "x\n")
	writeLog(t, newer, "y\n")
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	writeLog(t, filepath.Join(dir, "other.log"), "z\n")

	path, err := logs.Latest(dir, "train-*.log")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if path != newer {
		t.Fatalf("latest = %q, want %q", path, newer)
	}
}
