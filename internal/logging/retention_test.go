package logging_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"dtrack/internal/logging"
)

func TestPruneRunLogs(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().AddDate(0, 0, -10)
	write := func(name string, mod time.Time) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatalf("chtimes %s: %v", name, err)
		}
		return path
	}
	stale := write("train-20260101T000000.log", old)
	current := write("train-20260102T000000.log", old)
	fresh := write("train-20260103T000000.log", time.Now())
	other := write("notes.log", old)

	if n := logging.PruneRunLogs(logging.NewNop(), dir, "train-*.log", current, 0); n != 0 {
		t.Fatalf("retention 0 removed %d files", n)
	}
	if n := logging.PruneRunLogs(logging.NewNop(), dir, "train-*.log", current, 7); n != 1 {
		t.Fatalf("removed %d files, want 1", n)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected %s removed, stat err %v", stale, err)
	}
	for _, path := range []string{current, fresh, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}
}
