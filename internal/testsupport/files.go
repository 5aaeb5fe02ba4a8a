package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteCorruptSample writes a raw sample file with an odd byte count, which
// can never decode as 16-bit PCM.
func WriteCorruptSample(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte{0x42, 0x42, 0x42}, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
