package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dtrack/internal/dataset"
	"dtrack/internal/registry"
	"dtrack/internal/testsupport"
)

type fakeCheckpoint struct{ classes int }

func (f fakeCheckpoint) MarshalBinary() ([]byte, error) { return []byte(`{"kind":"bogus"}`), nil }

func (f fakeCheckpoint) NumClasses() int { return f.classes }

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckTags_OK(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteToneTags(t, dir,
		testsupport.ToneClass{Label: "bark", Freq: 3000, Samples: 2},
		testsupport.ToneClass{Label: "quiet", Freq: 100, Samples: 3},
	)
	if err := os.MkdirAll(filepath.Join(dir, "thud"), 0o755); err != nil {
		t.Fatal(err)
	}
	result := CheckTags("bark", dir)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "3 classes, 5 samples") || !strings.Contains(result.Detail, "empty: thud") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckTags_SingleClass(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteToneTags(t, dir, testsupport.ToneClass{Label: "bark", Freq: 3000, Samples: 2})
	result := CheckTags("bark", dir)
	if result.Passed {
		t.Fatal("expected failure for a single class folder")
	}
	if !strings.Contains(result.Detail, "need at least 2") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckTags_Missing(t *testing.T) {
	result := CheckTags("bark", filepath.Join(t.TempDir(), "missing"))
	if result.Passed {
		t.Fatal("expected failure for missing tags dir")
	}
}

func TestCheckModel(t *testing.T) {
	reg := registry.New(filepath.Join(t.TempDir(), "models"), nil)

	result := CheckModel(reg, "bark")
	if !result.Passed || result.Detail != "Not trained yet" {
		t.Fatalf("untrained model: %+v", result)
	}

	if err := reg.Save("bark", dataset.Catalog{"bark", "quiet"}, fakeCheckpoint{classes: 2}); err != nil {
		t.Fatal(err)
	}
	result = CheckModel(reg, "bark")
	if result.Passed {
		t.Fatalf("expected failure for undecodable checkpoint, got %+v", result)
	}
	if !strings.HasPrefix(result.Detail, "unusable") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckTagsRoot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if result := CheckTagsRoot(cfg.Layout()); result.Passed {
		t.Fatalf("expected failure without tags dir, got %s", result.Detail)
	}
	if err := os.MkdirAll(cfg.Layout().TagsDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	if result := CheckTagsRoot(cfg.Layout()); !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
}

func TestCheckHistory(t *testing.T) {
	result := CheckHistory(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	if !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
	if !strings.HasSuffix(result.Detail, "(empty)") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_Workspace(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModels("bark"))
	if err := cfg.Layout().Ensure(); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteToneTags(t, filepath.Join(cfg.Layout().TagsDir(), "bark"),
		testsupport.ToneClass{Label: "bark", Freq: 3000, Samples: 2},
		testsupport.ToneClass{Label: "quiet", Freq: 100, Samples: 2},
	)

	results := RunAll(context.Background(), cfg)
	// workspace + models + tags root + device + history + tags + model
	if len(results) != 7 {
		t.Fatalf("expected 7 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		for _, r := range failed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
}
