package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"dtrack/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	want := filepath.Join(tempHome, ".local", "share", "dtrack")
	if cfg.Paths.Workspace != want {
		t.Fatalf("unexpected workspace: got %q want %q", cfg.Paths.Workspace, want)
	}
	if got := cfg.Layout().ModelsDir(); got != filepath.Join(want, "models") {
		t.Fatalf("unexpected models dir: %q", got)
	}
	if cfg.Training.Mode != config.ModePatience {
		t.Fatalf("unexpected default mode: %q", cfg.Training.Mode)
	}
	if cfg.Training.LearningRate != 0.001 || cfg.Training.Momentum != 0.9 || cfg.Training.Dropout != 0.2 {
		t.Fatalf("unexpected optimizer defaults: %+v", cfg.Training)
	}
	if cfg.Training.TargetAccuracy != 0.95 {
		t.Fatalf("unexpected target accuracy: %v", cfg.Training.TargetAccuracy)
	}
	if len(cfg.Inference.IgnoreLabels) != 3 {
		t.Fatalf("unexpected ignore labels: %v", cfg.Inference.IgnoreLabels)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "dtrack.toml")
	body := `
[paths]
workspace = "` + filepath.ToSlash(filepath.Join(dir, "ws")) + `"

[models]
names = ["bark", " thud ", "bark"]

[training]
mode = "Plateau"
epochs = 0
lr_milestones = [30, 10, 10]

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected file %q to be used, got %q exists=%v", path, resolved, exists)
	}
	if cfg.Paths.Workspace != filepath.Join(dir, "ws") {
		t.Fatalf("unexpected workspace: %q", cfg.Paths.Workspace)
	}
	if strings.Join(cfg.Models.Names, ",") != "bark,thud" {
		t.Fatalf("unexpected model names: %v", cfg.Models.Names)
	}
	if cfg.Training.Mode != config.ModePlateau {
		t.Fatalf("unexpected mode: %q", cfg.Training.Mode)
	}
	if cfg.Training.Epochs != 0 {
		t.Fatalf("expected unbounded epochs, got %d", cfg.Training.Epochs)
	}
	if len(cfg.Training.LRMilestones) != 2 || cfg.Training.LRMilestones[0] != 10 || cfg.Training.LRMilestones[1] != 30 {
		t.Fatalf("unexpected milestones: %v", cfg.Training.LRMilestones)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging: %+v", cfg.Logging)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "dtrack.toml")
	body := "[training]\nlearning_rate = 0.5\nmode = \"patience\"\n[models]\nnames = [\"bark\"]\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DTRACK_TRAIN_RATE", "0.01")
	t.Setenv("DTRACK_TRAIN_MODE", "plateau")
	t.Setenv("DTRACK_MODELS", "thud, chirp")
	t.Setenv("DTRACK_WORKSPACE", filepath.Join(dir, "env-ws"))

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Training.LearningRate != 0.01 {
		t.Fatalf("expected env learning rate, got %v", cfg.Training.LearningRate)
	}
	if cfg.Training.Mode != config.ModePlateau {
		t.Fatalf("expected env mode, got %q", cfg.Training.Mode)
	}
	if strings.Join(cfg.Models.Names, ",") != "thud,chirp" {
		t.Fatalf("expected env models, got %v", cfg.Models.Names)
	}
	if cfg.Paths.Workspace != filepath.Join(dir, "env-ws") {
		t.Fatalf("expected env workspace, got %q", cfg.Paths.Workspace)
	}
}

func TestEnvOverrideRejectsBadNumber(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("DTRACK_TRAIN_EPOCHS", "many")
	_, _, _, err := config.Load("")
	if err == nil || !strings.Contains(err.Error(), "DTRACK_TRAIN_EPOCHS") {
		t.Fatalf("expected DTRACK_TRAIN_EPOCHS error, got %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "dtrack.toml")
	if err := os.WriteFile(path, []byte("[training]\nlearnin_rate = 0.1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected parse error for misspelled key")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"mode":           func(c *config.Config) { c.Training.Mode = "forever" },
		"batch size":     func(c *config.Config) { c.Training.BatchSize = 0 },
		"negative epoch": func(c *config.Config) { c.Training.Epochs = -1 },
		"dropout":        func(c *config.Config) { c.Training.Dropout = 1 },
		"target":         func(c *config.Config) { c.Training.TargetAccuracy = 1.5 },
		"fraction":       func(c *config.Config) { c.Training.ValidationFraction = 0 },
		"device":         func(c *config.Config) { c.Training.Device = "tpu" },
		"model name":     func(c *config.Config) { c.Models.Names = []string{"../up"} },
		"noise prob":     func(c *config.Config) { c.Augment.NoiseProb = 2 },
		"log format":     func(c *config.Config) { c.Logging.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.Workspace = t.TempDir()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestSampleConfigParsesAndValidates(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path, config.SampleOptions{}); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	def := config.Default()
	if cfg.Training.Patience != def.Training.Patience || cfg.Augment.StretchMax != def.Augment.StretchMax {
		t.Fatalf("sample drifted from defaults: %+v", cfg.Training)
	}
}

func TestSampleConfigSeeded(t *testing.T) {
	workspace := filepath.Join(t.TempDir(), "it's a workspace")
	path := filepath.Join(t.TempDir(), "config.toml")
	opts := config.SampleOptions{Workspace: workspace, Models: []string{"bark", "thud"}}
	if err := config.CreateSample(path, opts); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load seeded sample: %v", err)
	}
	if cfg.Paths.Workspace != workspace {
		t.Fatalf("workspace = %q, want %q", cfg.Paths.Workspace, workspace)
	}
	if strings.Join(cfg.Models.Names, ",") != "bark,thud" {
		t.Fatalf("models = %v", cfg.Models.Names)
	}
}

func TestAugmentOptions(t *testing.T) {
	cfg := config.Default()
	opts := cfg.AugmentOptions(7)
	if opts.Seed != 7 || !opts.Noise || opts.StretchMin != 0.8 {
		t.Fatalf("unexpected options: %+v", opts)
	}
}

func TestEnvKeysArePrefixed(t *testing.T) {
	for _, key := range config.EnvKeys() {
		if !strings.HasPrefix(key, config.EnvPrefix) {
			t.Fatalf("key %q missing prefix", key)
		}
	}
}
