package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dtrack/internal/testsupport"
)

type cliTestEnv struct {
	workspace  string
	configPath string
}

func setupCLITestEnv(t *testing.T, models ...string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	workspace := filepath.Join(base, "workspace")
	configPath := filepath.Join(homeDir, ".config", "dtrack", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, workspace, models)
	return &cliTestEnv{workspace: workspace, configPath: configPath}
}

func (e *cliTestEnv) writeTones(t *testing.T, model string) {
	t.Helper()
	testsupport.WriteToneTags(t, filepath.Join(e.workspace, "tags", model),
		testsupport.ToneClass{Label: model, Freq: 5000, Samples: 8},
		testsupport.ToneClass{Label: "quiet", Freq: 150, Amplitude: 0.1, Samples: 8},
	)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path, workspace string, models []string) {
	t.Helper()
	quoted := make([]string, len(models))
	for i, m := range models {
		quoted[i] = fmt.Sprintf("%q", m)
	}
	content := fmt.Sprintf(`[paths]
workspace = %q

[models]
names = [%s]

[training]
epochs = 3
batch_size = 4
learning_rate = 0.05
dropout = 0.0
lr_milestones = []

[augment]
noise = false
time_stretch = false
pitch_shift = false

[logging]
level = "error"
`, workspace, strings.Join(quoted, ", "))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
