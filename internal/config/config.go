package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"dtrack/internal/augment"
	"dtrack/internal/workspace"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains workspace location.
type Paths struct {
	Workspace string `toml:"workspace"`
}

// Models lists the detectors trained and queried by default.
type Models struct {
	Names []string `toml:"names"`
}

// Training contains optimizer and stopping-policy settings.
type Training struct {
	Mode               string  `toml:"mode"`
	BatchSize          int     `toml:"batch_size"`
	LearningRate       float64 `toml:"learning_rate"`
	Epochs             int     `toml:"epochs"`
	Patience           int     `toml:"patience"`
	Dropout            float64 `toml:"dropout"`
	Momentum           float64 `toml:"momentum"`
	TargetAccuracy     float64 `toml:"target_accuracy"`
	ValidationFraction float64 `toml:"validation_fraction"`
	Seed               uint64  `toml:"seed"`
	ParallelModels     int     `toml:"parallel_models"`
	ExportONNX         bool    `toml:"export_onnx"`
	LRMilestones       []int   `toml:"lr_milestones"`
	LRDecay            float64 `toml:"lr_decay"`
	Device             string  `toml:"device"`
}

// Augment toggles the training-time waveform transforms.
type Augment struct {
	Noise          bool    `toml:"noise"`
	NoiseProb      float64 `toml:"noise_prob"`
	NoiseAmplitude float64 `toml:"noise_amplitude"`
	TimeStretch    bool    `toml:"time_stretch"`
	StretchProb    float64 `toml:"stretch_prob"`
	StretchMin     float64 `toml:"stretch_min"`
	StretchMax     float64 `toml:"stretch_max"`
	PitchShift     bool    `toml:"pitch_shift"`
	PitchProb      float64 `toml:"pitch_prob"`
	PitchSemitones float64 `toml:"pitch_semitones"`
}

// Inference contains result filtering settings.
type Inference struct {
	IgnoreLabels []string `toml:"ignore_labels"`
}

// Logging contains log output configuration.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for dtrack.
//
// Sections:
//   - Paths: workspace root
//   - Models: detector names
//   - Training: optimizer, stopping policy, parallelism, export
//   - Augment: noise, time-stretch, and pitch-shift toggles
//   - Inference: labels that never count as a detection
//   - Logging: format, level, retention
type Config struct {
	Paths     Paths     `toml:"paths"`
	Models    Models    `toml:"models"`
	Training  Training  `toml:"training"`
	Augment   Augment   `toml:"augment"`
	Inference Inference `toml:"inference"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/dtrack/config.toml")
}

// Load locates, parses, and validates a configuration file. Values come from
// defaults, then the file, then DTRACK_* environment variables. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("dtrack.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// Layout returns the workspace layout rooted at Paths.Workspace.
func (c *Config) Layout() workspace.Layout {
	return workspace.New(c.Paths.Workspace)
}

// EnsureDirectories creates the workspace directories dtrack writes into.
func (c *Config) EnsureDirectories() error {
	return c.Layout().Ensure()
}

// AugmentOptions converts the augment section for a training run seeded with seed.
func (c *Config) AugmentOptions(seed uint64) augment.Options {
	a := c.Augment
	return augment.Options{
		Noise:          a.Noise,
		NoiseProb:      a.NoiseProb,
		NoiseAmplitude: a.NoiseAmplitude,
		TimeStretch:    a.TimeStretch,
		StretchProb:    a.StretchProb,
		StretchMin:     a.StretchMin,
		StretchMax:     a.StretchMax,
		PitchShift:     a.PitchShift,
		PitchProb:      a.PitchProb,
		PitchSemitones: a.PitchSemitones,
		Seed:           seed,
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleOptions seeds values into the generated sample configuration.
type SampleOptions struct {
	Workspace string
	Models    []string
}

// CreateSample writes the commented sample configuration to path, replacing
// the workspace and model names when opts sets them.
func CreateSample(path string, opts SampleOptions) error {
	content := sampleConfig
	if opts.Workspace != "" {
		line, err := tomlLine("workspace", opts.Workspace)
		if err != nil {
			return err
		}
		content = strings.Replace(content, `workspace = "~/.local/share/dtrack"`, line, 1)
	}
	if len(opts.Models) > 0 {
		line, err := tomlLine("names", opts.Models)
		if err != nil {
			return err
		}
		content = strings.Replace(content, "names = []", line, 1)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func tomlLine(key string, value any) (string, error) {
	data, err := toml.Marshal(map[string]any{key: value})
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", key, err)
	}
	return strings.TrimSpace(string(data)), nil
}
