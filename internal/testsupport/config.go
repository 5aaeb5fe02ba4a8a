package testsupport

import (
	"path/filepath"
	"testing"

	"dtrack/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose workspace is a unique temp directory.
// Training defaults are shrunk for fast tests and augmentation is off.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.Workspace = filepath.Join(base, "workspace")
	cfgVal.Training.Epochs = 5
	cfgVal.Training.Patience = 3
	cfgVal.Training.BatchSize = 4
	cfgVal.Training.LearningRate = 0.05
	cfgVal.Training.Dropout = 0
	cfgVal.Training.LRMilestones = nil
	cfgVal.Augment.Noise = false
	cfgVal.Augment.TimeStretch = false
	cfgVal.Augment.PitchShift = false
	cfgVal.Logging.Level = "debug"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithModels sets the configured model names.
func WithModels(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Models.Names = names
	}
}

// WithMode selects the training policy.
func WithMode(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Training.Mode = mode
	}
}

// WithEpochs caps training epochs; 0 removes the cap.
func WithEpochs(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Training.Epochs = n
	}
}

// WithNoiseAugmentation enables the noise transform on every sample.
func WithNoiseAugmentation() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Augment.Noise = true
		b.cfg.Augment.NoiseProb = 1
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.Workspace)
}
