package config

import (
	"errors"
	"fmt"

	"dtrack/internal/textutil"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateModels(); err != nil {
		return err
	}
	if err := c.validateTraining(); err != nil {
		return err
	}
	if err := c.validateAugment(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.Workspace == "" {
		return errors.New("paths.workspace must be set")
	}
	return nil
}

func (c *Config) validateModels() error {
	for _, name := range c.Models.Names {
		if err := textutil.ValidateModelName(name); err != nil {
			return fmt.Errorf("models.names: %w", err)
		}
	}
	return nil
}

func (c *Config) validateTraining() error {
	t := c.Training
	switch t.Mode {
	case ModePatience, ModePlateau:
	default:
		return fmt.Errorf("training.mode must be %q or %q, got %q", ModePatience, ModePlateau, t.Mode)
	}
	if t.BatchSize <= 0 {
		return errors.New("training.batch_size must be positive")
	}
	if t.LearningRate <= 0 {
		return errors.New("training.learning_rate must be positive")
	}
	if t.Epochs < 0 {
		return errors.New("training.epochs must be >= 0 (0 disables the cap)")
	}
	if t.Mode == ModePatience && t.Patience <= 0 {
		return errors.New("training.patience must be positive in patience mode")
	}
	if t.Dropout < 0 || t.Dropout >= 1 {
		return errors.New("training.dropout must be in [0, 1)")
	}
	if t.Momentum < 0 || t.Momentum >= 1 {
		return errors.New("training.momentum must be in [0, 1)")
	}
	if t.TargetAccuracy <= 0 || t.TargetAccuracy > 1 {
		return errors.New("training.target_accuracy must be in (0, 1]")
	}
	if t.ValidationFraction <= 0 || t.ValidationFraction >= 1 {
		return errors.New("training.validation_fraction must be in (0, 1)")
	}
	for _, m := range t.LRMilestones {
		if m <= 0 {
			return errors.New("training.lr_milestones must be positive epoch numbers")
		}
	}
	if len(t.LRMilestones) > 0 && (t.LRDecay <= 0 || t.LRDecay > 1) {
		return errors.New("training.lr_decay must be in (0, 1]")
	}
	switch t.Device {
	case "auto", "cpu", "cuda":
	default:
		return fmt.Errorf("training.device must be auto, cpu, or cuda, got %q", t.Device)
	}
	return nil
}

func (c *Config) validateAugment() error {
	a := c.Augment
	for name, p := range map[string]float64{
		"augment.noise_prob":   a.NoiseProb,
		"augment.stretch_prob": a.StretchProb,
		"augment.pitch_prob":   a.PitchProb,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("%s must be in [0, 1]", name)
		}
	}
	if a.NoiseAmplitude < 0 {
		return errors.New("augment.noise_amplitude must be >= 0")
	}
	if a.TimeStretch && (a.StretchMin <= 0 || a.StretchMax < a.StretchMin) {
		return errors.New("augment.stretch_min and stretch_max must satisfy 0 < min <= max")
	}
	if a.PitchSemitones < 0 {
		return errors.New("augment.pitch_semitones must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}
