package config

import (
	"fmt"
	"strconv"
	"strings"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "DTRACK_"

type envBinding struct {
	key   string
	apply func(c *Config, value string) error
}

var envBindings = []envBinding{
	{"WORKSPACE", func(c *Config, v string) error { c.Paths.Workspace = v; return nil }},
	{"MODELS", func(c *Config, v string) error { c.Models.Names = splitList(v); return nil }},
	{"TRAIN_MODE", func(c *Config, v string) error { c.Training.Mode = v; return nil }},
	{"TRAIN_DEVICE", func(c *Config, v string) error { c.Training.Device = v; return nil }},
	{"TRAIN_TARGET", floatSetter(func(c *Config) *float64 { return &c.Training.TargetAccuracy })},
	{"TRAIN_RATE", floatSetter(func(c *Config) *float64 { return &c.Training.LearningRate })},
	{"TRAIN_MOMENTUM", floatSetter(func(c *Config) *float64 { return &c.Training.Momentum })},
	{"TRAIN_DROPOUT", floatSetter(func(c *Config) *float64 { return &c.Training.Dropout })},
	{"TRAIN_EPOCHS", intSetter(func(c *Config) *int { return &c.Training.Epochs })},
	{"TRAIN_PATIENCE", intSetter(func(c *Config) *int { return &c.Training.Patience })},
	{"TRAIN_BATCH_SIZE", intSetter(func(c *Config) *int { return &c.Training.BatchSize })},
	{"TRAIN_PARALLEL", intSetter(func(c *Config) *int { return &c.Training.ParallelModels })},
	{"TRAIN_EXPORT_ONNX", boolSetter(func(c *Config) *bool { return &c.Training.ExportONNX })},
	{"INFER_IGNORE_LABELS", func(c *Config, v string) error { c.Inference.IgnoreLabels = splitList(v); return nil }},
	{"LOG_LEVEL", func(c *Config, v string) error { c.Logging.Level = v; return nil }},
	{"LOG_FORMAT", func(c *Config, v string) error { c.Logging.Format = v; return nil }},
}

// EnvKeys lists every recognised environment variable.
func EnvKeys() []string {
	keys := make([]string, len(envBindings))
	for i, b := range envBindings {
		keys[i] = EnvPrefix + b.key
	}
	return keys
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		value, ok := lookup(EnvPrefix + b.key)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		if err := b.apply(c, strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, b.key, err)
		}
	}
	return nil
}

func floatSetter(field func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", v)
		}
		*field(c) = parsed
		return nil
	}
}

func intSetter(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("not an integer: %q", v)
		}
		*field(c) = parsed
		return nil
	}
}

func boolSetter(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("not a boolean: %q", v)
		}
		*field(c) = parsed
		return nil
	}
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
