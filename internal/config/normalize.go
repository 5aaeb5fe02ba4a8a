package config

import (
	"fmt"
	"slices"
	"strings"

	"dtrack/internal/textutil"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeModels()
	c.normalizeTraining()
	c.normalizeInference()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.Workspace) == "" {
		c.Paths.Workspace = defaultWorkspace
	}
	var err error
	if c.Paths.Workspace, err = expandPath(c.Paths.Workspace); err != nil {
		return fmt.Errorf("paths.workspace: %w", err)
	}
	return nil
}

func (c *Config) normalizeModels() {
	names := make([]string, 0, len(c.Models.Names))
	for _, name := range c.Models.Names {
		name = strings.TrimSpace(name)
		if name == "" || slices.Contains(names, name) {
			continue
		}
		names = append(names, name)
	}
	c.Models.Names = names
}

func (c *Config) normalizeTraining() {
	c.Training.Mode = strings.ToLower(strings.TrimSpace(c.Training.Mode))
	if c.Training.Mode == "" {
		c.Training.Mode = defaultTrainingMode
	}
	c.Training.Device = strings.ToLower(strings.TrimSpace(c.Training.Device))
	if c.Training.Device == "" {
		c.Training.Device = defaultDevice
	}
	if c.Training.ParallelModels <= 0 {
		c.Training.ParallelModels = defaultParallelModels
	}
	slices.Sort(c.Training.LRMilestones)
	c.Training.LRMilestones = slices.Compact(c.Training.LRMilestones)
}

func (c *Config) normalizeInference() {
	labels := make([]string, 0, len(c.Inference.IgnoreLabels))
	for _, label := range c.Inference.IgnoreLabels {
		if label = textutil.NormalizeLabel(label); label != "" {
			labels = append(labels, label)
		}
	}
	c.Inference.IgnoreLabels = labels
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console", "pretty", "text":
		c.Logging.Format = defaultLogFormat
	default:
		c.Logging.Format = format
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
