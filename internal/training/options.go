package training

import (
	"dtrack/internal/augment"
	"dtrack/internal/config"
)

// Options are the training knobs of one controller.
type Options struct {
	Mode               string
	BatchSize          int
	LearningRate       float64
	// Epochs caps the epochs of a run; 0 means no cap.
	Epochs             int
	Patience           int
	Dropout            float64
	Momentum           float64
	TargetAccuracy     float64
	ValidationFraction float64
	Seed               uint64
	ParallelModels     int
	ExportONNX         bool
	Schedule           Schedule
	Device             string
	Augment            augment.Options
}

// OptionsFromConfig maps the [training] and [augment] sections.
func OptionsFromConfig(cfg *config.Config) Options {
	t := cfg.Training
	return Options{
		Mode:               t.Mode,
		BatchSize:          t.BatchSize,
		LearningRate:       t.LearningRate,
		Epochs:             t.Epochs,
		Patience:           t.Patience,
		Dropout:            t.Dropout,
		Momentum:           t.Momentum,
		TargetAccuracy:     t.TargetAccuracy,
		ValidationFraction: t.ValidationFraction,
		Seed:               t.Seed,
		ParallelModels:     t.ParallelModels,
		ExportONNX:         t.ExportONNX,
		Schedule:           Schedule{Milestones: t.LRMilestones, Decay: t.LRDecay},
		Device:             t.Device,
		Augment:            cfg.AugmentOptions(t.Seed),
	}
}
