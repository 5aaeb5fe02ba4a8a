package config

const (
	defaultWorkspace          = "~/.local/share/dtrack"
	defaultTrainingMode       = ModePatience
	defaultBatchSize          = 16
	defaultLearningRate       = 0.001
	defaultEpochs             = 100
	defaultPatience           = 10
	defaultDropout            = 0.2
	defaultMomentum           = 0.9
	defaultTargetAccuracy     = 0.95
	defaultValidationFraction = 0.2
	defaultSeed               = 42
	defaultParallelModels     = 1
	defaultLRDecay            = 0.1
	defaultDevice             = "auto"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 30
)

// Training modes.
const (
	ModePatience = "patience"
	ModePlateau  = "plateau"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			Workspace: defaultWorkspace,
		},
		Models: Models{
			Names: []string{},
		},
		Training: Training{
			Mode:               defaultTrainingMode,
			BatchSize:          defaultBatchSize,
			LearningRate:       defaultLearningRate,
			Epochs:             defaultEpochs,
			Patience:           defaultPatience,
			Dropout:            defaultDropout,
			Momentum:           defaultMomentum,
			TargetAccuracy:     defaultTargetAccuracy,
			ValidationFraction: defaultValidationFraction,
			Seed:               defaultSeed,
			ParallelModels:     defaultParallelModels,
			LRMilestones:       []int{10, 30},
			LRDecay:            defaultLRDecay,
			Device:             defaultDevice,
		},
		Augment: Augment{
			Noise:          true,
			NoiseProb:      0.5,
			NoiseAmplitude: 0.005,
			TimeStretch:    true,
			StretchProb:    0.3,
			StretchMin:     0.8,
			StretchMax:     1.25,
			PitchShift:     true,
			PitchProb:      0.3,
			PitchSemitones: 2,
		},
		Inference: Inference{
			IgnoreLabels: []string{"nomatch", "empty", "quiet"},
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
