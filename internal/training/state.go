package training

import (
	"math"
	"time"

	"dtrack/internal/dataset"
)

// State is a step of a training run.
type State int

const (
	StateInitializing State = iota
	StateEpochRunning
	StateEvaluating
	StateImproved
	StateStagnant
	StateConverged
	StateExhausted
	StateInterrupted
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateEpochRunning:
		return "epoch_running"
	case StateEvaluating:
		return "evaluating"
	case StateImproved:
		return "improved"
	case StateStagnant:
		return "stagnant"
	case StateConverged:
		return "converged"
	case StateExhausted:
		return "exhausted"
	case StateInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateConverged || s == StateExhausted || s == StateInterrupted
}

// Outcome is how a run ended.
type Outcome string

const (
	OutcomeConverged   Outcome = "converged"
	OutcomeExhausted   Outcome = "exhausted"
	OutcomeInterrupted Outcome = "interrupted"
	OutcomeFailed      Outcome = "failed"
)

// RunState is the in-memory progress of one run. It is never persisted.
type RunState struct {
	State         State
	Epoch         int
	LearningRate  float64
	BestScore     float64
	BestEpoch     int
	NoImprovement int
	Stagnation    int
	LastMetric    float64
	Committed     bool
}

// Evaluation is the result of one validation pass.
type Evaluation struct {
	Loss          float64
	Accuracy      float64
	ClassAccuracy []float64
	ClassTotals   []int
	Correct       int
	Total         int
}

// MeanClassAccuracy averages accuracy over classes that have validation
// samples. It is a fraction in [0, 1].
func (e Evaluation) MeanClassAccuracy() float64 {
	var sum float64
	var n int
	for c, acc := range e.ClassAccuracy {
		if e.ClassTotals[c] == 0 {
			continue
		}
		sum += acc
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Summary describes a finished run.
type Summary struct {
	Model        string
	RunID        string
	Mode         string
	Outcome      Outcome
	Epochs       int
	Catalog      dataset.Catalog
	BestScore    float64
	BestEpoch    int
	LearningRate float64
	Committed    bool
	WarmStart    bool
	PortablePath string
	StartedAt    time.Time
	FinishedAt   time.Time
	Err          error
}

// HasScore reports whether BestScore came from an evaluation rather than a
// policy baseline.
func (s Summary) HasScore() bool {
	return !math.IsInf(s.BestScore, 0) && !math.IsNaN(s.BestScore)
}
