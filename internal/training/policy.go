package training

import (
	"fmt"
	"math"

	"dtrack/internal/config"
)

// Decision is a policy verdict after one evaluation.
type Decision struct {
	Improved bool
	Stop     bool
	// Outcome is set when Stop is true.
	Outcome   Outcome
	PerturbLR bool
	Reason    string
}

// Policy decides improvement and termination from validation results. It
// owns the best-score and counter fields of RunState.
type Policy interface {
	Name() string
	// Baseline is the best score of a run without a warm-start evaluation.
	Baseline() float64
	Score(ev Evaluation) float64
	// Satisfied reports whether best already meets the goal, before any epoch.
	Satisfied(best float64) bool
	Decide(state *RunState, ev Evaluation) Decision
}

// NewPolicy returns the policy for a configured training mode.
func NewPolicy(opts Options) (Policy, error) {
	switch opts.Mode {
	case config.ModePatience, "":
		return &PatiencePolicy{Patience: opts.Patience, MaxEpochs: opts.Epochs}, nil
	case config.ModePlateau:
		return &PlateauPolicy{Target: opts.TargetAccuracy, MaxEpochs: opts.Epochs}, nil
	default:
		return nil, fmt.Errorf("unknown training mode %q", opts.Mode)
	}
}

// PatiencePolicy minimizes validation loss and stops after Patience epochs
// without a strict improvement.
type PatiencePolicy struct {
	Patience  int
	MaxEpochs int
}

func (p *PatiencePolicy) Name() string { return config.ModePatience }

func (p *PatiencePolicy) Baseline() float64 { return math.Inf(1) }

func (p *PatiencePolicy) Score(ev Evaluation) float64 { return ev.Loss }

func (p *PatiencePolicy) Satisfied(float64) bool { return false }

func (p *PatiencePolicy) Decide(state *RunState, ev Evaluation) Decision {
	var d Decision
	score := p.Score(ev)
	if score < state.BestScore {
		state.BestScore = score
		state.BestEpoch = state.Epoch
		state.NoImprovement = 0
		d.Improved = true
		d.Reason = fmt.Sprintf("validation loss improved to %.4f", score)
	} else {
		state.NoImprovement++
		d.Reason = fmt.Sprintf("no improvement for %d of %d epochs", state.NoImprovement, p.Patience)
	}
	switch {
	case state.NoImprovement >= p.Patience:
		d.Stop, d.Outcome = true, OutcomeConverged
		d.Reason = fmt.Sprintf("validation loss has not improved for %d epochs", state.NoImprovement)
	case p.MaxEpochs > 0 && state.Epoch >= p.MaxEpochs:
		d.Stop, d.Outcome = true, OutcomeExhausted
		d.Reason = fmt.Sprintf("reached epoch limit %d", p.MaxEpochs)
	}
	return d
}

const (
	stagnationBump  = 3
	stagnationLimit = 10
)

// PlateauPolicy maximizes mean per-class accuracy until Target is reached.
// Identical consecutive accuracies count as stagnation: every third one asks
// for a learning-rate perturbation and the tenth ends the run.
type PlateauPolicy struct {
	Target    float64
	MaxEpochs int
}

func (p *PlateauPolicy) Name() string { return config.ModePlateau }

func (p *PlateauPolicy) Baseline() float64 { return 0 }

func (p *PlateauPolicy) Score(ev Evaluation) float64 { return ev.MeanClassAccuracy() }

func (p *PlateauPolicy) Satisfied(best float64) bool { return best >= p.Target }

func (p *PlateauPolicy) Decide(state *RunState, ev Evaluation) Decision {
	var d Decision
	score := p.Score(ev)
	if score > state.BestScore {
		state.BestScore = score
		state.BestEpoch = state.Epoch
		d.Improved = true
		d.Reason = fmt.Sprintf("mean class accuracy improved to %.4f", score)
	} else {
		d.Reason = fmt.Sprintf("mean class accuracy %.4f does not beat %.4f from epoch %d", score, state.BestScore, state.BestEpoch)
	}

	if score != state.LastMetric {
		state.LastMetric = score
		state.Stagnation = 0
	} else {
		state.Stagnation++
		if state.Stagnation%stagnationBump == 0 {
			d.PerturbLR = true
		}
	}

	switch {
	case p.Satisfied(state.BestScore):
		d.Stop, d.Outcome = true, OutcomeConverged
		d.Reason = fmt.Sprintf("mean class accuracy %.4f reached target %.4f", state.BestScore, p.Target)
	case state.Stagnation >= stagnationLimit:
		d.Stop, d.Outcome = true, OutcomeExhausted
		d.Reason = fmt.Sprintf("accuracy unchanged for %d evaluations", state.Stagnation)
	case p.MaxEpochs > 0 && state.Epoch >= p.MaxEpochs:
		d.Stop, d.Outcome = true, OutcomeExhausted
		d.Reason = fmt.Sprintf("reached epoch limit %d", p.MaxEpochs)
	}
	return d
}
