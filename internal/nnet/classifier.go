package nnet

import (
	"encoding/json"
	"fmt"
	"math"

	"dtrack/internal/features"
)

// Example is one training input with its class index.
type Example struct {
	Input features.Tensor
	Label int
}

// Classifier is the trainable model capability the training loop and the
// inference aggregator depend on.
type Classifier interface {
	// Forward returns one logit per class without touching parameters.
	Forward(t features.Tensor) ([]float64, error)
	// TrainStep runs forward and backward passes over batch and applies one
	// optimizer step. weights[c] scales the loss of class c.
	TrainStep(batch []Example, weights []float64) (float64, error)
	SetLearningRate(lr float64)
	LearningRate() float64
	NumClasses() int
	MarshalBinary() ([]byte, error)
	To(d Device) error
}

// Config describes a freshly initialized classifier.
type Config struct {
	NumClasses   int
	Stats        features.Stats
	LearningRate float64
	Momentum     float64
	Dropout      float64
	Seed         uint64
	// Frames is the time length of input tensors; zero means the default
	// segment geometry.
	Frames       int
}

// Validate checks the hyperparameters.
func (c Config) Validate() error {
	switch {
	case c.NumClasses < 2:
		return fmt.Errorf("classifier needs at least 2 classes, got %d", c.NumClasses)
	case c.Stats.Dims() == 0:
		return fmt.Errorf("classifier needs normalization stats")
	case c.LearningRate <= 0:
		return fmt.Errorf("learning rate must be positive")
	case c.Momentum < 0 || c.Momentum >= 1:
		return fmt.Errorf("momentum must be in [0,1)")
	case c.Dropout < 0 || c.Dropout >= 1:
		return fmt.Errorf("dropout must be in [0,1)")
	}
	return nil
}

// New builds the default classifier for cfg.
func New(cfg Config) (Classifier, error) {
	return NewLinear(cfg)
}

// Load restores a classifier from MarshalBinary output.
func Load(data []byte) (Classifier, error) {
	var header struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	switch header.Kind {
	case kindLinear:
		return loadLinear(data)
	default:
		return nil, fmt.Errorf("decode checkpoint: unknown classifier kind %q", header.Kind)
	}
}

// Softmax converts logits to probabilities.
func Softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}
	peak := logits[0]
	for _, v := range logits {
		peak = max(peak, v)
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - peak)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Argmax returns the index of the largest value, preferring the lowest index
// on ties.
func Argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
