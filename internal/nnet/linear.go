package nnet

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"dtrack/internal/audio"
	"dtrack/internal/features"
	"dtrack/internal/onnx"
)

const (
	kindLinear        = "linear"
	checkpointVersion = 1
)

// Linear is a softmax classifier over time-pooled mel statistics: the
// per-mel mean and max of the spectrogram, standardized with dataset stats.
type Linear struct {
	classes      int
	dims         int
	frames       int
	stats        features.Stats
	weights      [][]float64
	bias         []float64
	velocityW    [][]float64
	velocityB    []float64
	learningRate float64
	momentum     float64
	dropout      float64
	seed         uint64
	rng          *rand.Rand
	device       Device
}

// NewLinear initializes weights with small seeded Gaussian values.
func NewLinear(cfg Config) (*Linear, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	frames := cfg.Frames
	if frames == 0 {
		frames = features.DefaultParams().Frames(audio.SegmentSamples)
	}
	l := newLinear(cfg.NumClasses, cfg.Stats.Dims(), frames)
	l.stats = cfg.Stats
	l.learningRate = cfg.LearningRate
	l.momentum = cfg.Momentum
	l.dropout = cfg.Dropout
	l.seed = cfg.Seed
	l.rng = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0xda3e39cb94b95bdb))

	initRng := rand.New(rand.NewPCG(cfg.Seed, 1))
	for c := range l.weights {
		for d := range l.weights[c] {
			l.weights[c][d] = initRng.NormFloat64() * 0.01
		}
	}
	return l, nil
}

func newLinear(classes, dims, frames int) *Linear {
	l := &Linear{
		classes:   classes,
		dims:      dims,
		frames:    frames,
		weights:   make([][]float64, classes),
		bias:      make([]float64, classes),
		velocityW: make([][]float64, classes),
		velocityB: make([]float64, classes),
		device:    DeviceCPU,
	}
	for c := range classes {
		l.weights[c] = make([]float64, dims)
		l.velocityW[c] = make([]float64, dims)
	}
	return l
}

func (l *Linear) NumClasses() int { return l.classes }

func (l *Linear) LearningRate() float64 { return l.learningRate }

func (l *Linear) SetLearningRate(lr float64) { l.learningRate = lr }

// To moves the model to d. Only the process-wide device is accepted.
func (l *Linear) To(d Device) error {
	current := CurrentDevice()
	if d == DeviceAuto {
		d = current
	}
	if d != current {
		return fmt.Errorf("cannot move model to %s: process device is %s", d, current)
	}
	l.device = d
	return nil
}

func (l *Linear) input(t features.Tensor) ([]float64, error) {
	pooled := t.Pool()
	if len(pooled) != l.dims {
		return nil, fmt.Errorf("input has %d pooled features, model expects %d", len(pooled), l.dims)
	}
	return l.stats.Standardize(pooled), nil
}

func (l *Linear) logits(z []float64) []float64 {
	out := make([]float64, l.classes)
	for c := range l.classes {
		out[c] = floats.Dot(l.weights[c], z) + l.bias[c]
	}
	return out
}

// Forward returns logits for t.
func (l *Linear) Forward(t features.Tensor) ([]float64, error) {
	z, err := l.input(t)
	if err != nil {
		return nil, err
	}
	return l.logits(z), nil
}

// TrainStep applies one momentum SGD step on the class-weighted mean
// cross-entropy of batch.
func (l *Linear) TrainStep(batch []Example, weights []float64) (float64, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	if weights != nil && len(weights) != l.classes {
		return 0, fmt.Errorf("got %d class weights for %d classes", len(weights), l.classes)
	}
	gradW := make([][]float64, l.classes)
	for c := range gradW {
		gradW[c] = make([]float64, l.dims)
	}
	gradB := make([]float64, l.classes)

	var lossSum, weightSum float64
	for _, ex := range batch {
		if ex.Label < 0 || ex.Label >= l.classes {
			return 0, fmt.Errorf("label %d out of range for %d classes", ex.Label, l.classes)
		}
		w := 1.0
		if weights != nil {
			w = weights[ex.Label]
		}
		if w == 0 {
			continue
		}
		z, err := l.input(ex.Input)
		if err != nil {
			return 0, err
		}
		l.applyDropout(z)
		probs := Softmax(l.logits(z))
		lossSum += -w * math.Log(math.Max(probs[ex.Label], 1e-12))
		weightSum += w
		for c := range l.classes {
			g := probs[c]
			if c == ex.Label {
				g -= 1
			}
			g *= w
			gradB[c] += g
			floats.AddScaled(gradW[c], g, z)
		}
	}
	if weightSum == 0 {
		return 0, nil
	}

	scale := 1 / weightSum
	for c := range l.classes {
		floats.Scale(l.momentum, l.velocityW[c])
		floats.AddScaled(l.velocityW[c], scale, gradW[c])
		floats.AddScaled(l.weights[c], -l.learningRate, l.velocityW[c])

		l.velocityB[c] = l.momentum*l.velocityB[c] + scale*gradB[c]
		l.bias[c] -= l.learningRate * l.velocityB[c]
	}
	return lossSum / weightSum, nil
}

func (l *Linear) applyDropout(z []float64) {
	if l.dropout <= 0 {
		return
	}
	keep := 1 - l.dropout
	for i := range z {
		if l.rng.Float64() < l.dropout {
			z[i] = 0
		} else {
			z[i] /= keep
		}
	}
}

type linearCheckpoint struct {
	Kind         string      `json:"kind"`
	Version      int         `json:"version"`
	Classes      int         `json:"classes"`
	Dims         int         `json:"dims"`
	Frames       int         `json:"frames"`
	Weights      [][]float64 `json:"weights"`
	Bias         []float64   `json:"bias"`
	Mean         []float64   `json:"mean"`
	Std          []float64   `json:"std"`
	LearningRate float64     `json:"learning_rate"`
	Momentum     float64     `json:"momentum"`
	Dropout      float64     `json:"dropout"`
	Seed         uint64      `json:"seed"`
}

// MarshalBinary snapshots parameters and hyperparameters. Optimizer
// velocity is not persisted.
func (l *Linear) MarshalBinary() ([]byte, error) {
	return json.Marshal(linearCheckpoint{
		Kind:         kindLinear,
		Version:      checkpointVersion,
		Classes:      l.classes,
		Dims:         l.dims,
		Frames:       l.frames,
		Weights:      l.weights,
		Bias:         l.bias,
		Mean:         l.stats.Mean,
		Std:          l.stats.Std,
		LearningRate: l.learningRate,
		Momentum:     l.momentum,
		Dropout:      l.dropout,
		Seed:         l.seed,
	})
}

func loadLinear(data []byte) (*Linear, error) {
	var cp linearCheckpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("decode linear checkpoint: %w", err)
	}
	if cp.Version != checkpointVersion {
		return nil, fmt.Errorf("linear checkpoint version %d unsupported", cp.Version)
	}
	if cp.Classes < 2 || cp.Dims == 0 || len(cp.Weights) != cp.Classes || len(cp.Bias) != cp.Classes ||
		len(cp.Mean) != cp.Dims || len(cp.Std) != cp.Dims {
		return nil, fmt.Errorf("linear checkpoint is inconsistent")
	}
	l := newLinear(cp.Classes, cp.Dims, cp.Frames)
	for c, row := range cp.Weights {
		if len(row) != cp.Dims {
			return nil, fmt.Errorf("linear checkpoint row %d has %d weights, want %d", c, len(row), cp.Dims)
		}
		copy(l.weights[c], row)
	}
	copy(l.bias, cp.Bias)
	l.stats = features.Stats{Count: 0, Mean: cp.Mean, Std: cp.Std}
	l.learningRate = cp.LearningRate
	l.momentum = cp.Momentum
	l.dropout = cp.Dropout
	l.seed = cp.Seed
	l.rng = rand.New(rand.NewPCG(cp.Seed, cp.Seed^0xda3e39cb94b95bdb))
	return l, nil
}

// PortableGraph expresses Forward as ONNX operators over an input of shape
// [1, 1, mels, frames].
func (l *Linear) PortableGraph() onnx.Graph {
	mels := int64(l.dims / 2)
	flatW := make([]float32, 0, l.classes*l.dims)
	for _, row := range l.weights {
		for _, v := range row {
			flatW = append(flatW, float32(v))
		}
	}
	return onnx.Graph{
		Name: "dtrack_linear",
		Nodes: []onnx.Node{
			{Name: "time_mean", OpType: "ReduceMean", Inputs: []string{"input"}, Outputs: []string{"time_mean"},
				Attributes: []onnx.Attribute{onnx.IntsAttr("axes", 3), onnx.IntAttr("keepdims", 0)}},
			{Name: "time_max", OpType: "ReduceMax", Inputs: []string{"input"}, Outputs: []string{"time_max"},
				Attributes: []onnx.Attribute{onnx.IntsAttr("axes", 3), onnx.IntAttr("keepdims", 0)}},
			{Name: "pooled", OpType: "Concat", Inputs: []string{"time_mean", "time_max"}, Outputs: []string{"pooled"},
				Attributes: []onnx.Attribute{onnx.IntAttr("axis", 2)}},
			{Name: "flat", OpType: "Flatten", Inputs: []string{"pooled"}, Outputs: []string{"flat"},
				Attributes: []onnx.Attribute{onnx.IntAttr("axis", 1)}},
			{Name: "centered", OpType: "Sub", Inputs: []string{"flat", "feature_mean"}, Outputs: []string{"centered"}},
			{Name: "standardized", OpType: "Div", Inputs: []string{"centered", "feature_std"}, Outputs: []string{"standardized"}},
			{Name: "classifier", OpType: "Gemm", Inputs: []string{"standardized", "weight", "bias"}, Outputs: []string{"output"},
				Attributes: []onnx.Attribute{onnx.IntAttr("transB", 1)}},
		},
		Initializers: []onnx.Tensor{
			{Name: "feature_mean", Dims: []int64{int64(l.dims)}, Data: toFloat32(l.stats.Mean)},
			{Name: "feature_std", Dims: []int64{int64(l.dims)}, Data: toFloat32(l.stats.Std)},
			{Name: "weight", Dims: []int64{int64(l.classes), int64(l.dims)}, Data: flatW},
			{Name: "bias", Dims: []int64{int64(l.classes)}, Data: toFloat32(l.bias)},
		},
		Inputs:  []onnx.ValueInfo{{Name: "input", Shape: []int64{1, 1, mels, int64(l.frames)}}},
		Outputs: []onnx.ValueInfo{{Name: "output", Shape: []int64{1, int64(l.classes)}}},
	}
}

func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
