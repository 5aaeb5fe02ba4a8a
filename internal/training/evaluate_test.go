package training

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtrack/internal/features"
	"dtrack/internal/nnet"
)

// fixedClassifier predicts the class stored in the first tensor value.
type fixedClassifier struct{ classes int }

func (f fixedClassifier) Forward(t features.Tensor) ([]float64, error) {
	logits := make([]float64, f.classes)
	logits[int(t.At(0, 0))] = 10
	return logits, nil
}

func (f fixedClassifier) TrainStep([]nnet.Example, []float64) (float64, error) { return 0, nil }
func (f fixedClassifier) SetLearningRate(float64) {}
func (f fixedClassifier) LearningRate() float64 { return 0 }
func (f fixedClassifier) NumClasses() int { return f.classes }
func (f fixedClassifier) MarshalBinary() ([]byte, error) { return nil, nil }
func (f fixedClassifier) To(nnet.Device) error { return nil }

func predicting(class float32) features.Tensor {
	return features.NewTensor(1, 1, []float32{class})
}

func TestEvaluatePerClassAccuracy(t *testing.T) {
	examples := []nnet.Example{
		{Input: predicting(0), Label: 0},
		{Input: predicting(0), Label: 0},
		{Input: predicting(0), Label: 1},
		{Input: predicting(1), Label: 1},
	}
	ev, err := evaluate(fixedClassifier{classes: 3}, examples, []float64{1, 1, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, ev.Correct)
	assert.Equal(t, 4, ev.Total)
	assert.InDelta(t, 0.75, ev.Accuracy, 1e-12)
	assert.Equal(t, []float64{1, 0.5, 0}, ev.ClassAccuracy)
	assert.Equal(t, []int{2, 2, 0}, ev.ClassTotals)
	assert.InDelta(t, 0.75, ev.MeanClassAccuracy(), 1e-12)
	assert.Greater(t, ev.Loss, 0.0)
}
