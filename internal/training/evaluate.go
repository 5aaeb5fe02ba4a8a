package training

import (
	"math"

	"dtrack/internal/nnet"
)

// evaluate runs a validation pass without parameter updates.
func evaluate(cl nnet.Classifier, examples []nnet.Example, weights []float64, classes int) (Evaluation, error) {
	ev := Evaluation{
		ClassAccuracy: make([]float64, classes),
		ClassTotals:   make([]int, classes),
	}
	correct := make([]int, classes)
	var lossSum, weightSum float64
	for _, ex := range examples {
		logits, err := cl.Forward(ex.Input)
		if err != nil {
			return Evaluation{}, err
		}
		probs := nnet.Softmax(logits)
		w := 1.0
		if weights != nil {
			w = weights[ex.Label]
		}
		lossSum += -w * math.Log(math.Max(probs[ex.Label], 1e-12))
		weightSum += w
		ev.ClassTotals[ex.Label]++
		ev.Total++
		if nnet.Argmax(probs) == ex.Label {
			correct[ex.Label]++
			ev.Correct++
		}
	}
	if weightSum > 0 {
		ev.Loss = lossSum / weightSum
	}
	if ev.Total > 0 {
		ev.Accuracy = float64(ev.Correct) / float64(ev.Total)
	}
	for c := range classes {
		if ev.ClassTotals[c] > 0 {
			ev.ClassAccuracy[c] = float64(correct[c]) / float64(ev.ClassTotals[c])
		}
	}
	return ev, nil
}
