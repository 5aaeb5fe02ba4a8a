package inference

import (
	"math"
	"slices"
	"time"
)

// precision is the number of decimal digits kept in reported probabilities.
const precision = 1e4

// Score is one label's probability.
type Score struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Result is one model's verdict for one segment. Distribution follows the
// model's catalog order.
type Result struct {
	Match        string  `json:"match"`
	Confidence   float64 `json:"confidence"`
	Distribution []Score `json:"distribution"`
}

// Probability returns the reported probability of label, or 0 when the model
// does not know it.
func (r Result) Probability(label string) float64 {
	for _, s := range r.Distribution {
		if s.Label == label {
			return s.Probability
		}
	}
	return 0
}

// Ranked returns the distribution sorted by descending probability. Ties keep
// catalog order.
func (r Result) Ranked() []Score {
	ranked := slices.Clone(r.Distribution)
	slices.SortStableFunc(ranked, func(a, b Score) int {
		switch {
		case a.Probability > b.Probability:
			return -1
		case a.Probability < b.Probability:
			return 1
		default:
			return 0
		}
	})
	return ranked
}

// SliceResult holds the verdicts for one fixed-length slice of a recording.
type SliceResult struct {
	Index   int               `json:"index"`
	Offset  time.Duration     `json:"offset"`
	Results map[string]Result `json:"results"`
}

// Event is a slice whose match is a real disturbance for some model.
type Event struct {
	Slice      int           `json:"slice"`
	Offset     time.Duration `json:"offset"`
	Model      string        `json:"model"`
	Label      string        `json:"label"`
	Confidence float64       `json:"confidence"`
}

// Matches lists the per-model events across slices, skipping matches whose
// label is in ignore. Events are ordered by slice, then model name.
func Matches(results []SliceResult, ignore []string) []Event {
	skip := make(map[string]struct{}, len(ignore))
	for _, label := range ignore {
		skip[label] = struct{}{}
	}
	var events []Event
	for _, sr := range results {
		for _, name := range SortedModels(sr.Results) {
			res := sr.Results[name]
			if _, ok := skip[res.Match]; ok {
				continue
			}
			events = append(events, Event{
				Slice:      sr.Index,
				Offset:     sr.Offset,
				Model:      name,
				Label:      res.Match,
				Confidence: res.Confidence,
			})
		}
	}
	return events
}

func round(p float64) float64 {
	return math.Round(p*precision) / precision
}

// SortedModels returns the model names of results in lexical order.
func SortedModels(results map[string]Result) []string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
