package features

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/stat"

	"dtrack/internal/fileutil"
)

const minStd = 1e-6

// Stats holds per-dimension mean and standard deviation of pooled feature
// vectors over a training set.
type Stats struct {
	Fingerprint string    `json:"fingerprint"`
	Count       int       `json:"count"`
	Mean        []float64 `json:"mean"`
	Std         []float64 `json:"std"`
}

// ComputeStats derives Stats from equally sized vectors. Standard deviations
// are floored so standardization never divides by zero.
func ComputeStats(vectors [][]float64) (Stats, error) {
	if len(vectors) == 0 {
		return Stats{}, errors.New("compute stats: no vectors")
	}
	dims := len(vectors[0])
	column := make([]float64, len(vectors))
	stats := Stats{Count: len(vectors), Mean: make([]float64, dims), Std: make([]float64, dims)}
	for d := range dims {
		for i, v := range vectors {
			if len(v) != dims {
				return Stats{}, fmt.Errorf("compute stats: vector %d has %d dims, want %d", i, len(v), dims)
			}
			column[i] = v[d]
		}
		mean, std := stat.PopMeanStdDev(column, nil)
		if math.IsNaN(std) || std < minStd {
			std = minStd
		}
		stats.Mean[d] = mean
		stats.Std[d] = std
	}
	return stats, nil
}

// Dims returns the vector width the stats describe.
func (s Stats) Dims() int { return len(s.Mean) }

// Standardize returns (v - mean) / std.
func (s Stats) Standardize(v []float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = (v[i] - s.Mean[i]) / s.Std[i]
	}
	return out
}

// LoadStats reads cached stats. A missing file yields (Stats{}, false, nil).
func LoadStats(path string) (Stats, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Stats{}, false, nil
	}
	if err != nil {
		return Stats{}, false, fmt.Errorf("read stats cache: %w", err)
	}
	var stats Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		return Stats{}, false, fmt.Errorf("parse stats cache %s: %w", path, err)
	}
	if len(stats.Mean) == 0 || len(stats.Mean) != len(stats.Std) {
		return Stats{}, false, fmt.Errorf("stats cache %s is malformed", path)
	}
	return stats, true, nil
}

// SaveStats writes stats atomically.
func SaveStats(path string, stats Stats) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	return fileutil.WriteFileAtomic(path, data, 0o644)
}
