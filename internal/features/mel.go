package features

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// hzToMel converts frequency in Hz to the HTK mel scale.
func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// melToHz converts an HTK mel value back to Hz.
func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

var bankCache sync.Map // Params -> [][]float64

// melBank returns the shared triangular filter bank for p, building it on
// first use. The returned slices must not be modified.
func melBank(p Params) [][]float64 {
	if cached, ok := bankCache.Load(p); ok {
		return cached.([][]float64)
	}
	bank := buildMelBank(p)
	actual, _ := bankCache.LoadOrStore(p, bank)
	return actual.([][]float64)
}

// buildMelBank lays out NMels triangles whose edges are evenly spaced on the
// HTK mel scale between FMin and FMax. Each triangle is scaled to unit area in
// Hz (slaney normalization) so wide high-frequency bands do not dominate.
func buildMelBank(p Params) [][]float64 {
	bins := p.Bins()
	fftFreqs := make([]float64, bins)
	floats.Span(fftFreqs, 0, float64(p.SampleRate)/2)

	melPoints := make([]float64, p.NMels+2)
	floats.Span(melPoints, hzToMel(p.FMin), hzToMel(p.FMax))
	hzPoints := make([]float64, len(melPoints))
	for i, m := range melPoints {
		hzPoints[i] = melToHz(m)
	}

	bank := make([][]float64, p.NMels)
	for m := range p.NMels {
		lower, center, upper := hzPoints[m], hzPoints[m+1], hzPoints[m+2]
		row := make([]float64, bins)
		norm := 2 / (upper - lower)
		for k, f := range fftFreqs {
			up := (f - lower) / (center - lower)
			down := (upper - f) / (upper - center)
			row[k] = norm * math.Max(0, math.Min(up, down))
		}
		bank[m] = row
	}
	return bank
}
