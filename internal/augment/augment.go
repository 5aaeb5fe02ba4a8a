package augment

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"dtrack/internal/audio"
)

// Options toggles and tunes each transform. Probabilities are per sample.
type Options struct {
	Noise          bool
	NoiseProb      float64
	NoiseAmplitude float64

	TimeStretch bool
	StretchProb float64
	StretchMin  float64
	StretchMax  float64

	PitchShift     bool
	PitchProb      float64
	PitchSemitones float64

	Seed uint64
}

// DefaultOptions mirrors the stock training configuration.
func DefaultOptions() Options {
	return Options{
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
	}
}

// Augmenter applies randomized transforms to training segments. It is not
// safe for concurrent use; each training run owns one.
type Augmenter struct {
	opts Options
	rng  *rand.Rand
}

// New builds an augmenter seeded from opts.Seed.
func New(opts Options) *Augmenter {
	return &Augmenter{opts: opts, rng: rand.New(rand.NewPCG(opts.Seed, opts.Seed+1))}
}

// Enabled reports whether any transform can fire.
func (a *Augmenter) Enabled() bool {
	if a == nil {
		return false
	}
	o := a.opts
	return (o.Noise && o.NoiseProb > 0) || (o.TimeStretch && o.StretchProb > 0) || (o.PitchShift && o.PitchProb > 0)
}

// Apply returns a transformed copy of seg. The input is never modified.
func (a *Augmenter) Apply(seg audio.Segment) (audio.Segment, error) {
	if seg.IsZero() {
		return audio.Segment{}, errors.New("augment: empty segment")
	}
	if !a.Enabled() {
		return seg, nil
	}
	samples := seg.Floats()
	n := len(samples)
	var err error

	if a.opts.TimeStretch && a.roll(a.opts.StretchProb) {
		rate := a.opts.StretchMin + a.rng.Float64()*(a.opts.StretchMax-a.opts.StretchMin)
		if samples, err = TimeStretch(samples, rate); err != nil {
			return audio.Segment{}, err
		}
		samples = audio.FitLength(samples, n)
	}
	if a.opts.PitchShift && a.roll(a.opts.PitchProb) {
		steps := (a.rng.Float64()*2 - 1) * a.opts.PitchSemitones
		if samples, err = PitchShift(samples, steps, audio.SampleRate); err != nil {
			return audio.Segment{}, err
		}
		samples = audio.FitLength(samples, n)
	}
	if a.opts.Noise && a.roll(a.opts.NoiseProb) {
		samples = AddNoise(samples, a.opts.NoiseAmplitude, a.rng)
	}
	return audio.SegmentFromFloats(samples)
}

func (a *Augmenter) roll(p float64) bool {
	return p > 0 && a.rng.Float64() < p
}

// AddNoise adds Gaussian noise scaled by amplitude times the signal peak.
func AddNoise(samples []float64, amplitude float64, rng *rand.Rand) []float64 {
	peak := 0.0
	for _, v := range samples {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak == 0 {
		peak = 1
	}
	scale := amplitude * peak
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = v + rng.NormFloat64()*scale
	}
	return out
}

const (
	stretchFrame = 2048
	stretchHop   = 512
)

// TimeStretch changes duration by 1/rate without resampling, using windowed
// overlap-add. rate > 1 shortens, rate < 1 lengthens.
func TimeStretch(samples []float64, rate float64) ([]float64, error) {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil, fmt.Errorf("time stretch: invalid rate %v", rate)
	}
	if len(samples) < stretchFrame {
		return nil, fmt.Errorf("time stretch: need at least %d samples, got %d", stretchFrame, len(samples))
	}
	window := make([]float64, stretchFrame)
	for i := range window {
		window[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/stretchFrame)
	}

	outLen := int(math.Round(float64(len(samples)) / rate))
	out := make([]float64, outLen+stretchFrame)
	norm := make([]float64, len(out))
	analysisHop := float64(stretchHop) * rate

	for k := 0; ; k++ {
		src := int(math.Round(float64(k) * analysisHop))
		dst := k * stretchHop
		if src+stretchFrame > len(samples) || dst+stretchFrame > len(out) {
			break
		}
		for i, w := range window {
			out[dst+i] += samples[src+i] * w
			norm[dst+i] += w
		}
	}
	for i := range out {
		if norm[i] > 1e-8 {
			out[i] /= norm[i]
		}
	}
	return out[:outLen], nil
}

// PitchShift moves the pitch by semitones while keeping the duration: the
// signal is stretched by the pitch ratio and then resampled back.
func PitchShift(samples []float64, semitones float64, sampleRate int) ([]float64, error) {
	if semitones == 0 {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out, nil
	}
	ratio := math.Pow(2, semitones/12)
	stretched, err := TimeStretch(samples, 1/ratio)
	if err != nil {
		return nil, fmt.Errorf("pitch shift: %w", err)
	}
	from := int(math.Round(float64(sampleRate) * ratio))
	shifted, err := audio.Resample(stretched, from, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("pitch shift: %w", err)
	}
	return shifted, nil
}
