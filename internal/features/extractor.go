package features

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"

	"dtrack/internal/audio"
)

const amin = 1e-10

// Extractor turns audio segments into normalized mel spectrogram tensors.
// It is safe for concurrent use.
type Extractor struct {
	params Params
	bank   [][]float64
	window []float64
	ffts   sync.Pool
}

// NewExtractor validates p and prepares the shared filter bank and window.
func NewExtractor(p Params) (*Extractor, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("feature params: %w", err)
	}
	e := &Extractor{
		params: p,
		bank:   melBank(p),
		window: hann(p.NFFT),
	}
	e.ffts.New = func() any { return fourier.NewFFT(p.NFFT) }
	return e, nil
}

// Params returns the geometry this extractor was built with.
func (e *Extractor) Params() Params { return e.params }

// Shape returns the tensor shape produced for one segment.
func (e *Extractor) Shape() []int {
	return []int{1, e.params.NMels, e.params.Frames(audio.SegmentSamples)}
}

// Extract computes the feature tensor for seg. Identical input always yields
// bit-identical output.
func (e *Extractor) Extract(seg audio.Segment) (Tensor, error) {
	if seg.IsZero() {
		return Tensor{}, &audio.InvalidAudioError{Source: "segment", Reason: "empty buffer"}
	}
	power := e.powerSpectrogram(seg.Floats())
	mel := e.project(power)
	return e.rescale(mel), nil
}

// powerSpectrogram returns |STFT|² per frame over a centered, zero-padded
// signal.
func (e *Extractor) powerSpectrogram(signal []float64) [][]float64 {
	p := e.params
	padded := zeroPad(signal, p.NFFT/2)
	frames := p.Frames(len(signal))

	fft := e.ffts.Get().(*fourier.FFT)
	defer e.ffts.Put(fft)

	frame := make([]float64, p.NFFT)
	coeffs := make([]complex128, p.Bins())
	out := make([][]float64, frames)
	for t := range frames {
		start := t * p.HopLength
		copy(frame, padded[start:start+p.NFFT])
		floats.Mul(frame, e.window)
		coeffs = fft.Coefficients(coeffs, frame)
		row := make([]float64, len(coeffs))
		for k, c := range coeffs {
			re, im := real(c), imag(c)
			row[k] = re*re + im*im
		}
		out[t] = row
	}
	return out
}

// project applies the mel bank, producing mel × frame energies.
func (e *Extractor) project(power [][]float64) [][]float64 {
	mel := make([][]float64, len(e.bank))
	for m, filter := range e.bank {
		row := make([]float64, len(power))
		for t, spectrum := range power {
			row[t] = floats.Dot(filter, spectrum)
		}
		mel[m] = row
	}
	return mel
}

// rescale converts energies to decibels relative to the segment peak, floors
// at -TopDB and maps the result onto [0,1].
func (e *Extractor) rescale(mel [][]float64) Tensor {
	peak := amin
	for _, row := range mel {
		peak = math.Max(peak, floats.Max(row))
	}
	ref := 10 * math.Log10(peak)
	top := e.params.TopDB

	frames := len(mel[0])
	data := make([]float32, len(mel)*frames)
	for m, row := range mel {
		for t, v := range row {
			db := 10*math.Log10(math.Max(v, amin)) - ref
			db = math.Min(0, math.Max(-top, db))
			data[m*frames+t] = float32((db + top) / top)
		}
	}
	return Tensor{mels: len(mel), frames: frames, data: data}
}

// hann returns a periodic Hann window of length n.
func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// zeroPad surrounds signal with pad zeros on both sides.
func zeroPad(signal []float64, pad int) []float64 {
	out := make([]float64, len(signal)+2*pad)
	copy(out[pad:], signal)
	return out
}
