package features

import (
	"fmt"

	"dtrack/internal/audio"
)

// Params fixes the spectrogram geometry. Training and inference must use
// identical values or saved models become meaningless.
type Params struct {
	SampleRate int
	NFFT       int
	HopLength  int
	NMels      int
	FMin       float64
	FMax       float64
	TopDB      float64
}

// DefaultParams returns the geometry every shipped model is trained with.
func DefaultParams() Params {
	return Params{
		SampleRate: audio.SampleRate,
		NFFT:       2048,
		HopLength:  512,
		NMels:      128,
		FMin:       0,
		FMax:       float64(audio.SampleRate) / 2,
		TopDB:      80,
	}
}

// Frames returns the number of centered STFT frames for n samples.
func (p Params) Frames(n int) int {
	return 1 + n/p.HopLength
}

// Bins returns the number of one-sided FFT bins.
func (p Params) Bins() int {
	return p.NFFT/2 + 1
}

// Validate checks that the geometry is internally consistent.
func (p Params) Validate() error {
	switch {
	case p.SampleRate <= 0:
		return fmt.Errorf("sample rate must be positive")
	case p.NFFT <= 0 || p.NFFT%2 != 0:
		return fmt.Errorf("n_fft must be a positive even number")
	case p.HopLength <= 0:
		return fmt.Errorf("hop length must be positive")
	case p.NMels <= 0:
		return fmt.Errorf("mel bin count must be positive")
	case p.FMin < 0 || p.FMax <= p.FMin || p.FMax > float64(p.SampleRate)/2:
		return fmt.Errorf("mel frequency range [%g, %g] invalid for sample rate %d", p.FMin, p.FMax, p.SampleRate)
	case p.TopDB <= 0:
		return fmt.Errorf("top_db must be positive")
	}
	return nil
}
