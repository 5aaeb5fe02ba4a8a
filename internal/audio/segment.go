package audio

import (
	"encoding/binary"
	"math"
	"time"
)

const (
	// SampleRate is the only sample rate accepted by the feature pipeline.
	SampleRate = 48000
	// SegmentDuration is the fixed length of one classification window.
	SegmentDuration = 2 * time.Second
	// BytesPerSample is the width of one s16le sample.
	BytesPerSample = 2
	// SegmentSamples is the number of samples in one segment.
	SegmentSamples = SampleRate * int(SegmentDuration/time.Second)
	// SegmentBytes is the size of one segment as raw s16le PCM.
	SegmentBytes = SegmentSamples * BytesPerSample
)

// Segment is a fixed-length window of mono 16-bit PCM at SampleRate.
// The zero value is an empty segment that callers treat as "no input".
type Segment struct {
	samples []int16
}

// NewSegment builds a segment from raw s16le bytes, zero-padding short input
// and truncating long input to SegmentSamples.
func NewSegment(pcm []byte) (Segment, error) {
	if len(pcm) == 0 {
		return Segment{}, invalid("pcm", "empty buffer")
	}
	if len(pcm)%BytesPerSample != 0 {
		return Segment{}, invalid("pcm", "odd byte count is not 16-bit audio")
	}
	samples := make([]int16, SegmentSamples)
	n := min(len(pcm)/BytesPerSample, SegmentSamples)
	for i := range n {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return Segment{samples: samples}, nil
}

// SegmentFromSamples builds a segment from already decoded mono samples.
func SegmentFromSamples(src []int16) (Segment, error) {
	if len(src) == 0 {
		return Segment{}, invalid("samples", "empty buffer")
	}
	samples := make([]int16, SegmentSamples)
	copy(samples, src)
	return Segment{samples: samples}, nil
}

// SegmentFromFloats quantizes normalized samples in [-1,1] into a segment.
// Values outside the range are clipped.
func SegmentFromFloats(src []float64) (Segment, error) {
	if len(src) == 0 {
		return Segment{}, invalid("samples", "empty buffer")
	}
	samples := make([]int16, SegmentSamples)
	n := min(len(src), SegmentSamples)
	for i := range n {
		samples[i] = quantize(src[i])
	}
	return Segment{samples: samples}, nil
}

// IsZero reports whether the segment carries no audio at all.
func (s Segment) IsZero() bool { return len(s.samples) == 0 }

// Len returns the number of samples.
func (s Segment) Len() int { return len(s.samples) }

// Floats returns the samples normalized to [-1,1) by dividing by 32768.
func (s Segment) Floats() []float64 {
	out := make([]float64, len(s.samples))
	for i, v := range s.samples {
		out[i] = float64(v) / 32768.0
	}
	return out
}

// PCM returns the segment encoded as s16le bytes.
func (s Segment) PCM() []byte {
	out := make([]byte, len(s.samples)*BytesPerSample)
	for i, v := range s.samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// Samples returns a copy of the raw samples.
func (s Segment) Samples() []int16 {
	out := make([]int16, len(s.samples))
	copy(out, s.samples)
	return out
}

func quantize(v float64) int16 {
	scaled := math.Round(v * 32768.0)
	switch {
	case scaled > math.MaxInt16:
		return math.MaxInt16
	case scaled < math.MinInt16:
		return math.MinInt16
	default:
		return int16(scaled)
	}
}
