package audio

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
)

// Supported sample file extensions.
const (
	ExtRaw = ".dat"
	ExtWAV = ".wav"
)

// Recording is a mono capture of arbitrary length at SampleRate.
type Recording struct {
	Source  string
	Samples []int16
}

// Duration returns the playback length of the recording.
func (r Recording) Duration() time.Duration {
	return time.Duration(len(r.Samples)) * time.Second / SampleRate
}

// Segment returns the first fixed-length window of the recording.
func (r Recording) Segment() (Segment, error) {
	if len(r.Samples) == 0 {
		return Segment{}, invalid(r.Source, "no samples")
	}
	return SegmentFromSamples(r.Samples)
}

// Slices cuts the recording into consecutive segments. The final partial
// window is zero-padded.
func (r Recording) Slices() []Segment {
	if len(r.Samples) == 0 {
		return nil
	}
	count := (len(r.Samples) + SegmentSamples - 1) / SegmentSamples
	out := make([]Segment, 0, count)
	for start := 0; start < len(r.Samples); start += SegmentSamples {
		end := min(start+SegmentSamples, len(r.Samples))
		seg, _ := SegmentFromSamples(r.Samples[start:end])
		out = append(out, seg)
	}
	return out
}

// IsSampleFile reports whether path has a supported audio extension.
func IsSampleFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtRaw, ExtWAV:
		return true
	default:
		return false
	}
}

// ReadFile decodes a raw s16le capture or a WAV file into a mono recording.
// WAV input at another sample rate is converted to SampleRate.
func ReadFile(path string) (Recording, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtRaw:
		return readRaw(path)
	case ExtWAV:
		return readWAV(path)
	default:
		return Recording{}, invalid(path, "unsupported file extension")
	}
}

// ReadSegment loads the first segment of an audio file.
func ReadSegment(path string) (Segment, error) {
	rec, err := ReadFile(path)
	if err != nil {
		return Segment{}, err
	}
	return rec.Segment()
}

func readRaw(path string) (Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Recording{}, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) == 0 {
		return Recording{}, invalid(path, "empty file")
	}
	if len(data)%BytesPerSample != 0 {
		return Recording{}, invalid(path, "odd byte count is not 16-bit audio")
	}
	samples := make([]int16, len(data)/BytesPerSample)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return Recording{Source: path, Samples: samples}, nil
}

func readWAV(path string) (Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return Recording{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return Recording{}, invalid(path, "not a PCM wav file")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return Recording{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return Recording{}, invalid(path, "no samples")
	}

	depth := int(d.BitDepth)
	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	mono, err := downmix(buf.Data, channels, depth)
	if err != nil {
		return Recording{}, invalid(path, err.Error())
	}

	rate := buf.Format.SampleRate
	if rate != SampleRate {
		converted, err := Resample(toFloats(mono), rate, SampleRate)
		if err != nil {
			return Recording{}, fmt.Errorf("resample %s: %w", path, err)
		}
		mono = fromFloats(converted)
	}
	return Recording{Source: path, Samples: mono}, nil
}

// downmix averages interleaved channels and rescales the bit depth to 16.
func downmix(data []int, channels, depth int) ([]int16, error) {
	shift := 0
	offset := 0
	switch depth {
	case 8:
		shift = -8
		offset = 128
	case 16:
	case 24:
		shift = 8
	case 32:
		shift = 16
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", depth)
	}
	frames := len(data) / channels
	out := make([]int16, frames)
	for i := range frames {
		sum := 0
		for c := range channels {
			v := data[i*channels+c] - offset
			if shift > 0 {
				v >>= shift
			} else if shift < 0 {
				v <<= -shift
			}
			sum += v
		}
		out[i] = int16(sum / channels)
	}
	return out, nil
}

func toFloats(samples []int16) []float64 {
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = float64(v) / 32768.0
	}
	return out
}

func fromFloats(samples []float64) []int16 {
	out := make([]int16, len(samples))
	for i, v := range samples {
		out[i] = quantize(v)
	}
	return out
}
