package testsupport

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"dtrack/internal/audio"
)

// Tone returns n samples of a sine at freq Hz with light seeded noise.
func Tone(freq, amplitude float64, n int, seed uint64) []int16 {
	rng := rand.New(rand.NewPCG(seed, seed+7))
	out := make([]int16, n)
	phase := rng.Float64() * 2 * math.Pi
	for i := range out {
		v := amplitude*math.Sin(phase+2*math.Pi*freq*float64(i)/audio.SampleRate) + 0.01*rng.NormFloat64()
		out[i] = int16(max(-1, min(v, 32767.0/32768)) * 32768)
	}
	return out
}

// WriteRaw writes samples as headerless s16le (.dat).
func WriteRaw(t testing.TB, path string, samples []int16) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	buf := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(s))
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteWAV writes mono 16-bit PCM at rate.
func WriteWAV(t testing.TB, path string, samples []int16, rate int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder %s: %v", path, err)
	}
}

// ToneClass describes one synthetic class folder.
type ToneClass struct {
	Label     string
	Freq      float64
	Amplitude float64
	Samples   int
}

// WriteToneTags fills dir/<label>/ with one-segment tone recordings. Even
// samples are .dat, odd samples .wav.
func WriteToneTags(t testing.TB, dir string, classes ...ToneClass) {
	t.Helper()
	for ci, class := range classes {
		amp := class.Amplitude
		if amp == 0 {
			amp = 0.5
		}
		for i := range class.Samples {
			samples := Tone(class.Freq, amp, audio.SegmentSamples, uint64(ci*1000+i))
			base := filepath.Join(dir, class.Label, fmt.Sprintf("%s_%03d", class.Label, i))
			if i%2 == 0 {
				WriteRaw(t, base+audio.ExtRaw, samples)
			} else {
				WriteWAV(t, base+audio.ExtWAV, samples, audio.SampleRate)
			}
		}
	}
}
