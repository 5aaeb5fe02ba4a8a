package augment

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtrack/internal/audio"
)

func sine(n int, hz float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*hz*float64(i)/audio.SampleRate)
	}
	return out
}

func TestTimeStretchLength(t *testing.T) {
	in := sine(48000, 440)
	for _, rate := range []float64{0.8, 1.0, 1.25} {
		out, err := TimeStretch(in, rate)
		require.NoError(t, err)
		assert.Equal(t, int(math.Round(48000/rate)), len(out), "rate %v", rate)
	}
}

func TestTimeStretchRejectsBadInput(t *testing.T) {
	_, err := TimeStretch(sine(48000, 440), 0)
	assert.Error(t, err)
	_, err = TimeStretch(sine(100, 440), 1.1)
	assert.Error(t, err)
}

func TestTimeStretchIdentityPreservesSignal(t *testing.T) {
	in := sine(8192, 440)
	out, err := TimeStretch(in, 1)
	require.NoError(t, err)
	for i := stretchFrame; i < len(in)-stretchFrame; i++ {
		if math.Abs(in[i]-out[i]) > 1e-9 {
			t.Fatalf("sample %d differs: %v vs %v", i, in[i], out[i])
		}
	}
}

func TestAddNoiseScalesWithPeak(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	in := make([]float64, 10000)
	in[0] = 1
	out := AddNoise(in, 0.01, rng)
	require.Len(t, out, len(in))
	var sumSq float64
	for i := 1; i < len(out); i++ {
		sumSq += out[i] * out[i]
	}
	rms := math.Sqrt(sumSq / float64(len(out)-1))
	assert.InDelta(t, 0.01, rms, 0.002)
}

func TestPitchShiftZeroIsCopy(t *testing.T) {
	in := sine(4096, 440)
	out, err := PitchShift(in, 0, audio.SampleRate)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	out[0] = 9
	assert.NotEqual(t, in[0], out[0])
}

func TestApplyKeepsSegmentLengthAndIsSeeded(t *testing.T) {
	seg, err := audio.SegmentFromFloats(sine(audio.SegmentSamples, 440))
	require.NoError(t, err)

	opts := Options{
		Noise:          true,
		NoiseProb:      1,
		NoiseAmplitude: 0.01,
		TimeStretch:    true,
		StretchProb:    1,
		StretchMin:     0.9,
		StretchMax:     1.1,
		Seed:           5,
	}
	a := New(opts)
	require.True(t, a.Enabled())
	first, err := a.Apply(seg)
	require.NoError(t, err)
	assert.Equal(t, audio.SegmentSamples, first.Len())

	again, err := New(opts).Apply(seg)
	require.NoError(t, err)
	assert.Equal(t, first.Samples(), again.Samples())
	assert.NotEqual(t, seg.Samples(), first.Samples())
}

func TestApplyDisabledReturnsInput(t *testing.T) {
	seg, err := audio.SegmentFromFloats(sine(1000, 440))
	require.NoError(t, err)
	a := New(Options{})
	assert.False(t, a.Enabled())
	out, err := a.Apply(seg)
	require.NoError(t, err)
	assert.Equal(t, seg.Samples(), out.Samples())

	_, err = a.Apply(audio.Segment{})
	assert.Error(t, err)
}
