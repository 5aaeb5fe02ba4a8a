package features

import (
	"math"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"dtrack/internal/audio"
)

func toneSegment(t *testing.T, hz, amp float64) audio.Segment {
	t.Helper()
	samples := make([]float64, audio.SegmentSamples)
	for i := range samples {
		samples[i] = amp * math.Sin(2*math.Pi*hz*float64(i)/audio.SampleRate)
	}
	seg, err := audio.SegmentFromFloats(samples)
	require.NoError(t, err)
	return seg
}

func newExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor(DefaultParams())
	require.NoError(t, err)
	return e
}

func TestExtractShapeAndRange(t *testing.T) {
	e := newExtractor(t)
	tensor, err := e.Extract(toneSegment(t, 1000, 0.5))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 128, 188}, tensor.Shape())
	assert.Equal(t, e.Shape(), tensor.Shape())
	for _, v := range tensor.Data() {
		if v < 0 || v > 1 || math.IsNaN(float64(v)) {
			t.Fatalf("value %v out of [0,1]", v)
		}
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	e := newExtractor(t)
	rng := rand.New(rand.NewPCG(1, 2))
	noise := make([]float64, audio.SegmentSamples)
	for i := range noise {
		noise[i] = rng.Float64()*0.4 - 0.2
	}
	seg, err := audio.SegmentFromFloats(noise)
	require.NoError(t, err)

	first, err := e.Extract(seg)
	require.NoError(t, err)
	second, err := e.Extract(seg)
	require.NoError(t, err)
	assert.Equal(t, first.Data(), second.Data())
}

func TestExtractPeakIsOne(t *testing.T) {
	e := newExtractor(t)
	tensor, err := e.Extract(toneSegment(t, 440, 0.8))
	require.NoError(t, err)
	var peak float32
	for _, v := range tensor.Data() {
		peak = max(peak, v)
	}
	assert.InDelta(t, 1.0, peak, 1e-6)
}

func TestExtractToneLandsInExpectedBand(t *testing.T) {
	e := newExtractor(t)
	low, err := e.Extract(toneSegment(t, 300, 0.5))
	require.NoError(t, err)
	high, err := e.Extract(toneSegment(t, 8000, 0.5))
	require.NoError(t, err)

	loudest := func(tensor Tensor) int {
		pooled := tensor.Pool()
		best := 0
		for m := range tensor.Mels() {
			if pooled[m] > pooled[best] {
				best = m
			}
		}
		return best
	}
	assert.Less(t, loudest(low), loudest(high))
}

func TestExtractRejectsEmptySegment(t *testing.T) {
	e := newExtractor(t)
	_, err := e.Extract(audio.Segment{})
	assert.ErrorIs(t, err, audio.ErrInvalidAudio)
}

func TestMelScaleRoundTrip(t *testing.T) {
	for _, hz := range []float64{0, 100, 700, 4000, 24000} {
		assert.InDelta(t, hz, melToHz(hzToMel(hz)), 1e-6)
	}
	assert.InDelta(t, 1000.0, hzToMel(1000), 0.1)
}

func TestMelBankIsSharedAndAreaNormalized(t *testing.T) {
	p := DefaultParams()
	a := melBank(p)
	b := melBank(p)
	require.Len(t, a, p.NMels)
	assert.Same(t, &a[0][0], &b[0][0])

	binHz := float64(p.SampleRate) / float64(p.NFFT)
	for m, row := range a {
		require.Len(t, row, p.Bins())
		for _, v := range row {
			if v < 0 {
				t.Fatalf("filter %d has negative weight %v", m, v)
			}
		}
		// Upper filters span many bins, so the sampled area is close to the
		// continuous one.
		if m >= p.NMels/2 {
			assert.InDelta(t, 1.0, floats.Sum(row)*binHz, 0.05, "filter %d area", m)
		}
	}
	var top float64
	for _, v := range a[p.NMels-1] {
		top = math.Max(top, v)
	}
	assert.Less(t, top, 0.01, "wide filters are scaled well below unit peak")
}

func TestZeroPad(t *testing.T) {
	got := zeroPad([]float64{1, 2, 3, 4}, 2)
	assert.Equal(t, []float64{0, 0, 1, 2, 3, 4, 0, 0}, got)
}

func TestParamsValidate(t *testing.T) {
	p := DefaultParams()
	require.NoError(t, p.Validate())
	assert.Equal(t, 188, p.Frames(audio.SegmentSamples))

	bad := p
	bad.FMax = 30000
	assert.Error(t, bad.Validate())
	bad = p
	bad.NFFT = 1023
	assert.Error(t, bad.Validate())
}

func TestTensorPool(t *testing.T) {
	tensor := NewTensor(2, 3, []float32{0, 0.5, 1, 0.25, 0.25, 0.25})
	assert.Equal(t, []float64{0.5, 0.25, 1, 0.25}, tensor.Pool())

	row := tensor.Row(0)
	row[0] = 9
	assert.Equal(t, float32(0), tensor.At(0, 0))
}

func TestStatsComputeAndCache(t *testing.T) {
	stats, err := ComputeStats([][]float64{{1, 5}, {3, 5}})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 5}, stats.Mean)
	assert.Equal(t, 1.0, stats.Std[0])
	assert.Equal(t, minStd, stats.Std[1])
	assert.Equal(t, []float64{1, 0}, stats.Standardize([]float64{3, 5}))

	path := filepath.Join(t.TempDir(), "bark_mean.json")
	_, ok, err := LoadStats(path)
	require.NoError(t, err)
	assert.False(t, ok)

	stats.Fingerprint = "abc"
	require.NoError(t, SaveStats(path, stats))
	loaded, ok, err := LoadStats(path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, stats, loaded)
}

func TestComputeStatsRejectsRaggedInput(t *testing.T) {
	_, err := ComputeStats([][]float64{{1, 2}, {3}})
	assert.Error(t, err)
	_, err = ComputeStats(nil)
	assert.Error(t, err)
}
