package inference_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtrack/internal/audio"
	"dtrack/internal/config"
	"dtrack/internal/history"
	"dtrack/internal/inference"
	"dtrack/internal/registry"
	"dtrack/internal/testsupport"
	"dtrack/internal/training"
)

func TestTrainedModelRecognizesHeldOutSamples(t *testing.T) {
	if testing.Short() {
		t.Skip("trains a model")
	}
	cfg := testsupport.NewConfig(t, testsupport.WithMode(config.ModePlateau), testsupport.WithEpochs(40))
	cfg.Training.TargetAccuracy = 0.9
	layout := cfg.Layout()
	require.NoError(t, layout.Ensure())
	testsupport.WriteToneTags(t, filepath.Join(layout.TagsDir(), "bark"),
		testsupport.ToneClass{Label: "bark", Freq: 5000, Samples: 20},
		testsupport.ToneClass{Label: "quiet", Freq: 150, Amplitude: 0.1, Samples: 20},
	)

	ext := newExtractor(t)
	reg := registry.New(layout.ModelsDir(), nil)
	hist, err := history.Open(layout.HistoryPath())
	require.NoError(t, err)
	defer hist.Close()

	ctrl, err := training.NewController(training.OptionsFromConfig(cfg), training.Deps{
		Layout:    layout,
		Registry:  reg,
		Extractor: ext,
		History:   hist,
	})
	require.NoError(t, err)
	summary, err := ctrl.Train(context.Background(), "bark")
	require.NoError(t, err)
	require.GreaterOrEqual(t, summary.BestScore, 0.9)

	agg, err := inference.Load(reg, []string{"bark"}, ext, inference.Options{})
	require.NoError(t, err)

	cases := []struct {
		label string
		freq  float64
		amp   float64
	}{
		{"bark", 5000, 0.5},
		{"quiet", 150, 0.1},
	}
	const trials = 10
	correct := 0
	for _, tc := range cases {
		for i := range trials {
			seg, err := audio.SegmentFromSamples(testsupport.Tone(tc.freq, tc.amp, audio.SegmentSamples, uint64(9000+i)))
			require.NoError(t, err)
			results, err := agg.Infer(context.Background(), seg)
			require.NoError(t, err)
			if results["bark"].Match == tc.label {
				correct++
			}
		}
	}
	assert.GreaterOrEqual(t, float64(correct)/float64(len(cases)*trials), 0.9)
}
