package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dtrack/internal/audio"
	"dtrack/internal/dataset"
	"dtrack/internal/features"
	"dtrack/internal/logging"
	"dtrack/internal/nnet"
	"dtrack/internal/observe"
	"dtrack/internal/registry"
)

// Options carries optional collaborators.
type Options struct {
	Metrics *observe.Metrics
	Logger  *slog.Logger
}

type loadedModel struct {
	name       string
	catalog    dataset.Catalog
	classifier nnet.Classifier
}

// Aggregator scores segments with a fixed set of loaded models. It is safe
// for concurrent use; loaded classifiers are only read.
type Aggregator struct {
	models    []loadedModel
	extractor *features.Extractor
	metrics   *observe.Metrics
	logger    *slog.Logger
}

// Load reads each named artifact from reg. A model that was never trained is
// logged and skipped; if nothing loads, Load returns an
// *UnconfiguredModelsError. Any other artifact problem is returned as is.
func Load(reg *registry.Registry, names []string, extractor *features.Extractor, opts Options) (*Aggregator, error) {
	if extractor == nil {
		return nil, errors.New("inference: feature extractor is required")
	}
	a := &Aggregator{
		extractor: extractor,
		metrics:   opts.Metrics,
		logger:    logging.NewComponentLogger(opts.Logger, "inference"),
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		artifact, err := reg.Load(name)
		if errors.Is(err, registry.ErrArtifactNotFound) {
			logging.WarnWithContext(a.logger, "model has no trained artifact; skipping", "model_missing",
				logging.String(logging.FieldModel, name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run dtrack train "+name),
				logging.String(logging.FieldImpact, "segments are not scored for this model"),
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load model %s: %w", name, err)
		}
		cl, err := nnet.Load(artifact.Checkpoint)
		if err != nil {
			return nil, fmt.Errorf("load model %s: %w", name, err)
		}
		if cl.NumClasses() != artifact.Catalog.Len() {
			return nil, &registry.CatalogMismatchError{Model: name, Catalog: artifact.Catalog.Len(), Classes: cl.NumClasses()}
		}
		if err := cl.To(nnet.CurrentDevice()); err != nil {
			return nil, fmt.Errorf("load model %s: %w", name, err)
		}
		a.models = append(a.models, loadedModel{name: name, catalog: artifact.Catalog, classifier: cl})
		a.logger.Debug("model loaded",
			logging.String(logging.FieldModel, name),
			logging.Any("catalog", []string(artifact.Catalog)),
		)
	}
	if len(a.models) == 0 {
		return nil, &UnconfiguredModelsError{Requested: names}
	}
	return a, nil
}

// Models returns the names of the loaded models in load order.
func (a *Aggregator) Models() []string {
	names := make([]string, len(a.models))
	for i, m := range a.models {
		names[i] = m.name
	}
	return names
}

// Catalog returns the persisted catalog of a loaded model.
func (a *Aggregator) Catalog(model string) (dataset.Catalog, bool) {
	for _, m := range a.models {
		if m.name == model {
			return m.catalog.Clone(), true
		}
	}
	return nil, false
}

// Infer scores one segment with every loaded model.
func (a *Aggregator) Infer(ctx context.Context, seg audio.Segment) (map[string]Result, error) {
	if seg.IsZero() {
		return nil, &NoInputError{Source: "segment"}
	}
	if a == nil || len(a.models) == 0 {
		return nil, &UnconfiguredModelsError{}
	}
	ctx, span := observe.StartSpan(ctx, "inference.segment")
	results, err := a.infer(ctx, seg)
	observe.EndSpan(span, err)
	return results, err
}

func (a *Aggregator) infer(ctx context.Context, seg audio.Segment) (map[string]Result, error) {
	started := time.Now()
	tensor, err := a.extractor.Extract(seg)
	if err != nil {
		return nil, fmt.Errorf("extract features: %w", err)
	}
	results := make(map[string]Result, len(a.models))
	for _, m := range a.models {
		logits, err := m.classifier.Forward(tensor)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", m.name, err)
		}
		res := score(m.catalog, nnet.Softmax(logits))
		results[m.name] = res
		a.metrics.RecordMatch(ctx, m.name, res.Match)
	}
	a.metrics.RecordInference(ctx, time.Since(started), len(a.models))
	return results, nil
}

// InferPCM scores raw s16le bytes. Short buffers are zero-padded to one
// segment; long buffers are truncated.
func (a *Aggregator) InferPCM(ctx context.Context, pcm []byte) (map[string]Result, error) {
	if len(pcm) == 0 {
		return nil, &NoInputError{Source: "pcm"}
	}
	seg, err := audio.NewSegment(pcm)
	if err != nil {
		return nil, err
	}
	return a.Infer(ctx, seg)
}

// InferRecording scores every consecutive slice of rec. Cancellation is
// checked between slices.
func (a *Aggregator) InferRecording(ctx context.Context, rec audio.Recording) ([]SliceResult, error) {
	segments := rec.Slices()
	if len(segments) == 0 {
		return nil, &NoInputError{Source: rec.Source}
	}
	ctx, span := observe.StartSpan(ctx, "inference.recording")
	out := make([]SliceResult, 0, len(segments))
	var err error
	for i, seg := range segments {
		if err = ctx.Err(); err != nil {
			break
		}
		var results map[string]Result
		if results, err = a.Infer(ctx, seg); err != nil {
			err = fmt.Errorf("slice %d: %w", i, err)
			break
		}
		out = append(out, SliceResult{
			Index:   i,
			Offset:  time.Duration(i) * audio.SegmentDuration,
			Results: results,
		})
	}
	observe.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("recording scored",
		logging.String("source", rec.Source),
		logging.Int("slices", len(out)),
		logging.Int("models", len(a.models)),
	)
	return out, nil
}

// score turns a probability vector into a Result. The match is the argmax of
// the unrounded probabilities; reported values are rounded.
func score(catalog dataset.Catalog, probs []float64) Result {
	best := nnet.Argmax(probs)
	res := Result{
		Match:        catalog.Label(best),
		Confidence:   round(probs[best]),
		Distribution: make([]Score, len(probs)),
	}
	for i, p := range probs {
		res.Distribution[i] = Score{Label: catalog.Label(i), Probability: round(p)}
	}
	return res
}
