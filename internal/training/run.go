package training

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"dtrack/internal/audio"
	"dtrack/internal/dataset"
	"dtrack/internal/features"
	"dtrack/internal/logging"
	"dtrack/internal/nnet"
	"dtrack/internal/registry"
)

// run is the mutable state of one Train call. It is owned by a single
// goroutine.
type run struct {
	c          *Controller
	model      string
	logger     *slog.Logger
	policy     Policy
	state      RunState
	data       dataset.Result
	classifier nnet.Classifier
	warm       bool
	augmenter  sampleAugmenter
	rng        *rand.Rand
	validation []nnet.Example
	// trainCache holds unaugmented training tensors; nil while augmenting.
	trainCache map[string]features.Tensor
	unreadable map[string]struct{}
	progress   *logging.ProgressSampler
	best       *snapshot
	outcome    Outcome
	portable   string
}

// sampleAugmenter perturbs training segments. *augment.Augmenter is the
// production implementation.
type sampleAugmenter interface {
	Enabled() bool
	Apply(seg audio.Segment) (audio.Segment, error)
}

// snapshot is a serialized classifier ready for the registry.
type snapshot struct {
	payload []byte
	classes int
}

func (s *snapshot) MarshalBinary() ([]byte, error) { return s.payload, nil }

func (s *snapshot) NumClasses() int { return s.classes }

func (c *Controller) newRun(ctx context.Context, model string) (*run, error) {
	policy, err := NewPolicy(c.opts)
	if err != nil {
		return nil, err
	}
	r := &run{
		c:          c,
		model:      model,
		logger:     logging.WithContext(ctx, c.logger),
		policy:     policy,
		rng:        rand.New(rand.NewPCG(c.opts.Seed, c.opts.Seed^0x5851f42d4c957f2d)),
		unreadable: make(map[string]struct{}),
		progress:   logging.NewProgressSampler(25),
	}
	r.state.State = StateInitializing

	curator := dataset.NewCurator(dataset.Options{
		ValidationFraction: c.opts.ValidationFraction,
		Seed:               c.opts.Seed,
		Logger:             r.logger,
	})
	if r.data, err = curator.Curate(c.layout.TagsDirFor(model)); err != nil {
		return nil, fmt.Errorf("curate dataset: %w", err)
	}
	if len(r.data.Validation) == 0 {
		return nil, fmt.Errorf("%w: %d samples across %d classes", ErrNoValidation, r.data.Total(), r.data.Catalog.Len())
	}

	device, err := nnet.SelectDevice(c.opts.Device)
	if err != nil {
		return nil, fmt.Errorf("select device: %w", err)
	}

	r.augmenter = c.newAugmenter(c.opts.Augment)
	if !r.augmenter.Enabled() {
		r.trainCache = make(map[string]features.Tensor, len(r.data.Train))
	}

	if cl, ok := r.warmStart(); ok {
		r.classifier, r.warm = cl, true
	} else {
		stats, err := r.stats()
		if err != nil {
			return nil, err
		}
		r.classifier, err = nnet.New(nnet.Config{
			NumClasses:   r.data.Catalog.Len(),
			Stats:        stats,
			LearningRate: c.opts.LearningRate,
			Momentum:     c.opts.Momentum,
			Dropout:      c.opts.Dropout,
			Seed:         c.opts.Seed,
			Frames:       c.extractor.Params().Frames(audio.SegmentSamples),
		})
		if err != nil {
			return nil, fmt.Errorf("init classifier: %w", err)
		}
	}
	if c.wrapClassifier != nil {
		r.classifier = c.wrapClassifier(r.classifier)
	}
	if err := r.classifier.To(device); err != nil {
		return nil, err
	}
	r.classifier.SetLearningRate(c.opts.LearningRate)
	r.state.LearningRate = c.opts.LearningRate

	for _, s := range r.data.Validation {
		t, ok := r.tensor(s, false)
		if !ok {
			continue
		}
		r.validation = append(r.validation, nnet.Example{Input: t, Label: s.Class})
	}
	if len(r.validation) == 0 {
		return nil, fmt.Errorf("%w: no validation sample could be decoded", ErrNoValidation)
	}
	return r, nil
}

// warmStart loads the registry checkpoint when its catalog matches the
// freshly curated one.
func (r *run) warmStart() (nnet.Classifier, bool) {
	artifact, err := r.c.registry.Load(r.model)
	switch {
	case errors.Is(err, registry.ErrArtifactNotFound):
		r.logger.Info("no previous checkpoint; cold start")
		return nil, false
	case err != nil:
		logging.WarnWithContext(r.logger, "previous checkpoint unreadable; cold start", "warm_start_skipped",
			logging.Error(err),
			logging.String(logging.FieldImpact, "training starts from random weights"),
		)
		return nil, false
	}
	if !artifact.Catalog.Equal(r.data.Catalog) {
		logging.WarnWithContext(r.logger, "class catalog changed since last checkpoint; cold start", "warm_start_skipped",
			logging.Any("previous", []string(artifact.Catalog)),
			logging.Any("current", []string(r.data.Catalog)),
			logging.String(logging.FieldErrorHint, "expected after adding or renaming class folders"),
			logging.String(logging.FieldImpact, "training starts from random weights"),
		)
		return nil, false
	}
	cl, err := nnet.Load(artifact.Checkpoint)
	if err == nil && cl.NumClasses() != r.data.Catalog.Len() {
		err = fmt.Errorf("checkpoint has %d classes, catalog has %d", cl.NumClasses(), r.data.Catalog.Len())
	}
	if err != nil {
		logging.WarnWithContext(r.logger, "previous checkpoint rejected; cold start", "warm_start_skipped",
			logging.Error(err),
			logging.String(logging.FieldImpact, "training starts from random weights"),
		)
		return nil, false
	}
	r.logger.Info("warm start from previous checkpoint", logging.Int("classes", cl.NumClasses()))
	return cl, true
}

// stats returns normalization statistics for the training partition, reusing
// the workspace cache while the training set is unchanged.
func (r *run) stats() (features.Stats, error) {
	path := r.c.layout.StatsPath(r.model)
	fingerprint := r.data.Fingerprint()
	cached, ok, err := features.LoadStats(path)
	if err != nil {
		logging.WarnWithContext(r.logger, "ignoring unreadable stats cache", "stats_cache_invalid",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "statistics are recomputed"),
		)
	}
	if ok && cached.Fingerprint == fingerprint {
		r.logger.Debug("reusing cached feature statistics", logging.String("path", path))
		return cached, nil
	}

	vectors := make([][]float64, 0, len(r.data.Train))
	for _, s := range r.data.Train {
		t, ok := r.tensor(s, false)
		if !ok {
			continue
		}
		vectors = append(vectors, t.Pool())
	}
	stats, err := features.ComputeStats(vectors)
	if err != nil {
		return features.Stats{}, fmt.Errorf("feature statistics: %w", err)
	}
	stats.Fingerprint = fingerprint
	if err := features.SaveStats(path, stats); err != nil {
		logging.WarnWithContext(r.logger, "failed to cache feature statistics", "stats_cache_write_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "statistics are recomputed next run"),
		)
	}
	r.logger.Debug("computed feature statistics", logging.Int("samples", stats.Count))
	return stats, nil
}

// tensor decodes, optionally augments, and extracts one sample. Unreadable
// files are logged once and skipped.
func (r *run) tensor(s dataset.Sample, augmented bool) (features.Tensor, bool) {
	if _, bad := r.unreadable[s.Path]; bad {
		return features.Tensor{}, false
	}
	if !augmented && r.trainCache != nil {
		if t, ok := r.trainCache[s.Path]; ok {
			return t, true
		}
	}
	seg, err := audio.ReadSegment(s.Path)
	if err == nil && augmented {
		if aug, augErr := r.augmenter.Apply(seg); augErr == nil {
			seg = aug
		} else {
			r.logger.Debug("augmentation failed; using raw sample",
				logging.String("path", s.Path),
				logging.Error(augErr),
			)
		}
	}
	var t features.Tensor
	if err == nil {
		t, err = r.c.extractor.Extract(seg)
	}
	if err != nil {
		r.unreadable[s.Path] = struct{}{}
		logging.WarnWithContext(r.logger, "skipping unreadable sample", "sample_skipped",
			logging.String("path", s.Path),
			logging.String("class", s.Label),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "re-record or delete the file"),
			logging.String(logging.FieldImpact, "sample is excluded from this run"),
		)
		return features.Tensor{}, false
	}
	if !augmented && r.trainCache != nil {
		r.trainCache[s.Path] = t
	}
	return t, true
}

func (r *run) execute(ctx context.Context) error {
	if r.warm {
		ev, err := evaluate(r.classifier, r.validation, r.data.Weights, r.data.Catalog.Len())
		if err != nil {
			return fmt.Errorf("evaluate warm checkpoint: %w", err)
		}
		r.state.BestScore = r.policy.Score(ev)
		r.logger.Info("warm checkpoint baseline",
			logging.Float64("score", r.state.BestScore),
			logging.Float64("loss", ev.Loss),
			logging.Float64("accuracy", ev.Accuracy),
		)
	} else {
		r.state.BestScore = r.policy.Baseline()
	}
	if r.policy.Satisfied(r.state.BestScore) {
		r.state.State = StateConverged
		r.outcome = OutcomeConverged
		r.logger.Info("checkpoint already meets target; nothing to train")
		return nil
	}

	schedule := r.c.opts.Schedule
	for {
		epoch := r.state.Epoch + 1
		started := time.Now()
		r.state.State = StateEpochRunning
		trainLoss, interrupted, err := r.runEpoch(ctx, epoch)
		if err != nil {
			return fmt.Errorf("epoch %d: %w", epoch, err)
		}
		if interrupted {
			r.state.State = StateInterrupted
			r.outcome = OutcomeInterrupted
			r.logger.Info("training interrupted; keeping last committed checkpoint",
				logging.Int(logging.FieldEpoch, epoch),
				logging.Bool("committed", r.state.Committed),
			)
			break
		}
		r.state.Epoch = epoch

		r.state.State = StateEvaluating
		ev, err := evaluate(r.classifier, r.validation, r.data.Weights, r.data.Catalog.Len())
		if err != nil {
			return fmt.Errorf("evaluate epoch %d: %w", epoch, err)
		}
		r.c.metrics.RecordEpoch(ctx, r.model, time.Since(started), ev.Loss)

		d := r.policy.Decide(&r.state, ev)
		r.state.State = StateStagnant
		verdict := "discarded"
		if d.Improved {
			r.state.State, verdict = StateImproved, "kept"
			if err := r.commit(); err != nil {
				return err
			}
		}
		attrs := []logging.Attr{
			logging.Int(logging.FieldEpoch, epoch),
			logging.Float64("train_loss", trainLoss),
			logging.Float64("validation_loss", ev.Loss),
			logging.Float64("accuracy", ev.Accuracy),
			logging.Float64("mean_class_accuracy", ev.MeanClassAccuracy()),
			logging.Float64("learning_rate", r.state.LearningRate),
		}
		attrs = append(attrs, logging.DecisionAttrs("checkpoint", verdict, d.Reason)...)
		r.logger.Info("epoch finished", logging.Args(attrs...)...)

		if d.PerturbLR {
			r.state.LearningRate = perturb(r.state.LearningRate, r.rng)
			logging.WarnWithContext(r.logger, "accuracy unchanged; perturbing learning rate", "learning_rate_perturbed",
				logging.Int("unchanged_rounds", r.state.Stagnation),
				logging.Float64("learning_rate", r.state.LearningRate),
				logging.String(logging.FieldImpact, "optimizer step size changed by up to 5%"),
			)
		}
		if d.Stop {
			r.state.State = StateExhausted
			if d.Outcome == OutcomeConverged {
				r.state.State = StateConverged
			}
			r.outcome = d.Outcome
			break
		}
		if next := schedule.After(epoch, r.state.LearningRate); next != r.state.LearningRate {
			r.logger.Debug("learning rate milestone",
				logging.Int(logging.FieldEpoch, epoch),
				logging.Float64("learning_rate", next),
			)
			r.state.LearningRate = next
		}
		r.classifier.SetLearningRate(r.state.LearningRate)
	}

	if r.c.opts.ExportONNX && r.best != nil {
		r.export()
	}
	return nil
}

// runEpoch trains one pass over the shuffled training partition. Context
// cancellation is honoured between batches.
func (r *run) runEpoch(ctx context.Context, epoch int) (float64, bool, error) {
	order := r.rng.Perm(len(r.data.Train))
	batchSize := r.c.opts.BatchSize
	phase := fmt.Sprintf("epoch %d", epoch)
	var lossSum float64
	var seen int
	for start := 0; start < len(order); start += batchSize {
		if ctx.Err() != nil {
			return 0, true, nil
		}
		end := min(start+batchSize, len(order))
		batch := make([]nnet.Example, 0, end-start)
		for _, idx := range order[start:end] {
			s := r.data.Train[idx]
			t, ok := r.tensor(s, r.trainCache == nil)
			if !ok {
				continue
			}
			batch = append(batch, nnet.Example{Input: t, Label: s.Class})
		}
		if len(batch) == 0 {
			continue
		}
		loss, err := r.classifier.TrainStep(batch, r.data.Weights)
		if err != nil {
			return 0, false, err
		}
		lossSum += loss * float64(len(batch))
		seen += len(batch)

		percent := 100 * float64(end) / float64(len(order))
		if r.progress.ShouldLog(percent, phase) {
			r.logger.Debug("training progress",
				logging.Int(logging.FieldEpoch, epoch),
				logging.Float64("percent", percent),
				logging.Float64("train_loss", lossSum/float64(seen)),
			)
		}
	}
	if seen == 0 {
		return 0, false, errors.New("no training sample could be decoded")
	}
	return lossSum / float64(seen), false, nil
}

// commit snapshots the classifier and persists it with the catalog.
func (r *run) commit() error {
	payload, err := r.classifier.MarshalBinary()
	if err != nil {
		return fmt.Errorf("snapshot checkpoint: %w", err)
	}
	snap := &snapshot{payload: payload, classes: r.classifier.NumClasses()}
	if err := r.c.registry.Save(r.model, r.data.Catalog, snap); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	r.best = snap
	r.state.Committed = true
	return nil
}

// export writes the portable graph of the best committed checkpoint. Failures
// are logged; the checkpoint itself is already safe.
func (r *run) export() {
	fail := func(err error) {
		logging.WarnWithContext(r.logger, "portable export failed", "export_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run dtrack export "+r.model+" to retry"),
			logging.String(logging.FieldImpact, "no .onnx file for this model"),
		)
	}
	cl, err := nnet.Load(r.best.payload)
	if err != nil {
		fail(err)
		return
	}
	portable, ok := cl.(registry.Portable)
	if !ok {
		fail(fmt.Errorf("classifier %T has no portable form", cl))
		return
	}
	path, err := r.c.registry.ExportPortable(r.model, portable, r.data.Catalog.Len())
	if err != nil {
		fail(err)
		return
	}
	r.portable = path
	r.logger.Info("portable model exported", logging.String("path", path))
}

func (r *run) fill(s *Summary) {
	s.Outcome = r.outcome
	s.Epochs = r.state.Epoch
	s.Catalog = r.data.Catalog
	s.BestScore = r.state.BestScore
	s.BestEpoch = r.state.BestEpoch
	s.LearningRate = r.state.LearningRate
	s.Committed = r.state.Committed
	s.WarmStart = r.warm
	s.PortablePath = r.portable
}
