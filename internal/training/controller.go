package training

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"dtrack/internal/augment"
	"dtrack/internal/config"
	"dtrack/internal/features"
	"dtrack/internal/history"
	"dtrack/internal/logging"
	"dtrack/internal/nnet"
	"dtrack/internal/observe"
	"dtrack/internal/registry"
	"dtrack/internal/textutil"
	"dtrack/internal/workspace"
)

// Deps are the collaborators a Controller needs. History and Metrics are
// optional.
type Deps struct {
	Layout    workspace.Layout
	Registry  *registry.Registry
	Extractor *features.Extractor
	History   *history.Store
	Metrics   *observe.Metrics
	Logger    *slog.Logger
}

// Controller trains detector models one run at a time per model.
type Controller struct {
	opts      Options
	layout    workspace.Layout
	registry  *registry.Registry
	extractor *features.Extractor
	history   *history.Store
	metrics   *observe.Metrics
	logger    *slog.Logger

	newAugmenter   func(augment.Options) sampleAugmenter
	wrapClassifier func(nnet.Classifier) nnet.Classifier
}

// NewController validates opts and wires deps.
func NewController(opts Options, deps Deps) (*Controller, error) {
	if deps.Registry == nil {
		return nil, errors.New("training: registry is required")
	}
	if deps.Extractor == nil {
		return nil, errors.New("training: feature extractor is required")
	}
	if opts.BatchSize <= 0 {
		return nil, errors.New("training: batch size must be positive")
	}
	if opts.LearningRate <= 0 {
		return nil, errors.New("training: learning rate must be positive")
	}
	if (opts.Mode == config.ModePatience || opts.Mode == "") && opts.Patience <= 0 {
		return nil, errors.New("training: patience must be positive in patience mode")
	}
	if _, err := NewPolicy(opts); err != nil {
		return nil, err
	}
	if opts.ParallelModels <= 0 {
		opts.ParallelModels = 1
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	c := &Controller{
		opts:      opts,
		layout:    deps.Layout,
		registry:  deps.Registry,
		extractor: deps.Extractor,
		history:   deps.History,
		metrics:   metrics,
		logger:    logging.NewComponentLogger(deps.Logger, "training"),
	}
	c.newAugmenter = func(o augment.Options) sampleAugmenter { return augment.New(o) }
	return c, nil
}

// Train runs one training session for model. Cancellation of ctx ends the run
// with OutcomeInterrupted and no error; the last committed checkpoint stays
// in the registry.
func (c *Controller) Train(ctx context.Context, model string) (Summary, error) {
	summary := Summary{
		Model:     model,
		RunID:     history.NewRunID(),
		Mode:      c.opts.Mode,
		StartedAt: time.Now(),
	}
	if err := textutil.ValidateModelName(model); err != nil {
		return c.finish(ctx, summary, err)
	}

	lockPath := c.layout.LockPath(model)
	lock, err := acquireModelLock(model, lockPath)
	if err != nil {
		return c.finish(ctx, summary, err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			c.logger.Warn("failed to release model lock",
				logging.String(logging.FieldModel, model),
				logging.Error(err),
			)
		}
	}()

	ctx = logging.WithRunID(logging.WithModel(ctx, model), summary.RunID)
	ctx, span := observe.StartSpan(ctx, "training.run", observe.ModelAttr(model))
	done := c.metrics.TrackActive(ctx, model)

	r, err := c.newRun(ctx, model)
	if err == nil {
		err = r.execute(ctx)
		r.fill(&summary)
	}
	done()
	observe.EndSpan(span, err)
	return c.finish(ctx, summary, err)
}

// finish stamps, records, and logs a run. The error is returned unchanged.
func (c *Controller) finish(ctx context.Context, summary Summary, runErr error) (Summary, error) {
	summary.FinishedAt = time.Now()
	logger := logging.WithContext(ctx, c.logger)
	if runErr != nil {
		summary.Outcome = OutcomeFailed
		summary.Err = runErr
		logging.ErrorWithContext(logger, "training run failed", "training_failed",
			logging.String(logging.FieldModel, summary.Model),
			logging.Error(runErr),
			logging.String(logging.FieldErrorHint, errorHint(runErr)),
		)
	} else {
		logger.Info("training run finished",
			logging.String("outcome", string(summary.Outcome)),
			logging.Int("epochs", summary.Epochs),
			logging.Float64("best_score", summary.BestScore),
			logging.Int("best_epoch", summary.BestEpoch),
			logging.Bool("committed", summary.Committed),
			logging.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
		)
	}

	recordCtx := context.WithoutCancel(ctx)
	c.metrics.RecordRun(recordCtx, summary.Model, string(summary.Outcome))
	if c.history != nil {
		run := &history.Run{
			ID:           summary.RunID,
			Model:        summary.Model,
			Mode:         summary.Mode,
			Outcome:      string(summary.Outcome),
			StartedAt:    summary.StartedAt,
			FinishedAt:   summary.FinishedAt,
			Epochs:       summary.Epochs,
			Classes:      summary.Catalog.Len(),
			BestScore:    summary.BestScore,
			LearningRate: summary.LearningRate,
			Committed:    summary.Committed,
		}
		if runErr != nil {
			run.Error = runErr.Error()
		}
		if err := c.history.Record(recordCtx, run); err != nil {
			logging.WarnWithContext(logger, "failed to record training run", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that history.db is writable"),
				logging.String(logging.FieldImpact, "run is missing from dtrack history"),
			)
		}
	}
	return summary, runErr
}

// TrainAll trains each model, up to Options.ParallelModels at a time. A
// failing model does not stop the others; the returned error joins every
// per-model failure. Summaries follow the order of models.
func (c *Controller) TrainAll(ctx context.Context, models []string) ([]Summary, error) {
	summaries := make([]Summary, len(models))
	var g errgroup.Group
	g.SetLimit(c.opts.ParallelModels)
	for i, model := range models {
		g.Go(func() error {
			summaries[i], _ = c.Train(ctx, model)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, s := range summaries {
		if s.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Model, s.Err))
		}
	}
	return summaries, errors.Join(errs...)
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, ErrModelLocked):
		return "wait for the other training process or remove a stale lock file"
	case errors.Is(err, ErrNoValidation):
		return "add more samples per class so each class has a validation sample"
	default:
		return "check the tags directory and workspace permissions"
	}
}
