package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"dtrack/internal/config"
	"dtrack/internal/history"
	"dtrack/internal/logging"
	"dtrack/internal/observe"
	"dtrack/internal/preflight"
	"dtrack/internal/textutil"
	"dtrack/internal/training"
)

type trainFlags struct {
	mode        string
	epochs      int
	exportONNX  bool
	metricsAddr string
	jsonOutput  bool
}

func newTrainCommand(ctx *commandContext) *cobra.Command {
	var flags trainFlags

	cmd := &cobra.Command{
		Use:   "train [model...]",
		Short: "Train models from the workspace tag folders",
		Long: "Train each named model (or every model in [models] names) from the\n" +
			"workspace tags. The best checkpoint is committed whenever validation\n" +
			"improves; interrupting training keeps the last committed checkpoint.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			models, err := ctx.resolveModels(args)
			if err != nil {
				return err
			}
			if err := applyTrainFlags(cmd, cfg, flags); err != nil {
				return err
			}
			return runTrain(cmd, ctx, cfg, models, flags)
		},
	}

	cmd.Flags().StringVar(&flags.mode, "mode", "", "Training policy: patience or plateau (default from config)")
	cmd.Flags().IntVar(&flags.epochs, "epochs", 0, "Maximum epochs per model; 0 keeps the config value")
	cmd.Flags().BoolVar(&flags.exportONNX, "export-onnx", false, "Export an ONNX model after training")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while training (e.g. :9464)")
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "Print run summaries as JSON")
	return cmd
}

func applyTrainFlags(cmd *cobra.Command, cfg *config.Config, flags trainFlags) error {
	if mode := strings.ToLower(strings.TrimSpace(flags.mode)); mode != "" {
		cfg.Training.Mode = mode
	}
	if cmd.Flags().Changed("epochs") {
		cfg.Training.Epochs = flags.epochs
	}
	if flags.exportONNX {
		cfg.Training.ExportONNX = true
	}
	return cfg.Validate()
}

// runLogPattern matches the per-invocation logs written by train.
const runLogPattern = "train-*.log"

func runTrain(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, models []string, flags trainFlags) error {
	layout := cfg.Layout()
	runLog := filepath.Join(layout.RunLogDir(), fmt.Sprintf("train-%s.log", time.Now().UTC().Format("20060102T150405")))
	logger, err := ctx.teeRunLog(runLog)
	defer ctx.close()
	if err != nil {
		logger.Warn("run log unavailable", logging.String("path", runLog), logging.Error(err))
	}
	logging.PruneRunLogs(logger, layout.RunLogDir(), runLogPattern, runLog, cfg.Logging.RetentionDays)

	for _, model := range models {
		if err := textutil.ValidateModelName(model); err != nil {
			return err
		}
		if check := preflight.CheckTags(model, layout.TagsDirFor(model)); !check.Passed {
			logging.WarnWithContext(logger, "tag folders are not ready", "preflight_failed",
				logging.String(logging.FieldModel, model),
				logging.String("detail", check.Detail),
				logging.String(logging.FieldImpact, "this model fails; other models still train"),
			)
		}
	}

	runCtx, stop := context.WithCancel(cmd.Context())
	defer stop()
	var g errgroup.Group
	var metrics *observe.Metrics
	if addr := strings.TrimSpace(flags.metricsAddr); addr != "" {
		shutdown, err := observe.InitProvider(runCtx, observe.ProviderConfig{ServiceName: "dtrack"})
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		defer shutdown(context.WithoutCancel(runCtx)) //nolint:errcheck
		srv, err := observe.ListenMetrics(addr, logger)
		if err != nil {
			return err
		}
		g.Go(func() error {
			if err := srv.Serve(runCtx); err != nil {
				logging.WarnWithContext(logger, "metrics endpoint stopped", "metrics_server_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "training continues without /metrics"),
				)
			}
			return nil
		})
		metrics = observe.DefaultMetrics()
	}

	hist, err := history.Open(layout.HistoryPath())
	if err != nil {
		return err
	}
	defer hist.Close()

	ext, err := newExtractor()
	if err != nil {
		return err
	}
	reg, err := ctx.registry()
	if err != nil {
		return err
	}
	ctrl, err := training.NewController(training.OptionsFromConfig(cfg), training.Deps{
		Layout:    layout,
		Registry:  reg,
		Extractor: ext,
		History:   hist,
		Metrics:   metrics,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	summaries, trainErr := ctrl.TrainAll(cmd.Context(), models)
	stop()
	_ = g.Wait()

	if flags.jsonOutput {
		if err := writeJSON(cmd, summaryViews(summaries)); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), renderSummaries(summaries))
	}
	if trainErr != nil {
		return fmt.Errorf("training failed: %w", trainErr)
	}
	return nil
}

type summaryView struct {
	Model      string   `json:"model"`
	RunID      string   `json:"run_id"`
	Mode       string   `json:"mode"`
	Outcome    string   `json:"outcome"`
	Epochs     int      `json:"epochs"`
	BestEpoch  int      `json:"best_epoch"`
	BestScore  *float64 `json:"best_score,omitempty"`
	Classes    []string `json:"classes,omitempty"`
	WarmStart  bool     `json:"warm_start"`
	Committed  bool     `json:"committed"`
	Portable   string   `json:"portable,omitempty"`
	DurationMS int64    `json:"duration_ms"`
	Error      string   `json:"error,omitempty"`
}

func summaryViews(summaries []training.Summary) []summaryView {
	views := make([]summaryView, 0, len(summaries))
	for _, s := range summaries {
		v := summaryView{
			Model:      s.Model,
			RunID:      s.RunID,
			Mode:       s.Mode,
			Outcome:    string(s.Outcome),
			Epochs:     s.Epochs,
			BestEpoch:  s.BestEpoch,
			Classes:    []string(s.Catalog),
			WarmStart:  s.WarmStart,
			Committed:  s.Committed,
			Portable:   s.PortablePath,
			DurationMS: s.FinishedAt.Sub(s.StartedAt).Milliseconds(),
		}
		if s.HasScore() {
			v.BestScore = jsonScore(s.BestScore)
		}
		if s.Err != nil {
			v.Error = s.Err.Error()
		}
		views = append(views, v)
	}
	return views
}

func renderSummaries(summaries []training.Summary) string {
	columns := []column{col("Model"), col("Outcome"), numCol("Epochs"), numCol("Best"), numCol("Classes"), col("Warm"), col("Committed"), numCol("Elapsed")}
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		best := "-"
		if s.HasScore() {
			best = fmt.Sprintf("%s @%d", formatScore(s.BestScore), s.BestEpoch)
		}
		rows = append(rows, []string{
			s.Model,
			string(s.Outcome),
			fmt.Sprintf("%d", s.Epochs),
			best,
			fmt.Sprintf("%d", s.Catalog.Len()),
			yesNo(s.WarmStart),
			yesNo(s.Committed),
			s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond).String(),
		})
	}
	return renderTable(columns, rows)
}
