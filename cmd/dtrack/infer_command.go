package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dtrack/internal/audio"
	"dtrack/internal/config"
	"dtrack/internal/inference"
	"dtrack/internal/registry"
	"dtrack/internal/textutil"
)

type fileInference struct {
	File   string                  `json:"file"`
	Slices []inference.SliceResult `json:"slices,omitempty"`
	Events []inference.Event       `json:"events"`
}

func newInferCommand(ctx *commandContext) *cobra.Command {
	var models []string
	var jsonOutput bool
	var all bool

	cmd := &cobra.Command{
		Use:   "infer <file|dir>...",
		Short: "Score recordings with trained models",
		Long: "Score each recording in consecutive " + audio.SegmentDuration.String() + " slices with every\n" +
			"selected model. By default only slices whose match is a disturbance are\n" +
			"listed; labels in [inference] ignore_labels count as no event.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			reg, err := ctx.registry()
			if err != nil {
				return err
			}
			names, err := inferModels(cfg, reg, models)
			if err != nil {
				return err
			}
			ext, err := newExtractor()
			if err != nil {
				return err
			}
			agg, err := inference.Load(reg, names, ext, inference.Options{Logger: ctx.appLogger()})
			if err != nil {
				return err
			}

			files, err := collectRecordings(args)
			if err != nil {
				return err
			}
			outputs := make([]fileInference, 0, len(files))
			for _, file := range files {
				rec, err := audio.ReadFile(file)
				if err != nil {
					return err
				}
				slices, err := agg.InferRecording(cmd.Context(), rec)
				if err != nil {
					return fmt.Errorf("%s: %w", file, err)
				}
				out := fileInference{File: file, Events: inference.Matches(slices, cfg.Inference.IgnoreLabels)}
				if all {
					out.Slices = slices
				}
				if out.Events == nil {
					out.Events = []inference.Event{}
				}
				outputs = append(outputs, out)
			}

			if jsonOutput {
				return writeJSON(cmd, outputs)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderInference(outputs, all))
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&models, "model", "m", nil, "Model to score with (repeatable; default: configured or all trained models)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	cmd.Flags().BoolVar(&all, "all", false, "Include every slice, not only detected events")
	return cmd
}

func inferModels(cfg *config.Config, reg *registry.Registry, flagged []string) ([]string, error) {
	if len(flagged) > 0 {
		for _, name := range flagged {
			if err := textutil.ValidateModelName(name); err != nil {
				return nil, err
			}
		}
		return flagged, nil
	}
	if len(cfg.Models.Names) > 0 {
		return cfg.Models.Names, nil
	}
	return reg.List()
}

// collectRecordings expands directories into their sample files, sorted by
// path. Files given explicitly are kept even without a known extension.
func collectRecordings(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		path, err := config.ExpandPath(arg)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("inspect path %q: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		var found []string
		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && audio.IsSampleFile(p) {
				found = append(found, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", path, err)
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, &inference.NoInputError{Source: strings.Join(args, ", ")}
	}
	return files, nil
}

func renderInference(outputs []fileInference, all bool) string {
	columns := []column{col("File"), numCol("Offset"), col("Model"), col("Match"), numCol("Confidence")}
	var rows [][]string
	for _, out := range outputs {
		name := filepath.Base(out.File)
		if all {
			for _, sr := range out.Slices {
				for _, model := range inference.SortedModels(sr.Results) {
					res := sr.Results[model]
					rows = append(rows, []string{name, formatOffset(sr.Offset), model, textutil.DisplayLabel(res.Match), fmt.Sprintf("%.4f", res.Confidence)})
				}
			}
			continue
		}
		if len(out.Events) == 0 {
			rows = append(rows, []string{name, "-", "-", "No events", "-"})
			continue
		}
		for _, ev := range out.Events {
			rows = append(rows, []string{name, formatOffset(ev.Offset), ev.Model, textutil.DisplayLabel(ev.Label), fmt.Sprintf("%.4f", ev.Confidence)})
		}
	}
	return renderTable(columns, rows)
}

func formatOffset(d time.Duration) string {
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
