package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dtrack/internal/dataset"
	"dtrack/internal/textutil"
)

func newCurateCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "curate <model>",
		Short: "Show the class catalog, weights and split training would use",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			model := args[0]
			if err := textutil.ValidateModelName(model); err != nil {
				return err
			}
			curator := dataset.NewCurator(dataset.Options{
				ValidationFraction: cfg.Training.ValidationFraction,
				Seed:               cfg.Training.Seed,
				Logger:             ctx.appLogger(),
			})
			result, err := curator.Curate(cfg.Layout().TagsDirFor(model))
			if err != nil {
				return err
			}
			views := classViews(result)
			if jsonOutput {
				return writeJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Tags: %s\n", result.Root)
			fmt.Fprintln(out, renderClasses(views))
			fmt.Fprintf(out, "Train %d, validation %d\n", len(result.Train), len(result.Validation))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the catalog as JSON")
	return cmd
}

type classView struct {
	Index      int     `json:"index"`
	Label      string  `json:"label"`
	Samples    int     `json:"samples"`
	Weight     float64 `json:"weight"`
	Train      int     `json:"train"`
	Validation int     `json:"validation"`
}

func classViews(result dataset.Result) []classView {
	views := make([]classView, result.Catalog.Len())
	for i, label := range result.Catalog {
		views[i] = classView{Index: i, Label: label, Samples: result.Counts[i], Weight: result.Weights[i]}
	}
	for _, s := range result.Train {
		views[s.Class].Train++
	}
	for _, s := range result.Validation {
		views[s.Class].Validation++
	}
	return views
}

func renderClasses(views []classView) string {
	columns := []column{numCol("#"), col("Class"), numCol("Samples"), numCol("Weight"), numCol("Train"), numCol("Validation")}
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, []string{
			fmt.Sprintf("%d", v.Index),
			textutil.DisplayLabel(v.Label),
			fmt.Sprintf("%d", v.Samples),
			fmt.Sprintf("%.3f", v.Weight),
			fmt.Sprintf("%d", v.Train),
			fmt.Sprintf("%d", v.Validation),
		})
	}
	return renderTable(columns, rows)
}
