package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dtrack/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history [model]",
		Short: "List finished training runs, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var model string
			if len(args) == 1 {
				model = args[0]
			}
			store, err := history.Open(cfg.Layout().HistoryPath())
			if err != nil {
				return err
			}
			defer store.Close()
			runs, err := store.List(cmd.Context(), model, limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, historyViews(runs))
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No training runs recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderHistory(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to show; 0 shows all")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print runs as JSON")
	return cmd
}

type historyView struct {
	ID           string    `json:"id"`
	Model        string    `json:"model"`
	Mode         string    `json:"mode"`
	Outcome      string    `json:"outcome"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Epochs       int       `json:"epochs"`
	Classes      int       `json:"classes"`
	BestScore    *float64  `json:"best_score,omitempty"`
	LearningRate float64   `json:"learning_rate"`
	Committed    bool      `json:"committed"`
	Error        string    `json:"error,omitempty"`
}

func historyViews(runs []history.Run) []historyView {
	views := make([]historyView, 0, len(runs))
	for _, r := range runs {
		v := historyView{
			ID:           r.ID,
			Model:        r.Model,
			Mode:         r.Mode,
			Outcome:      r.Outcome,
			StartedAt:    r.StartedAt,
			FinishedAt:   r.FinishedAt,
			Epochs:       r.Epochs,
			Classes:      r.Classes,
			LearningRate: r.LearningRate,
			Committed:    r.Committed,
			BestScore:    jsonScore(r.BestScore),
			Error:        r.Error,
		}
		views = append(views, v)
	}
	return views
}

func renderHistory(runs []history.Run) string {
	columns := []column{col("Finished"), col("Model"), col("Mode"), col("Outcome"), numCol("Epochs"), numCol("Best"), numCol("Duration"), col("Run")}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		rows = append(rows, []string{
			r.FinishedAt.Local().Format("2006-01-02 15:04"),
			r.Model,
			r.Mode,
			r.Outcome,
			fmt.Sprintf("%d", r.Epochs),
			formatScore(r.BestScore),
			r.Duration().Round(time.Second).String(),
			id,
		})
	}
	return renderTable(columns, rows)
}
