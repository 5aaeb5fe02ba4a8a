package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dtrack/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the workspace, tags, models and device",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := newStatusReport(cmd.OutOrStdout())
			report.header("dtrack check")

			results := preflight.RunAll(cmd.Context(), cfg)
			for _, r := range results {
				report.line(r.Name, checkKind(r), r.Detail)
			}
			if len(cfg.Models.Names) == 0 {
				report.line("Models", statusWarn, "none configured in [models] names")
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}
}

func checkKind(r preflight.Result) statusKind {
	if r.Passed {
		return statusOK
	}
	return statusFail
}
