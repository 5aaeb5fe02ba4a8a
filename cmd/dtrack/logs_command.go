package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"dtrack/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var lastRun bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the workspace log or the latest training run log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			layout := cfg.Layout()
			path := layout.LogPath()
			if lastRun {
				path, err = logs.Latest(layout.RunLogDir(), runLogPattern)
				if err != nil {
					return err
				}
				if path == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "No training run logs found")
					return nil
				}
			}

			out := cmd.OutOrStdout()
			chunk, err := logs.Tail(path, lines)
			if err != nil {
				return err
			}
			if err := printLines(out, chunk.Lines); err != nil {
				return err
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, chunk.Offset, logs.DefaultPoll, func(batch []string) error {
				return printLines(out, batch)
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing lines as they are written")
	cmd.Flags().BoolVar(&lastRun, "run", false, "Show the most recent training run log instead of the workspace log")
	return cmd
}

func printLines(w io.Writer, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}
