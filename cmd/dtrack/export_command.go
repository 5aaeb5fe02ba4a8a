package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"dtrack/internal/config"
	"dtrack/internal/fileutil"
	"dtrack/internal/nnet"
	"dtrack/internal/registry"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export <model>",
		Short: "Write the ONNX form of a trained model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := ctx.registry()
			if err != nil {
				return err
			}
			path, err := exportModel(reg, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if target := strings.TrimSpace(outPath); target != "" {
				if target, err = config.ExpandPath(target); err != nil {
					return fmt.Errorf("resolve output path: %w", err)
				}
				if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
				if err := fileutil.CopyFileVerified(path, target); err != nil {
					return fmt.Errorf("copy export: %w", err)
				}
				fmt.Fprintf(out, "Copied %s to %s\n", path, target)
				return nil
			}
			fmt.Fprintf(out, "Exported %s to %s\n", args[0], path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Also copy the .onnx file to this path")
	return cmd
}

// exportModel re-exports the committed checkpoint of name.
func exportModel(reg *registry.Registry, name string) (string, error) {
	artifact, err := reg.Load(name)
	if err != nil {
		return "", err
	}
	cl, err := nnet.Load(artifact.Checkpoint)
	if err != nil {
		return "", fmt.Errorf("load checkpoint %s: %w", name, err)
	}
	portable, ok := cl.(registry.Portable)
	if !ok {
		return "", &registry.ExportError{Model: name, Reason: fmt.Sprintf("classifier %T has no portable form", cl)}
	}
	return reg.ExportPortable(name, portable, artifact.Catalog.Len())
}
