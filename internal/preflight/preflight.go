package preflight

import (
	"context"

	"dtrack/internal/config"
	"dtrack/internal/registry"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// RunAll executes every applicable preflight check for the given config.
// Per-model checks run for each configured model name.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	layout := cfg.Layout()

	var results []Result

	// Workspace directory (always checked)
	results = append(results, CheckDirectoryAccess("Workspace", layout.Root))

	// Models directory only exists after the first run
	results = append(results, CheckDirectoryAccess("Models directory", layout.ModelsDir()))

	results = append(results, CheckTagsRoot(layout))
	results = append(results, CheckDevice(cfg.Training.Device))
	results = append(results, CheckHistory(ctx, layout.HistoryPath()))

	reg := registry.New(layout.ModelsDir(), nil)
	for _, model := range cfg.Models.Names {
		results = append(results, CheckTags(model, layout.TagsDirFor(model)))
		results = append(results, CheckModel(reg, model))
	}
	return results
}
