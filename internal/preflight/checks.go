package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"dtrack/internal/dataset"
	"dtrack/internal/history"
	"dtrack/internal/logging"
	"dtrack/internal/nnet"
	"dtrack/internal/workspace"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckTagsRoot verifies that the workspace has a tags directory at all.
func CheckTagsRoot(layout workspace.Layout) Result {
	const name = "Tags directory"
	ok, err := layout.HasTags()
	switch {
	case err != nil:
		return Result{Name: name, Detail: err.Error()}
	case !ok:
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist; add one folder per class)", layout.TagsDir())}
	}
	return Result{Name: name, Passed: true, Detail: layout.TagsDir()}
}

// CheckTags curates the tag folders for model and reports whether training
// could start. Empty class folders pass with a warning in the detail.
func CheckTags(model, dir string) Result {
	name := "Tags (" + model + ")"
	if err := unix.Access(dir, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", dir, err)}
	}
	result, err := dataset.NewCurator(dataset.Options{Logger: logging.NewNop()}).Curate(dir)
	if err != nil {
		return Result{Name: name, Detail: summarizeCurateError(err)}
	}
	var empty []string
	for i, n := range result.Counts {
		if n == 0 {
			empty = append(empty, result.Catalog.Label(i))
		}
	}
	detail := fmt.Sprintf("%d classes, %d samples", result.Catalog.Len(), result.Total())
	if len(empty) > 0 {
		detail += fmt.Sprintf(" (empty: %s)", strings.Join(empty, ", "))
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckDevice resolves the configured compute device. The answer is the one
// the rest of the process will use.
func CheckDevice(pref string) Result {
	const name = "Compute device"
	device, err := nnet.SelectDevice(pref)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: string(device)}
}

// CheckHistory opens the run ledger and reads one row.
func CheckHistory(ctx context.Context, path string) Result {
	const name = "Run history"
	store, err := history.Open(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	defer store.Close()
	runs, err := store.List(ctx, "", 1)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if len(runs) == 0 {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (empty)", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (last run %s)", path, runs[0].FinishedAt.Format("2006-01-02 15:04"))}
}

func summarizeCurateError(err error) string {
	var few *dataset.InsufficientClassesError
	switch {
	case errors.As(err, &few):
		return fmt.Sprintf("%d class folder(s) found, need at least 2", few.Found)
	case errors.Is(err, dataset.ErrEmptyDataset):
		return "class folders contain no .wav or .dat samples"
	default:
		return err.Error()
	}
}
