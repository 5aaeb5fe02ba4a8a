package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	modelsDir     = "models"
	tagsDir       = "tags"
	logsDir       = "logs"
	historyFile   = "history.db"
	logFile       = "dtrack.log"
	statsSuffix   = "_mean.json"
	lockExtension = ".lock"
)

// Layout resolves every path dtrack reads or writes under one workspace root.
//
//	<root>/models/<name>.checkpoint
//	<root>/models/<name>_labels.json
//	<root>/models/<name>.onnx
//	<root>/models/<name>.lock
//	<root>/tags/<class>/*.wav|*.dat
//	<root>/<name>_mean.json
//	<root>/history.db
type Layout struct {
	Root string
}

// New returns a layout rooted at root.
func New(root string) Layout {
	return Layout{Root: filepath.Clean(root)}
}

// ModelsDir holds checkpoints, catalogs, portable exports, and training locks.
func (l Layout) ModelsDir() string {
	return filepath.Join(l.Root, modelsDir)
}

// TagsDir is the shared curation input directory.
func (l Layout) TagsDir() string {
	return filepath.Join(l.Root, tagsDir)
}

// TagsDirFor returns tags/<model> when that directory exists, otherwise the
// shared tags directory.
func (l Layout) TagsDirFor(model string) string {
	dedicated := filepath.Join(l.TagsDir(), model)
	if info, err := os.Stat(dedicated); err == nil && info.IsDir() {
		return dedicated
	}
	return l.TagsDir()
}

// StatsPath is the normalization statistics cache for a model.
func (l Layout) StatsPath(model string) string {
	return filepath.Join(l.Root, model+statsSuffix)
}

// LockPath is the per-model training lock file.
func (l Layout) LockPath(model string) string {
	return filepath.Join(l.ModelsDir(), model+lockExtension)
}

func (l Layout) HistoryPath() string {
	return filepath.Join(l.Root, historyFile)
}

func (l Layout) LogPath() string {
	return filepath.Join(l.Root, logFile)
}

// RunLogDir holds per-run log files.
func (l Layout) RunLogDir() string {
	return filepath.Join(l.Root, logsDir)
}

// Ensure creates the workspace directories that dtrack writes into. The tags
// directory is left alone; it is operator-owned input.
func (l Layout) Ensure() error {
	if l.Root == "" || l.Root == "." {
		return errors.New("workspace root is not set")
	}
	for _, dir := range []string{l.Root, l.ModelsDir(), l.RunLogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HasTags reports whether the shared tags directory exists.
func (l Layout) HasTags() (bool, error) {
	info, err := os.Stat(l.TagsDir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat tags directory: %w", err)
	}
	return info.IsDir(), nil
}
