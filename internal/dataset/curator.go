package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dtrack/internal/audio"
	"dtrack/internal/logging"
	"dtrack/internal/textutil"
)

// Sample is one labeled audio file.
type Sample struct {
	Path  string
	Class int
	Label string
	Size  int64
}

// Result is the output of one curation pass.
type Result struct {
	Root       string
	Catalog    Catalog
	Counts     []int
	Weights    []float64
	Train      []Sample
	Validation []Sample
}

// Total returns the number of samples across both partitions.
func (r Result) Total() int { return len(r.Train) + len(r.Validation) }

// Fingerprint identifies the training partition by path, size and class.
// It changes whenever a sample is added, removed, resized or relabeled.
func (r Result) Fingerprint() string {
	h := sha256.New()
	for _, label := range r.Catalog {
		fmt.Fprintf(h, "c:%s\n", label)
	}
	for _, s := range r.Train {
		fmt.Fprintf(h, "s:%s|%d|%d\n", s.Path, s.Size, s.Class)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Options tunes curation.
type Options struct {
	ValidationFraction float64
	Seed               uint64
	Logger             *slog.Logger
}

// Curator discovers classes and samples under a tags directory.
type Curator struct {
	opts   Options
	logger *slog.Logger
}

// NewCurator builds a curator. A non-positive fraction falls back to 0.2.
func NewCurator(opts Options) *Curator {
	if opts.ValidationFraction <= 0 || opts.ValidationFraction >= 1 {
		opts.ValidationFraction = 0.2
	}
	return &Curator{opts: opts, logger: logging.NewComponentLogger(opts.Logger, "dataset")}
}

type classDir struct {
	label string
	path  string
}

// Curate scans root for one sub-directory per class, builds the catalog,
// computes class weights, and splits every class into train and validation
// partitions with the configured fraction.
func (c *Curator) Curate(root string) (Result, error) {
	classes, err := discoverClasses(root)
	if err != nil {
		return Result{}, err
	}
	if len(classes) < 2 {
		return Result{}, &InsufficientClassesError{Root: root, Found: len(classes)}
	}

	catalog := make(Catalog, len(classes))
	perClass := make([][]Sample, len(classes))
	counts := make([]int, len(classes))
	total := 0
	for idx, class := range classes {
		catalog[idx] = class.label
		samples, err := listSamples(class.path, idx, class.label)
		if err != nil {
			return Result{}, err
		}
		perClass[idx] = samples
		counts[idx] = len(samples)
		total += len(samples)
		if len(samples) == 0 {
			logging.WarnWithContext(c.logger, "class folder has no samples", "dataset_empty_class",
				logging.String("class", class.label),
				logging.String("path", class.path),
				logging.String(logging.FieldErrorHint, "add .wav or .dat recordings to the folder or remove it"),
				logging.String(logging.FieldImpact, "class keeps its catalog slot with weight 0"),
			)
		}
	}
	if total == 0 {
		return Result{}, &EmptyDatasetError{Root: root, Classes: len(classes)}
	}

	train, validation := StratifiedSplit(perClass, c.opts.ValidationFraction, c.opts.Seed)
	result := Result{
		Root:       root,
		Catalog:    catalog,
		Counts:     counts,
		Weights:    ClassWeights(counts),
		Train:      train,
		Validation: validation,
	}
	c.logger.Info("dataset curated",
		logging.String("root", root),
		logging.Int("classes", len(catalog)),
		logging.Int("train", len(train)),
		logging.Int("validation", len(validation)),
	)
	return result, nil
}

// ClassWeights returns total/(classes×count) per class, or 0 for classes
// without samples.
func ClassWeights(counts []int) []float64 {
	total := 0
	for _, n := range counts {
		total += n
	}
	weights := make([]float64, len(counts))
	for i, n := range counts {
		if n == 0 {
			continue
		}
		weights[i] = float64(total) / float64(len(counts)*n)
	}
	return weights
}

// StratifiedSplit shuffles each class with a seeded generator and moves
// round(n×fraction) samples, at least one when n ≥ 2 and never all of them,
// into the validation partition.
func StratifiedSplit(perClass [][]Sample, fraction float64, seed uint64) (train, validation []Sample) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for _, samples := range perClass {
		shuffled := append([]Sample(nil), samples...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		n := len(shuffled)
		nVal := int(math.Round(float64(n) * fraction))
		if n >= 2 {
			nVal = min(max(nVal, 1), n-1)
		} else {
			nVal = 0
		}
		validation = append(validation, shuffled[:nVal]...)
		train = append(train, shuffled[nVal:]...)
	}
	return train, validation
}

func discoverClasses(root string) ([]classDir, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read tags directory %s: %w", root, err)
	}
	var classes []classDir
	seen := make(map[string]string)
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		label := textutil.NormalizeLabel(entry.Name())
		if label == "" {
			continue
		}
		if prev, ok := seen[label]; ok {
			return nil, fmt.Errorf("class folders %q and %q normalize to the same label %q", prev, entry.Name(), label)
		}
		seen[label] = entry.Name()
		classes = append(classes, classDir{label: label, path: filepath.Join(root, entry.Name())})
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].label < classes[j].label })
	return classes, nil
}

func listSamples(dir string, class int, label string) ([]Sample, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read class folder %s: %w", dir, err)
	}
	var samples []Sample
	for _, entry := range entries {
		if entry.IsDir() || !audio.IsSampleFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		samples = append(samples, Sample{
			Path:  filepath.Join(dir, entry.Name()),
			Class: class,
			Label: label,
			Size:  info.Size(),
		})
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].Path < samples[j].Path })
	return samples, nil
}
