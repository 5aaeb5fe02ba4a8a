// Package training runs the epoch loop that turns a curated tags directory
// into a committed model checkpoint.
//
// A Controller curates the dataset, warm-starts from the registry when the
// class catalog is unchanged, and alternates training epochs with validation
// passes. A Policy (patience on validation loss, or the plateau policy on
// mean per-class accuracy) decides when a checkpoint improved and when the
// run ends. Only improved checkpoints are written, so the registry always
// holds the best model seen. Cancelling the context stops the run at the
// next batch boundary without error.
//
// TrainAll trains several models, optionally in parallel. Each model holds an
// exclusive file lock for the duration of its run.
package training
