// Package registry owns the on-disk lifecycle of trained models: one
// checkpoint, one label catalog, and an optional ONNX export per model name,
// all living in the workspace models directory.
//
// The catalog written at training time is the only source of truth for the
// meaning of a model's outputs. Inference reads it verbatim and never
// re-derives labels from the tags directory.
package registry
