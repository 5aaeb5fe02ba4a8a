// Package nnet defines the Classifier capability used by training and
// inference and ships a linear softmax implementation over time-pooled mel
// statistics.
//
// Checkpoints are self-describing JSON documents; Load dispatches on their
// "kind" field. The compute device is chosen once per process with
// SelectDevice and every model must live on it.
package nnet
