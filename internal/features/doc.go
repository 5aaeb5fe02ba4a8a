// Package features converts audio segments into the normalized log-mel
// spectrogram tensors that every classifier consumes.
//
// The pipeline is fixed: periodic Hann STFT (2048/512, centered), a 128-bin
// HTK mel projection, decibels relative to the segment peak floored at -80,
// and a linear rescale onto [0,1]. Training and inference share one
// Extractor so both sides see bit-identical features.
package features
