// Package audio defines the fixed-length PCM segment that the classification
// pipeline consumes and decodes raw s16le captures and WAV files into it.
//
// Every segment is mono 16-bit audio at 48 kHz and exactly two seconds long.
// Shorter input is zero-padded, longer input truncated, and multi-channel WAV
// sources are averaged down to one channel before they enter the core.
package audio
