// Package logs reads dtrack log files for the `dtrack logs` command.
//
// Tail returns the last N lines of a file together with the byte offset it
// stopped at; Follow resumes from that offset and streams appended lines until
// the context ends. Latest picks the newest per-run training log.
package logs
