// Package workspace names the on-disk layout shared by training, inference,
// and the CLI. It only computes paths and creates directories; it never reads
// model or sample data.
package workspace
