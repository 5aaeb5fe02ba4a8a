// Package textutil normalizes and validates the names that end up on disk:
// model names, class folder names, and log file tokens.
//
// Class names are NFC-normalized so that folders created on systems with
// different Unicode conventions sort and compare identically.
package textutil
