// Package history keeps an audit ledger of finished training runs in a SQLite
// database inside the workspace.
//
// The ledger is write-mostly: training appends one row per run and the CLI
// lists them. Nothing in a training run ever reads the ledger back, so a
// missing or reset database never changes training behaviour.
package history
