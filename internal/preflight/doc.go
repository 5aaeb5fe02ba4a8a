// Package preflight provides readiness checks for the workspace, tag folders,
// trained artifacts and compute device that dtrack depends on.
//
// These checks run in two contexts:
//   - The CLI "dtrack check" command runs RunAll and prints every result.
//   - "dtrack train" calls CheckTags for each model before it starts and warns
//     about folders that cannot be trained; other models still run.
//
// Checks never touch models or tags; CheckHistory creates an empty ledger
// when none exists.
package preflight
