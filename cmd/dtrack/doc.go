// Command dtrack trains and runs disturbance detection models.
//
// Every subcommand works against one workspace directory:
//
//	<workspace>/tags/<class>/*.wav|*.dat   labeled recordings
//	<workspace>/models/                     checkpoints, catalogs, ONNX exports
//	<workspace>/history.db                  finished training runs
//	<workspace>/dtrack.log, logs/           process log and per-run train logs
//
// "dtrack train" curates the tag folders, trains each configured model and
// commits the best checkpoint as it improves. Interrupting it with Ctrl-C
// keeps whatever was already committed. "dtrack infer" scores recordings with
// the committed models. "dtrack logs --run -f" follows the newest train log.
package main
