// Package inference scores audio segments against one or more trained models.
//
// An Aggregator loads each model's checkpoint together with the catalog that
// was persisted at training time. Output index i always means catalog label i.
// Features are extracted once per segment and shared by every model; each
// model converts its logits into a probability distribution over its own
// catalog. No state survives between calls, so scoring the consecutive slices
// of a longer recording is the same as scoring each slice on its own.
package inference
