// Package analysis runs the per-group estimators over a whole experiment.
//
// Readings are grouped by curve identity, every group is analysed by a pure
// function on a bounded worker pool, and the results are returned sorted by
// key. A group that fails carries its error in its own row; only
// cancellation or unusable input fail the batch.
package analysis
