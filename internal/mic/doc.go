// Package mic estimates minimum inhibitory concentrations from dose-response
// curves.
//
// Two parametric models are fitted by nonlinear least squares (Hill and a
// modified Gompertz) after an optional robust normalization and a quality
// gate that short-circuits curves without a usable dose-response signal.
// A threshold-crossing estimator gives the classical MIC.
//
// Every result is a fixed-size record whose fields may be undefined. Failures
// never escape a single curve: they are reported through the record's Outcome
// and Err fields.
package mic
