// Package services implements the logic behind the HTTP API, keeping the
// handlers focused on request decoding and response encoding.
//
// AnalysisService analyses one curve per call: FitCurve runs the Hill and
// Gompertz fits and the classical MIC on a dose-response curve, and
// GrowthRate estimates the rolling-window growth rate of a time series.
// Request options override the configured defaults. HealthService reports
// liveness and version information.
package services
