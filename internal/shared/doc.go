// Package shared holds helpers used across the plate-reader packages that do
// not belong to a single analysis stage.
//
// The testutil subpackage provides:
//
//   - a buffered slog handler for asserting on log output
//   - synthetic plate fixtures (dose-response and growth curves)
//   - BioTek-style xlsx workbooks for parser tests
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    readings := testutil.DoseResponsePlate("E1", "S1", 0.5, 2)
//	    // ...
//	}
package shared
