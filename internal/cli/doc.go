// Package cli implements the pre command line.
//
//	pre parse-folder FOLDER DESIGN OUTPUT [--mic|--grate] [--p384]
//	pre parse-ramp FOLDER DESIGN TREATMENT OUTPUT [--prefix --stock --mic --p384]
//	pre compute-mic DATA... OUTPUT [--minimum-od --od-threshold --stacked --skip-fitting --plot --plots-output]
//	pre compute-grate DATA... OUTPUT [--maximum-od --window --top-mu --min-periods --plot --plots-output]
//	pre plot-plate DATA... OUTPUT [--p384 --date-is-replicate --mic]
//	pre plot-evol DATA... OUTPUT [--threshold]
//	pre serve [--port]
//	pre version
//
// Every command loads the YAML configuration (--config, or the first file
// found in the usual locations) overlaid with PRE_* environment variables.
// Flags override the configuration. Each -v raises the log level one step.
package cli
