// Package config loads the settings of the pre tool and server.
//
// Values are layered, later sources winning:
//
//  1. Default()
//  2. a YAML file (--config, or pre.yaml / configs/pre.yaml)
//  3. PRE_* environment variables
//
// Environment variables follow the struct nesting:
//
//	PRE_SERVER_PORT=9090
//	PRE_MIC_MINIMUM_OD=0.15
//	PRE_GRATE_WINDOW=45m
//	PRE_LOGGING_LEVEL=debug
//
// Example YAML:
//
//	mic:
//	  minimum_od: 0.2
//	  od_threshold: 0.2
//	  stacked: true
//	grate:
//	  maximum_od: 0.6
//	  window: 60m
//	  top_mu: 4
package config
