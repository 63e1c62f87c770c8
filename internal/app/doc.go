// Package app wires the plate-reader API server: configuration, OpenTelemetry,
// the analysis and health services, the chi router and the HTTP server.
//
// # Middleware Order
//
//	RequestID → StructuredLogger → Recovery → RateLimit → OTel
//
// The /api/v1 routes additionally bound the request body and reject
// non-JSON payloads before the handlers decode them.
//
// # Usage
//
//	application, err := app.NewApplication(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// # Graceful Shutdown
//
// Run returns after SIGINT, SIGTERM or cancellation of its context, once
// in-flight requests have completed and the metric providers are flushed.
// The package never calls os.Exit.
package app
