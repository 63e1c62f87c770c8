// Package http implements the HTTP handlers of the plate-reader API.
// Handlers stay thin: they decode and validate the request, delegate to the
// services layer and encode the result.
//
// # Request Flow
//
//	HTTP Request → Chi Router → Middleware → Handler → Service → mic / grate
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Endpoints
//
//	POST /api/v1/mic     fit one dose-response curve
//	POST /api/v1/grate   estimate the growth rate of one well
//	GET  /api/health     health and liveness
//
// # Error Handling
//
// Errors are rendered as RFC 7807 Problem Details by the shared ErrorHandler:
//
//	{
//	    "type": "/errors/validation",
//	    "title": "Bad Request",
//	    "status": 400,
//	    "detail": "Request validation failed",
//	    "instance": "/api/v1/mic"
//	}
//
// An analysis whose fit is discarded or does not converge still answers 200;
// the per-model reason is part of the response body.
//
// # Testing
//
// Handlers are tested with httptest against mocked services.
package http
