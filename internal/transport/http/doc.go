// Package http implements the HTTP handlers of the dashboard API. Handlers
// are thin: they decode and validate the request, call a service and render
// the result.
//
// # Request Flow
//
//	HTTP Request → Chi Router → Middleware → Handler → Service
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Error Handling
//
// Request, authentication and backend errors follow RFC 7807 Problem Details:
//
//	{
//	    "type": "/errors/validation",
//	    "title": "Bad Request",
//	    "status": 400,
//	    "detail": "Request validation failed",
//	    "instance": "/api/auth/register"
//	}
//
// Transform and forecast failures are results rather than faults and render
// as {"success": false, "message": "...", "error_code": "..."} with the
// status mapped from the error type.
//
// # Testing
//
// Handlers are tested with httptest against the in-memory backend and
// session store.
package http
