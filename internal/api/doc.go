// Package api implements the HTTP REST API for energy-audit-server.
//
// New returns an http.Handler that serves:
//
//	GET  /api/v1/health                 run and finding counts
//	GET  /api/v1/runs                   live runs, newest first ([]RunResponse)
//	POST /api/v1/runs?name=<file>       audit the CSV request body; 201 with the run
//	GET  /api/v1/runs/{id}              single run; 404 if unknown or stale
//	GET  /api/v1/runs/{id}/report       the Markdown report
//	GET  /api/v1/runs/{id}/report.html  the report rendered as HTML
//	GET  /api/v1/findings               firing and recently resolved findings
//	GET  /api/v1/snapshot               runs and findings with generated_at
//
// JSON endpoints respond with Content-Type: application/json and return 405
// for unsupported methods. Pipeline failures map to status codes by kind:
// FORMAT and EMPTY_RESULT are 422, anything else 500.
//
// JSON types are defined in types.go. No external HTTP framework is used.
package api
