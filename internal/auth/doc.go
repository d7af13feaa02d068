// Package auth provides API key authentication for the REST API.
//
// When the server runs with server.auth.mode: apikey and the key environment
// variable is set, every request except GET /api/v1/health must carry the key
// in the configured header.
package auth
