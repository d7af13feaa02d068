// Package store holds finished audit runs in memory for the server.
// Runs older than the configured TTL are evicted by a background loop.
package store
