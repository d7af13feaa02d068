// Package types defines shared Go types used by the audit CLI and the server.
// These are the canonical in-memory representations of one audit run: the
// ingested Table, the normalized Readings, the Summary, and the audit Trail.
package types
