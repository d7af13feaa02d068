package api

import (
	"github.com/openeurope/energyaudit/internal/findings"
	"github.com/openeurope/energyaudit/pkg/types"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State          string   `json:"state"`
	RunCount       int      `json:"run_count"`
	FindingCount   int      `json:"finding_count"`
	CriticalCount  int      `json:"critical_count"`
	LastRunAt      string   `json:"last_run_at,omitempty"` // RFC3339
	LastRunInput   string   `json:"last_run_input,omitempty"`
	LastSavingsPct *float64 `json:"last_savings_pct,omitempty"`
}

// RunResponse is one run in GET /api/v1/runs or GET /api/v1/runs/{id}.
type RunResponse struct {
	*types.Run
	Diagnostics []DiagnosticHint `json:"diagnostics"`
	StoredAt    string           `json:"stored_at"` // RFC3339
}

// SnapshotResponse is the payload for GET /api/v1/snapshot and the data of
// every WebSocket broadcast.
type SnapshotResponse struct {
	Runs        []RunResponse     `json:"runs"`
	Findings    []*findings.Alert `json:"findings"`
	GeneratedAt string            `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
