package types

import "time"

// Summary is the result of the calculation stage.
type Summary struct {
	BaselineAvg float64 `json:"baseline_avg"`
	NewAvg      float64 `json:"new_avg"`
	SavingsAbs  float64 `json:"savings_absolute"`
	SavingsPct  float64 `json:"savings_percent"`

	// Rows is the number of readings the averages were taken over.
	// Zero means the averages are undefined and reported as 0.
	Rows int `json:"rows"`
}

// Stats counts rows through the ingest and normalize stages.
type Stats struct {
	Ingested int `json:"ingested"`
	Dropped  int `json:"dropped"`
	Used     int `json:"used"`
}

// Finding is a rule that fired against a run's Summary.
type Finding struct {
	Rule     string    `json:"rule"`
	Input    string    `json:"input"`
	Severity string    `json:"severity"`
	Message  string    `json:"message"`
	Value    float64   `json:"value"`
	FiredAt  time.Time `json:"fired_at"`
}

// Run is the full record of one pipeline execution.
type Run struct {
	ID          string    `json:"id"`
	Input       string    `json:"input"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Stats       Stats     `json:"stats"`
	Summary     Summary   `json:"summary"`
	Trail       Trail     `json:"trail"`
	ReportPath  string    `json:"report_path"`
	MetricsPath string    `json:"metrics_path,omitempty"`
	Findings    []Finding `json:"findings,omitempty"`
}
