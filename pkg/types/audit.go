package types

import "time"

// Step identifies which pipeline stage produced an AuditEntry.
type Step string

const (
	StepIngestion     Step = "ingestion"
	StepNormalization Step = "normalization"
	StepCalculation   Step = "calculation"
)

// TimestampLayout is the ISO 8601 layout used when an entry is rendered.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// AuditEntry records the outcome of one pipeline stage. Entries are values;
// once appended to a Trail they are never changed.
type AuditEntry struct {
	Step      Step      `json:"step"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// NewEntry builds an AuditEntry stamped at now.
func NewEntry(step Step, now time.Time, message string) AuditEntry {
	return AuditEntry{Step: step, Timestamp: now, Message: message}
}

// Trail is the ordered audit log of one run.
type Trail []AuditEntry

// Append returns the trail with e added at the end.
func (t Trail) Append(e AuditEntry) Trail {
	return append(t, e)
}

// Steps returns the step tags in trail order.
func (t Trail) Steps() []Step {
	out := make([]Step, len(t))
	for i, e := range t {
		out[i] = e.Step
	}
	return out
}
