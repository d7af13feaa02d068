// Package compute derives the audit Summary from normalized readings.
//
// Calculate(readings, now) is a pure function: arithmetic mean of the
// baseline column and of the new column, their difference, and the
// difference as a percentage of the baseline. The percentage is defined as 0
// when the baseline average is 0, and an empty input yields a zero Summary
// with Rows == 0 rather than an error. Callers that must reject empty input
// check Summary.Rows.
package compute
