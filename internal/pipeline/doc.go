// Package pipeline runs the four audit stages in order and assembles the
// record of one run.
//
// Stages are called sequentially and each returns its own audit entry; the
// Runner appends them to the run's trail in stage order. A stage error ends
// the run immediately and no later stage executes.
package pipeline
