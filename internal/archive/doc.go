// Package archive persists finished runs in a SQLite database so the server
// keeps its run history, and each run's exact report, across restarts.
//
// The report body is stored snappy-compressed alongside the run. Re-running
// an input overwrites its report file on disk; the archived copy keeps
// serving what that particular run produced.
package archive
