// Package ingest reads a delimited input file into a types.Table.
//
// File(path, opts, now) opens the file and returns NOT_FOUND when it is
// absent. Read(r, source, opts, now) parses any io.Reader; the server uses it
// for uploaded request bodies.
//
// The first record is the header. Data rows shorter than the header are kept
// and simply do not carry their trailing columns; rows longer than the header,
// an empty input, duplicate header names and malformed quoting are FORMAT
// errors. Both functions return the stage's AuditEntry alongside the table.
package ingest
