// Package metrics exposes an audit run as Prometheus gauges in the text
// exposition format, for pickup by node_exporter's textfile collector.
//
// Families(run) builds the metric families; Write(dir, name, run) writes them
// atomically (temp file + rename) so a concurrent scrape never sees a partial
// file. Parse reads an exposition back into families keyed by name.
//
// Every sample carries an "input" label with the base name of the audited
// file. Row counts use a "stage" label: ingested | dropped | used.
package metrics
