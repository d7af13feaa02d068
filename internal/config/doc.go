// Package config loads and watches the energy-audit configuration file.
//
// Top-level types:
//   - Config{Audit, Server}: full config tree parsed from YAML
//   - AuditConfig: output_dir, report_name, delimiter, columns, fail_on_empty,
//     metrics, findings
//   - FindingRule, WebhookConfig: threshold rules evaluated against a run's
//     summary and the targets findings are delivered to; URL() resolves the
//     webhook address from an environment variable
//   - ServerConfig: http_port, inputs, run_ttl, broadcast_interval, ui_dir,
//     max_upload_bytes, auth, archive; read by the server binary only
//
// Load(path) reads the YAML file, applies defaults (report
// energy_audit_report.md, columns consumption_before/consumption_after,
// port 8080, 24h run TTL), then validates required fields and enums.
// Default() returns the same defaults when the CLI runs without a file.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. It re-adds the watch after each
// event so rename-based atomic saves keep being observed.
package config
