// Package config loads the server configuration from config.yaml.
//
// Sections:
//   - server: http_port (default 8080), read/write/shutdown timeouts,
//     max_body_bytes, cors (allowed origins/methods/headers; defaults allow
//     POST from any origin with any header), rate_limit (requests_per_second,
//     burst; disabled when zero)
//   - telemetry: path of the dataset file (default telemetry.json) and the
//     optional uptime_field name
//   - log: level, format (json|text), optional rotated file
//
// Load(path) applies defaults before unmarshalling, then validates.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. The server applies only the log
// level from a reload; the telemetry dataset is fixed for the process lifetime.
package config
