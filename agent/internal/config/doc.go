// Package config loads the collector configuration.
//
// Top-level types:
//   - Config{Remote, Sources, CycleTimeout, Telemetry}
//   - RemoteConfig: url, push_path, username, password_env, timeout,
//     max_attempts, backoff_initial, backoff_max, check_cert, tls;
//     Password() resolves the secret from the environment
//   - SourcesConfig: timeout plus one block per upstream API
//     (weather, seismic with max_events, currency with codes)
//   - TelemetryConfig: optional textfile path for run statistics
//
// Load(path) applies defaults, then the YAML file when path is non-empty,
// then PROMETHEUS_URL, PROMETHEUS_USER and COLLECTOR_TEXTFILE from the
// environment, and validates the result. A missing URL, user or password is
// an error; callers treat it as fatal at startup.
package config
