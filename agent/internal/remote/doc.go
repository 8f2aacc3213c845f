// Package remote pushes encoded sample batches to the metrics ingestion
// endpoint over HTTP with basic authentication.
//
// Writer.Push POSTs the payload to <base URL><push path> and retries
// transient failures (HTTP 408, 429 and 5xx, timeouts, connection errors) up
// to MaxAttempts attempts in total, waiting with truncated exponential
// backoff (±25% jitter) between attempts. HTTP 401/403 (Auth) and other 4xx
// responses (BadRequest) are returned immediately. Every failure is reported
// as *PushError.
//
// A failed payload is not persisted: the next cycle sends fresh data.
//
// The wait field is injectable so tests do not sleep.
package remote
