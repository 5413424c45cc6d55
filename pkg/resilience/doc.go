// Package resilience implements the retry and timeout envelope applied to
// every outbound provider call, plus the error-tracking port that records
// classified failures per attempt.
//
// The timeout policy is the outer layer: each call gets a deadline from
// configuration, except video generation and realtime connections, which
// run unbounded. The retry policy is the inner layer: rate limits,
// timeouts, provider unavailability, and network faults are retried with
// exponential backoff plus jitter, honoring upstream Retry-After hints.
// Authentication, quota, not-found, and invalid-request failures surface
// immediately.
package resilience
