package providers

import (
	"context"
	"errors"
	"net"
)

// ErrorKind is the classified category of a provider failure.
// Classification is a pure function of HTTP status, so the same status
// always yields the same kind.
type ErrorKind string

// Classified error kinds.
const (
	KindInvalidAPIKey       ErrorKind = "invalid_api_key"
	KindInsufficientBalance ErrorKind = "insufficient_balance"
	KindAccessForbidden     ErrorKind = "access_forbidden"
	KindModelNotFound       ErrorKind = "model_not_found"
	KindTimeout             ErrorKind = "timeout"
	KindRateLimit           ErrorKind = "rate_limit"
	KindServiceUnavailable  ErrorKind = "service_unavailable"
	KindInvalidRequest      ErrorKind = "invalid_request"
	KindNetwork             ErrorKind = "network"
	KindUnknown             ErrorKind = "unknown"
)

// Classify maps an HTTP status code to its error kind.
//
// Mapping:
//
//	401 -> invalid_api_key        402 -> insufficient_balance
//	403 -> access_forbidden       404 -> model_not_found
//	408/504 -> timeout            429 -> rate_limit
//	500/502/503 -> service_unavailable
//	400 -> invalid_request        otherwise -> unknown
func Classify(status int) ErrorKind {
	switch status {
	case 400:
		return KindInvalidRequest
	case 401:
		return KindInvalidAPIKey
	case 402:
		return KindInsufficientBalance
	case 403:
		return KindAccessForbidden
	case 404:
		return KindModelNotFound
	case 408, 504:
		return KindTimeout
	case 429:
		return KindRateLimit
	case 500, 502, 503:
		return KindServiceUnavailable
	default:
		return KindUnknown
	}
}

// IsRetryable reports whether a kind is in the retry set.
// The retry set is exactly {rate_limit, timeout, service_unavailable, network}.
func IsRetryable(kind ErrorKind) bool {
	switch kind {
	case KindRateLimit, KindTimeout, KindServiceUnavailable, KindNetwork:
		return true
	default:
		return false
	}
}

// IsTracked reports whether a kind is reported to the error tracker.
// Unknown failures are not tracked.
func IsTracked(kind ErrorKind) bool {
	return kind != KindUnknown
}

// statusCarrier is implemented by errors that carry an HTTP status.
type statusCarrier interface {
	HTTPStatus() int
}

// KindOf classifies an error by unwrapping to the innermost
// status-bearing failure. Network faults and deadline expiry classify to
// their dedicated kinds; anything else is unknown.
func KindOf(err error) (ErrorKind, int) {
	if err == nil {
		return KindUnknown, 0
	}

	// Walk the chain looking for the innermost status carrier.
	var (
		status int
		found  bool
	)
	for e := err; e != nil; e = errors.Unwrap(e) {
		if sc, ok := e.(statusCarrier); ok {
			status = sc.HTTPStatus()
			found = true
		}
	}
	if found {
		return Classify(status), status
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout, 408
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout, 408
		}
		return KindNetwork, 0
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindNetwork, 0
	}

	return KindUnknown, 0
}
