package remote

import "fmt"

// ErrorKind classifies a push failure.
type ErrorKind int

const (
	// KindTransient failures are retried: 408, 429, 5xx, timeouts and
	// connection errors.
	KindTransient ErrorKind = iota
	// KindAuth means the endpoint rejected the credentials (401/403).
	KindAuth
	// KindBadRequest means the endpoint rejected the payload (other 4xx).
	KindBadRequest
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindAuth:
		return "auth"
	case KindBadRequest:
		return "bad_request"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// PushError is returned by Writer.Push when the payload was not accepted.
type PushError struct {
	Kind     ErrorKind
	Status   int // HTTP status of the last attempt, 0 for transport errors
	Attempts int
	Err      error
}

func (e *PushError) Error() string {
	return fmt.Sprintf("remote: push failed after %d attempt(s): %s: %v", e.Attempts, e.Kind, e.Err)
}

func (e *PushError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could succeed.
func (e *PushError) Retryable() bool {
	return e.Kind == KindTransient
}

// kindForStatus maps a non-2xx HTTP status to an ErrorKind.
func kindForStatus(code int) ErrorKind {
	switch {
	case code == 401 || code == 403:
		return KindAuth
	case code == 408 || code == 429 || code >= 500:
		return KindTransient
	default:
		return KindBadRequest
	}
}
