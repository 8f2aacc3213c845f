package source

import "fmt"

// ErrorKind classifies why a fetch failed.
type ErrorKind int

const (
	// KindTransport is a connection-level failure other than a timeout.
	KindTransport ErrorKind = iota
	// KindTimeout means the request did not complete within the source timeout.
	KindTimeout
	// KindHTTPStatus means the source answered outside the 2xx range.
	KindHTTPStatus
	// KindParse means the body did not match the source's JSON shape.
	KindParse
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindHTTPStatus:
		return "http_status"
	case KindParse:
		return "parse"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FetchError is returned by Client.Fetch. Every kind is recoverable: the
// failing source is left out of the cycle and the others proceed.
type FetchError struct {
	Source string
	Kind   ErrorKind
	Status int // HTTP status code, set for KindHTTPStatus
	Err    error
}

func (e *FetchError) Error() string {
	if e.Kind == KindHTTPStatus {
		return fmt.Sprintf("source %s: unexpected status %d", e.Source, e.Status)
	}
	return fmt.Sprintf("source %s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
