package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a fetch failure.
type Kind string

// Failure kinds.
const (
	// KindNetwork covers transport failures, DNS errors and redirect loops.
	KindNetwork Kind = "network"
	// KindTimeout means the per-request timeout elapsed.
	KindTimeout Kind = "timeout"
	// KindStatus means the server answered with a non-2xx status.
	KindStatus Kind = "status"
	// KindBlocked means the SSRF guard rejected the URL or a redirect target.
	KindBlocked Kind = "blocked"
	// KindTooLarge means the body exceeded the size cap.
	KindTooLarge Kind = "too_large"
)

// ErrTooManyRedirects is returned when a response chain exceeds the redirect cap.
var ErrTooManyRedirects = errors.New("too many redirects")

// ErrInvalidProxyAddress is returned when the proxy address is not "host:port".
var ErrInvalidProxyAddress = errors.New("invalid proxy address")

// Error is returned by Fetch for every failed request.
type Error struct {
	Kind       Kind
	URL        string
	StatusCode int
	Err        error
}

// Error implements error.
func (e *Error) Error() string {
	switch {
	case e.Kind == KindStatus:
		return fmt.Sprintf("fetch %s: HTTP %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	default:
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	}
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// StatusError returns a KindStatus error for a non-2xx response, or nil.
func StatusError(resp *Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &Error{Kind: KindStatus, URL: resp.FinalURL, StatusCode: resp.StatusCode}
}

// KindOf returns the Kind of err, or KindNetwork when err is not an *Error.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindNetwork
}
