package policy

import "errors"

var (
	// ErrInvalidURL is returned for URLs that cannot be parsed or are not absolute.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrInvalidPattern is returned for glob patterns that do not compile.
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrBlocked is wrapped by every SSRF rejection.
	ErrBlocked = errors.New("blocked by SSRF policy")

	// ErrDisallowedScheme is returned for schemes other than http and https.
	ErrDisallowedScheme = errors.New("scheme not allowed")

	// ErrDisallowedHost is returned for local host names such as localhost.
	ErrDisallowedHost = errors.New("host not allowed")

	// ErrDisallowedAddress is returned for loopback, private, link-local and
	// other non-public addresses.
	ErrDisallowedAddress = errors.New("address not allowed")
)
