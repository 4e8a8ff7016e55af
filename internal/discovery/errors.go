package discovery

import "errors"

var (
	// ErrNoIndex is returned by callers that require an index when none was found.
	ErrNoIndex = errors.New("no llms.txt index found")

	// ErrMalformedIndex is returned by Parse for text without a level-1 heading.
	ErrMalformedIndex = errors.New("malformed llms.txt index")

	// ErrNoHost is returned by Origin for URLs without a host.
	ErrNoHost = errors.New("URL has no host")
)
