package adapter

import "errors"

var (
	// ErrEmptyContent is returned when neither the matched adapter nor the
	// generic fallback could extract any content.
	ErrEmptyContent = errors.New("no content could be extracted")

	// ErrDuplicateAdapter is returned when an adapter name is registered twice.
	ErrDuplicateAdapter = errors.New("adapter already registered")
)
