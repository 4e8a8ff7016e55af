package crawler

import "errors"

var (
	// ErrInvalidSeed is returned when a start URL or index entry cannot be
	// parsed as an absolute URL. The job ends Failed.
	ErrInvalidSeed = errors.New("invalid seed URL")

	// ErrNoSeeds is returned when a crawl is started without any seed.
	ErrNoSeeds = errors.New("no seed URLs")

	// ErrNoStore is returned when the spider has no storage collaborator.
	ErrNoStore = errors.New("no page store configured")

	// ErrUnsupportedContent is recorded for responses that are neither HTML nor text.
	ErrUnsupportedContent = errors.New("unsupported content type")
)
