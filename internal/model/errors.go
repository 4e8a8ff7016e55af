package model

import (
	"errors"
	"net/http"
)

// ErrInvalidTransition is returned when a CrawlJob is moved to a status that
// is not reachable from its current status.
var ErrInvalidTransition = errors.New("invalid job status transition")

// ErrNotFound is returned by storage lookups that match no record.
var ErrNotFound = errors.New("not found")

// ErrorKind classifies a recorded failure.
type ErrorKind string

// Error kinds recorded in CrawlJob.Errors.
const (
	// ErrorKindConfig marks a contradiction in the supplied settings.
	ErrorKindConfig ErrorKind = "config"
	// ErrorKindNetwork marks transport failures, timeouts and non-2xx responses.
	ErrorKindNetwork ErrorKind = "network"
	// ErrorKindParse marks documents that no adapter could extract.
	ErrorKindParse ErrorKind = "parse"
	// ErrorKindStorage marks failed writes to the storage collaborator.
	ErrorKindStorage ErrorKind = "storage"
	// ErrorKindValidation marks URLs rejected by the SSRF guard or malformed URLs.
	ErrorKindValidation ErrorKind = "validation"
)

// CrawlError is a single per-URL failure. It never aborts a job.
type CrawlError struct {
	URL    string    `json:"url"`
	Reason string    `json:"reason"`
	Kind   ErrorKind `json:"kind"`

	// Status is the HTTP status of a non-2xx answer, zero otherwise.
	Status int `json:"status,omitempty"`
}

// Gone reports whether the server answered that the page no longer exists.
func (e CrawlError) Gone() bool {
	return e.Status == http.StatusNotFound || e.Status == http.StatusGone
}
