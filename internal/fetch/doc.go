// Package fetch is the HTTP client used for every request docingest makes:
// index probes, robots.txt files and documentation pages.
//
// The client applies a per-request timeout and redirect cap, identifies
// itself with a User-Agent, caps the response size and supports conditional
// requests. Every connection passes through the SSRF guard from package
// policy, both before the request and at dial time, so redirects cannot
// reach private addresses either.
//
// Non-2xx responses are returned as responses, not errors. Callers that
// treat them as failures use StatusError.
package fetch
