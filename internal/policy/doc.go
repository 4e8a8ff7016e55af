// Package policy decides which URLs a crawl may touch and how fast.
//
// It holds the leaf rules of the crawler:
//   - URL normalization, so that equivalent URLs deduplicate
//   - scope rules: same host, seed path prefix, include and exclude globs
//   - the SSRF guard, applied to literal URLs, to DNS answers and to every dial
//   - per-host request pacing
//   - robots.txt evaluation with a per-host cache
//
// Every type in this package is safe for concurrent use.
package policy
