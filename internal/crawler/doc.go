// Package crawler fetches documentation pages into a knowledge base.
//
// # Architecture
//
// The package is built around the Spider type. One call to Crawl or
// CrawlEntries runs one CrawlJob:
//
//	seeds -> frontier -> coordinator -> workers -> store, sinks
//	            ^                          |
//	            +------ internal links ----+
//
// The coordinator pops entries from the frontier, applies the checks that
// need no network access (depth, scope, literal SSRF rules) and hands each
// admitted entry to a bounded worker pool. Workers wait on the per-host
// limiter, consult robots.txt, fetch, route the body through the adapter
// registry, store the page and its links, and push new links back.
//
// Design decision: We implement our own crawler rather than using a third-party
// library because:
//  1. The page cap must hold exactly under concurrency, which needs the
//     cap checked against fetched+inflight in the same lock as dequeueing
//  2. Every page goes through site adapters and a stable-path allocator
//     that depend on storage state
//  3. Resume and conditional re-fetch read the previous run from storage
//
// # Components
//
//   - Spider: configuration and the job lifecycle
//   - frontier: FIFO queue, visited set and page-cap accounting
//   - Parser: link extraction and internal/external/anchor classification
//
// # Job lifecycle
//
//	pending -> running -> completed | interrupted
//	pending -> failed
//
// A job ends Failed only on setup errors (invalid seed, invalid pattern,
// storage unavailable). Per-URL failures are recorded on the job and never
// end it. Cancelling the context ends the job Interrupted; a later run with
// WithResume continues from the stored pages.
//
// # Usage
//
//	spider := crawler.NewSpider(fetcher, db,
//	    crawler.WithMaxDepth(3),
//	    crawler.WithRobots(robots),
//	)
//	result, err := spider.Crawl(ctx, kbID, "https://docs.example.com/guide/")
package crawler
