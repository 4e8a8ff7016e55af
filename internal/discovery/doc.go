// Package discovery looks for a site-published llms.txt index before a crawl.
//
// Resolver.Resolve probes /llms.txt and /llms-full.txt at the origin of a
// documentation URL. An index is accepted only when it is served with HTTP
// 200, starts with a level-1 Markdown heading and stays below the size cap.
// Every failure folds into model.NotFound: discovery reports whether a usable
// index exists and never fails an ingest run.
//
// The index format is a small Markdown dialect:
//
//	# Title
//	> Optional summary
//
//	## Section
//	- [Entry name](https://docs.example.com/page.md): optional notes
package discovery
