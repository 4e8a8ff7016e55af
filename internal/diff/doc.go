// Package diff classifies the pages of an update crawl against the
// previous run of the same knowledge base.
//
// Compute is a pure function over two URL to content-hash maps. It never
// touches storage or the network; the pipeline takes the previous snapshot
// before the crawl starts and the new one from the crawl result.
package diff
