// Package pipeline runs an ingest as a sequence of steps.
//
// An add or update of one knowledge base passes through:
//
//	discover -> snapshot -> crawl -> diff -> prune
//
// Each stage is a Step that receives the shared model.IngestReport and
// records its outcome there. Later steps read what earlier steps left behind:
// the crawl step seeds itself from the discovery entries, the diff step
// compares the crawl hashes with the snapshot taken before the crawl, and the
// prune step deletes what the diff reported as removed.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows easy addition/removal of steps without modifying core logic
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context for long-running crawls
//
// BatchProcessor ingests several knowledge bases concurrently with errgroup.
package pipeline
