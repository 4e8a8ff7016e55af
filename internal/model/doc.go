// Package model defines the records shared by every stage of a docingest run.
//
// This package contains the following main types:
//   - KnowledgeBase: a named documentation source that is ingested and updated
//   - CrawlJob: one execution of the crawler against a knowledge base
//   - PageRecord and LinkRecord: persisted pages and their outbound links
//   - DiscoveryResult: the outcome of looking for a pre-published llms.txt index
//   - AdapterOutcome: clean content, table of contents and metadata for one page
//   - CrawlResult and DiffResult: the summaries handed back to the caller
//
// Design decision: records live in their own package so that the crawler,
// storage, sinks and report writers can share them without import cycles.
// Every type here is plain data with JSON tags; behavior is limited to
// validation helpers and the state machine of CrawlJob.
package model
