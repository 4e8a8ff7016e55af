// Package database provides the storage collaborator of the crawler.
//
// This package implements the CrawlDB, which stores:
//   - Knowledge bases and the source they were ingested from
//   - Page records, overwritten in place on every re-fetch
//   - Outbound links of every page
//   - Crawl jobs with their counters and per-URL errors
//
// Design decision: We use SQLite (via modernc.org/sqlite) as the default
// store because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode lets other processes read while a crawl writes
//
// PostgreSQL (via lib/pq) is available through OpenPostgres for shared
// deployments. Both schemas are managed by golang-migrate from embedded
// migration files; queries are written once with '?' placeholders and
// rebound for PostgreSQL.
package database
