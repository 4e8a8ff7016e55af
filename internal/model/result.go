package model

import (
	"sort"
	"time"
)

// PageOutcome summarizes one stored page of a crawl.
type PageOutcome struct {
	URL         string `json:"url"`
	StablePath  string `json:"stable_path"`
	AdapterName string `json:"adapter_name"`
	ContentHash string `json:"content_hash"`

	// NotModified is true when a conditional fetch returned 304 and the
	// stored hash was reused.
	NotModified bool `json:"not_modified,omitempty"`
}

// CrawlResult is what the crawler hands back to its caller.
type CrawlResult struct {
	JobID        string        `json:"job_id"`
	Status       JobStatus     `json:"status"`
	PagesFetched int           `json:"pages_fetched"`
	PagesSkipped int           `json:"pages_skipped"`
	Errors       []CrawlError  `json:"errors"`
	Duration     time.Duration `json:"duration"`
	PerPage      []PageOutcome `json:"per_page"`
}

// Hashes returns the URL to content hash map of the crawl, the "new" side
// of a diff.
func (r *CrawlResult) Hashes() map[string]string {
	hashes := make(map[string]string, len(r.PerPage))
	for _, p := range r.PerPage {
		hashes[p.URL] = p.ContentHash
	}
	return hashes
}

// FailedURLs returns the set of URLs that produced an error which leaves
// their existence open. A 404 or 410 answer is not listed: the server said
// the page is gone.
func (r *CrawlResult) FailedURLs() map[string]bool {
	failed := make(map[string]bool, len(r.Errors))
	for _, e := range r.Errors {
		if !e.Gone() {
			failed[e.URL] = true
		}
	}
	return failed
}

// PrimaryAdapter returns the adapter that handled most pages, ties broken by name.
func (r *CrawlResult) PrimaryAdapter() string {
	counts := make(map[string]int)
	for _, p := range r.PerPage {
		counts[p.AdapterName]++
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// DiffResult classifies a crawl's pages against the previous run.
// The four lists are disjoint and sorted.
type DiffResult struct {
	KBID      string   `json:"kb_id"`
	Added     []string `json:"added"`
	Changed   []string `json:"changed"`
	Unchanged []string `json:"unchanged"`
	Removed   []string `json:"removed"`
}

// Total returns the number of classified URLs.
func (d *DiffResult) Total() int {
	return len(d.Added) + len(d.Changed) + len(d.Unchanged) + len(d.Removed)
}

// HasChanges reports whether anything other than unchanged pages was found.
func (d *DiffResult) HasChanges() bool {
	return len(d.Added)+len(d.Changed)+len(d.Removed) > 0
}

// Progress is reported after every processed frontier entry.
type Progress struct {
	URL          string `json:"url"`
	Depth        int    `json:"depth"`
	PagesFetched int    `json:"pages_fetched"`
	Queued       int    `json:"queued"`
	Err          string `json:"error,omitempty"`
}

// PageEvent is emitted to downstream sinks after a page is stored.
type PageEvent struct {
	KBID        string       `json:"kb_id"`
	JobID       string       `json:"job_id"`
	PageID      string       `json:"page_id"`
	URL         string       `json:"url"`
	StablePath  string       `json:"stable_path"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	AdapterName string       `json:"adapter_name"`
	ContentHash string       `json:"content_hash"`
	ContentHTML string       `json:"content_html,omitempty"`
	TOC         []TocEntry   `json:"toc,omitempty"`
	Links       []LinkRecord `json:"links,omitempty"`
	NotModified bool         `json:"not_modified,omitempty"`
	FetchedAt   time.Time    `json:"fetched_at"`
}

// IngestReport is the outcome of one add or update run.
type IngestReport struct {
	KnowledgeBase KnowledgeBase    `json:"knowledge_base"`
	Update        bool             `json:"update"`
	Discovery     *DiscoveryResult `json:"discovery,omitempty"`
	Crawl         *CrawlResult     `json:"crawl,omitempty"`
	Diff          *DiffResult      `json:"diff,omitempty"`
	Pruned        []string         `json:"pruned,omitempty"`
	Steps         []string         `json:"steps"`
	Error         string           `json:"error,omitempty"`
	StartedAt     time.Time        `json:"started_at"`
	FinishedAt    time.Time        `json:"finished_at"`

	// Previous is the URL to hash snapshot taken before an update crawl.
	Previous map[string]string `json:"-"`

	// Seeds are the discovery entries used to seed the crawl, if any.
	Seeds []IndexEntry `json:"-"`
}

// NewIngestReport creates a report for kb.
func NewIngestReport(kb KnowledgeBase, update bool) *IngestReport {
	return &IngestReport{
		KnowledgeBase: kb,
		Update:        update,
		Steps:         make([]string, 0),
		StartedAt:     time.Now().UTC(),
	}
}
