package crawler

import (
	"context"

	"github.com/nao1215/docingest/internal/fetch"
	"github.com/nao1215/docingest/internal/model"
)

// Store is the storage collaborator of the spider. *database.CrawlDB
// satisfies it. Every call completes before the spider proceeds past a
// write that later steps depend on.
type Store interface {
	// UpsertPage inserts or overwrites the page with the same (KBID, URL)
	// and sets page.ID to the persisted identifier.
	UpsertPage(ctx context.Context, page *model.PageRecord) error

	// GetPageByPath returns model.ErrNotFound when no page owns path.
	GetPageByPath(ctx context.Context, kbID, path string) (*model.PageRecord, error)

	// ListPages returns every page of the knowledge base.
	ListPages(ctx context.Context, kbID string) ([]model.PageRecord, error)

	InsertLink(ctx context.Context, link model.LinkRecord) error
	DeleteLinks(ctx context.Context, fromPageID string) error
	ListLinks(ctx context.Context, fromPageID string) ([]model.LinkRecord, error)

	InsertJob(ctx context.Context, job *model.CrawlJob) error
	UpdateJob(ctx context.Context, job *model.CrawlJob) error
}

// Fetcher is the HTTP fetch collaborator. *fetch.HTTPFetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, req fetch.Request) (*fetch.Response, error)
}

// PageSink receives every stored page. Sink errors are logged and never
// fail the job.
type PageSink interface {
	PageStored(ctx context.Context, event model.PageEvent) error
}

// JobObserver is notified after every persisted job transition.
type JobObserver interface {
	JobChanged(ctx context.Context, job *model.CrawlJob) error
}

// RobotsChecker decides whether a URL may be fetched. *policy.RobotsCache
// satisfies it.
type RobotsChecker interface {
	Allowed(ctx context.Context, rawURL string) bool
}
