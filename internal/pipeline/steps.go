package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/docingest/internal/config"
	"github.com/nao1215/docingest/internal/crawler"
	"github.com/nao1215/docingest/internal/diff"
	"github.com/nao1215/docingest/internal/discovery"
	"github.com/nao1215/docingest/internal/fetch"
	"github.com/nao1215/docingest/internal/model"
	"github.com/nao1215/docingest/internal/policy"
)

// Step names.
const (
	StepDiscover = "discover"
	StepSnapshot = "snapshot"
	StepCrawl    = "crawl"
	StepDiff     = "diff"
	StepPrune    = "prune"
)

// ErrCrawlIncomplete is returned by the prune step when the crawl did not
// complete. Pruning after a partial crawl would delete pages that were
// simply not reached.
var ErrCrawlIncomplete = errors.New("crawl did not complete, refusing to prune")

// Store is the storage the pipeline needs on top of the crawler's.
// *database.CrawlDB satisfies it.
type Store interface {
	crawler.Store
	PageHashes(ctx context.Context, kbID string) (map[string]string, error)
	DeletePage(ctx context.Context, kbID, url string) error
}

// Resolver looks for a published index. *discovery.Resolver satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) model.DiscoveryResult
}

// Crawler runs crawl jobs. *crawler.Spider satisfies it.
type Crawler interface {
	Crawl(ctx context.Context, kbID, startURL string) (*model.CrawlResult, error)
	CrawlEntries(ctx context.Context, kbID, origin string, entries []model.IndexEntry) (*model.CrawlResult, error)
}

// DiscoverStep probes the source origin for an llms.txt index.
//
// In auto mode a missing index, or one without entries, leaves the crawl to
// start from the source URL. In llms-txt mode it is a setup error. In crawl
// mode discovery is skipped.
type DiscoverStep struct {
	resolver Resolver
	mode     string
	logger   *slog.Logger
}

// NewDiscoverStep creates a discovery step for mode.
func NewDiscoverStep(resolver Resolver, mode string, logger *slog.Logger) *DiscoverStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiscoverStep{resolver: resolver, mode: mode, logger: logger}
}

// Name returns the step name.
func (s *DiscoverStep) Name() string {
	return StepDiscover
}

// Do executes the discovery step.
func (s *DiscoverStep) Do(ctx context.Context, report *model.IngestReport) error {
	if s.mode == model.ModeCrawl {
		s.logger.Debug("discovery skipped", "mode", s.mode)
		return nil
	}

	result := s.resolver.Resolve(ctx, report.KnowledgeBase.SourceURL)
	report.Discovery = &result

	if result.HasEntries() {
		report.Seeds = result.Entries
		s.logger.Info("llms.txt index found",
			"index", result.IndexURL,
			"entries", len(result.Entries),
		)
		return nil
	}

	if s.mode == model.ModeLLMSTxt {
		if result.Found {
			return fmt.Errorf("%w: %s lists no pages", discovery.ErrNoIndex, result.IndexURL)
		}
		return fmt.Errorf("%w for %s", discovery.ErrNoIndex, report.KnowledgeBase.SourceURL)
	}

	s.logger.Info("no usable llms.txt index, crawling", "source", report.KnowledgeBase.SourceURL)
	return nil
}

// SnapshotStep records the URL to hash map stored before the crawl. It is
// the "previous" side of the diff.
type SnapshotStep struct {
	store Store
}

// NewSnapshotStep creates a snapshot step.
func NewSnapshotStep(store Store) *SnapshotStep {
	return &SnapshotStep{store: store}
}

// Name returns the step name.
func (s *SnapshotStep) Name() string {
	return StepSnapshot
}

// Do executes the snapshot step.
func (s *SnapshotStep) Do(ctx context.Context, report *model.IngestReport) error {
	hashes, err := s.store.PageHashes(ctx, report.KnowledgeBase.ID)
	if err != nil {
		return fmt.Errorf("failed to snapshot pages: %w", err)
	}
	report.Previous = hashes
	return nil
}

// CrawlStep runs the crawl job: seeded from the discovery entries when
// there are any, otherwise from the source URL with link expansion.
type CrawlStep struct {
	crawler Crawler
}

// NewCrawlStep creates a crawl step.
func NewCrawlStep(c Crawler) *CrawlStep {
	return &CrawlStep{crawler: c}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return StepCrawl
}

// Do executes the crawl step. The crawl result is recorded even when the
// job failed or was interrupted.
func (s *CrawlStep) Do(ctx context.Context, report *model.IngestReport) error {
	kb := report.KnowledgeBase

	var (
		result *model.CrawlResult
		err    error
	)
	if len(report.Seeds) > 0 {
		origin, oerr := discovery.Origin(kb.SourceURL)
		if oerr != nil {
			return fmt.Errorf("%w: %s", crawler.ErrInvalidSeed, kb.SourceURL)
		}
		result, err = s.crawler.CrawlEntries(ctx, kb.ID, origin.String(), report.Seeds)
	} else {
		result, err = s.crawler.Crawl(ctx, kb.ID, kb.SourceURL)
	}

	report.Crawl = result
	if err != nil {
		return fmt.Errorf("crawl %s: %w", kb.SourceURL, err)
	}
	return nil
}

// DiffStep classifies the crawled pages against the snapshot. It only
// runs for updates.
type DiffStep struct {
	force bool
}

// NewDiffStep creates a diff step. force classifies every page present in
// both runs as changed.
func NewDiffStep(force bool) *DiffStep {
	return &DiffStep{force: force}
}

// Name returns the step name.
func (s *DiffStep) Name() string {
	return StepDiff
}

// Do executes the diff step.
func (s *DiffStep) Do(_ context.Context, report *model.IngestReport) error {
	if !report.Update || report.Crawl == nil {
		return nil
	}

	var opts []diff.Option
	if s.force {
		opts = append(opts, diff.WithForce())
	}
	result := diff.Compute(report.KnowledgeBase.ID, report.Crawl.Hashes(), report.Previous, opts...)
	report.Diff = &result.DiffResult
	return nil
}

// PruneStep deletes the pages the diff reported as removed. Pages whose
// re-fetch failed in this run are kept.
type PruneStep struct {
	store  Store
	logger *slog.Logger
}

// NewPruneStep creates a prune step.
func NewPruneStep(store Store, logger *slog.Logger) *PruneStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PruneStep{store: store, logger: logger}
}

// Name returns the step name.
func (s *PruneStep) Name() string {
	return StepPrune
}

// Do executes the prune step.
func (s *PruneStep) Do(ctx context.Context, report *model.IngestReport) error {
	if report.Diff == nil || report.Crawl == nil {
		return nil
	}
	if report.Crawl.Status != model.JobCompleted {
		return fmt.Errorf("%w (status %s)", ErrCrawlIncomplete, report.Crawl.Status)
	}

	result := &diff.Result{DiffResult: *report.Diff}
	for _, u := range result.Removable(report.Crawl.FailedURLs()) {
		if err := s.store.DeletePage(ctx, report.KnowledgeBase.ID, u); err != nil {
			return fmt.Errorf("failed to prune %s: %w", u, err)
		}
		s.logger.Debug("pruned page", "url", u)
		report.Pruned = append(report.Pruned, u)
	}
	return nil
}

// Dependencies are the collaborators shared by every pipeline of a run.
type Dependencies struct {
	Store     Store
	Fetcher   *fetch.HTTPFetcher
	Guard     *policy.Guard
	Sinks     []crawler.PageSink
	Observers []crawler.JobObserver
	Progress  func(model.Progress)
	Logger    *slog.Logger
}

// DefaultPipeline creates the ingest pipeline for one knowledge base.
// cfg must already carry the per-host overrides (config.ForTarget).
//
// Design decision: discovery, crawl and prune share one fetcher and guard
// so that the SSRF policy and the per-host headers apply to every request
// the run makes.
func DefaultPipeline(cfg *config.Config, deps Dependencies, update bool, opts ...Option) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	resolver := discovery.NewResolver(deps.Fetcher,
		discovery.WithTimeout(cfg.DiscoveryTimeout),
		discovery.WithMaxRedirects(cfg.DiscoveryMaxRedirects),
		discovery.WithLogger(logger),
	)

	p := New(append([]Option{WithLogger(logger)}, opts...)...)
	p.AddSteps(
		NewDiscoverStep(resolver, cfg.Mode, logger),
		NewSnapshotStep(deps.Store),
		NewCrawlStep(NewSpider(cfg, deps, update)),
	)
	if update {
		p.AddStep(NewDiffStep(cfg.Force))
		if cfg.Prune {
			p.AddStep(NewPruneStep(deps.Store, logger))
		}
	}
	return p
}
