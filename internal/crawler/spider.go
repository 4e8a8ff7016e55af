package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/docingest/internal/adapter"
	"github.com/nao1215/docingest/internal/config"
	"github.com/nao1215/docingest/internal/fetch"
	"github.com/nao1215/docingest/internal/model"
	"github.com/nao1215/docingest/internal/policy"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Spider crawls a documentation site into a knowledge base.
// A coordinator pops entries from the frontier and dispatches each fetch to
// a bounded pool of workers; workers pace themselves per host, store the
// page and its links, and push newly found links back into the frontier.
//
// Design decision: We call it "Spider" rather than "Crawler" because:
//  1. "Spider" is the traditional term for web crawlers
//  2. Distinguishes the component from the package name
//  3. Clearer in code: crawler.NewSpider() vs crawler.NewCrawler()
//
// A Spider holds configuration only; every Crawl call has its own frontier
// and job, so one Spider can run several crawls concurrently.
type Spider struct {
	fetcher  Fetcher
	store    Store
	registry *adapter.Registry
	guard    *policy.Guard
	robots   RobotsChecker
	limiter  *policy.HostLimiter

	// maxDepth limits how deep to crawl from the seeds.
	// 0 means only the seeds, 1 means one level of links, etc.
	maxDepth int

	// maxPages limits the number of pages fetched by one job.
	maxPages int

	// concurrency is the number of in-flight fetches.
	concurrency int

	// delay is the minimum spacing between requests to one host.
	delay time.Duration

	timeout      time.Duration
	maxRedirects int
	userAgent    string

	include []string
	exclude []string

	// conditional sends stored validators so unchanged pages answer 304.
	conditional bool

	// resume treats stored pages as visited and continues from their links.
	resume bool

	snapshot  string
	sinks     []PageSink
	observers []JobObserver
	progress  func(model.Progress)
	logger    *slog.Logger
	now       func() time.Time
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the seeds, 1 = seeds plus linked pages, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages sets the maximum number of pages to fetch.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithConcurrency sets the number of in-flight fetches.
func WithConcurrency(n int) SpiderOption {
	return func(s *Spider) {
		s.concurrency = n
	}
}

// WithDelay sets the minimum spacing between requests to one host.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.timeout = d
	}
}

// WithMaxRedirects sets the per-request redirect cap.
func WithMaxRedirects(n int) SpiderOption {
	return func(s *Spider) {
		s.maxRedirects = n
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) SpiderOption {
	return func(s *Spider) {
		s.userAgent = ua
	}
}

// WithIncludePatterns sets glob patterns a URL path must match.
// When set they replace the seed-directory rule.
func WithIncludePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.include = patterns
	}
}

// WithExcludePatterns sets glob patterns that reject a URL path.
func WithExcludePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.exclude = patterns
	}
}

// WithRobots enables robots.txt checks. nil disables them.
func WithRobots(r RobotsChecker) SpiderOption {
	return func(s *Spider) {
		s.robots = r
	}
}

// WithGuard sets the SSRF guard applied before every fetch.
func WithGuard(g *policy.Guard) SpiderOption {
	return func(s *Spider) {
		s.guard = g
	}
}

// WithRegistry sets the adapter registry.
func WithRegistry(r *adapter.Registry) SpiderOption {
	return func(s *Spider) {
		s.registry = r
	}
}

// WithConditionalFetch sends If-None-Match / If-Modified-Since for stored pages.
func WithConditionalFetch(enabled bool) SpiderOption {
	return func(s *Spider) {
		s.conditional = enabled
	}
}

// WithResume continues from the pages already stored for the knowledge base.
func WithResume(enabled bool) SpiderOption {
	return func(s *Spider) {
		s.resume = enabled
	}
}

// WithConfigSnapshot sets the settings recorded on the job.
func WithConfigSnapshot(snapshot string) SpiderOption {
	return func(s *Spider) {
		s.snapshot = snapshot
	}
}

// WithSinks adds page sinks.
func WithSinks(sinks ...PageSink) SpiderOption {
	return func(s *Spider) {
		s.sinks = append(s.sinks, sinks...)
	}
}

// WithObservers adds job observers.
func WithObservers(observers ...JobObserver) SpiderOption {
	return func(s *Spider) {
		s.observers = append(s.observers, observers...)
	}
}

// WithProgress sets a callback invoked after every processed frontier entry.
// It is called from worker goroutines and must be safe for concurrent use.
func WithProgress(fn func(model.Progress)) SpiderOption {
	return func(s *Spider) {
		s.progress = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a Spider.
//
// Design decision: We require an external fetcher and store because:
//  1. SSRF-safe dialing and proxying are handled by the fetch package
//  2. SQLite and PostgreSQL storage share one interface
//  3. Tests substitute both without a network or a database
func NewSpider(fetcher Fetcher, store Store, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:      fetcher,
		store:        store,
		registry:     adapter.DefaultRegistry(),
		guard:        policy.NewGuard(),
		maxDepth:     config.DefaultMaxDepth,
		maxPages:     config.DefaultMaxPages,
		concurrency:  config.DefaultConcurrency,
		delay:        config.DefaultCrawlDelay,
		timeout:      config.DefaultTimeout,
		maxRedirects: config.DefaultMaxRedirects,
		userAgent:    config.DefaultUserAgent,
		logger:       slog.Default(),
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.concurrency < 1 {
		s.concurrency = 1
	}
	s.limiter = policy.NewHostLimiter(s.delay)
	return s
}

// Crawl crawls from startURL, following same-scope links up to the depth limit.
//
// The returned result is never nil. A non-nil error means the job ended
// Failed (setup error) or Interrupted (ctx done); result.Status tells which.
// Per-URL failures never produce an error; they are listed in result.Errors.
func (s *Spider) Crawl(ctx context.Context, kbID, startURL string) (*model.CrawlResult, error) {
	return s.run(ctx, kbID, startURL, []string{startURL}, true)
}

// CrawlEntries fetches exactly the given index entries. Links found on
// those pages are recorded but never followed.
func (s *Spider) CrawlEntries(ctx context.Context, kbID, origin string, entries []model.IndexEntry) (*model.CrawlResult, error) {
	seeds := make([]string, 0, len(entries))
	for _, e := range entries {
		seeds = append(seeds, e.URL)
	}
	return s.run(ctx, kbID, origin, seeds, false)
}

// crawlRun is the state of one Crawl call.
type crawlRun struct {
	spider   *Spider
	job      *model.CrawlJob
	scope    *policy.Scope
	expand   bool
	frontier *frontier

	// stored holds the pages already stored for the knowledge base, by
	// normalized URL. Loaded for resumed and conditional crawls only.
	stored map[string]model.PageRecord

	mu      sync.Mutex // guards job counters and errors, perPage
	perPage []model.PageOutcome

	pathMu sync.Mutex
	paths  map[string]string // stable path -> URL claimed by this run
}

func (s *Spider) run(ctx context.Context, kbID, startURL string, seeds []string, expand bool) (*model.CrawlResult, error) {
	started := s.now()
	job := model.NewCrawlJob(uuid.NewString(), kbID, startURL, started)
	job.ConfigSnapshot = s.configSnapshot()

	if s.store == nil {
		_ = job.Transition(model.JobFailed, s.now())
		return resultOf(job, nil), ErrNoStore
	}
	if err := s.store.InsertJob(ctx, job); err != nil {
		_ = job.Transition(model.JobFailed, s.now())
		return resultOf(job, nil), fmt.Errorf("failed to create crawl job: %w", err)
	}
	s.notify(ctx, job)

	r, err := s.prepare(ctx, job, seeds, expand)
	if err != nil {
		s.finish(ctx, job, model.JobFailed)
		s.logger.Error("crawl setup failed", "job_id", job.ID, "kb_id", kbID, "error", err)
		return resultOf(job, nil), err
	}

	if err := job.Transition(model.JobRunning, s.now()); err != nil {
		return resultOf(job, nil), err
	}
	if err := s.store.UpdateJob(ctx, job); err != nil {
		s.finish(ctx, job, model.JobFailed)
		return resultOf(job, nil), fmt.Errorf("failed to start crawl job: %w", err)
	}
	s.notify(ctx, job)

	s.logger.Info("crawl started",
		"job_id", job.ID,
		"kb_id", kbID,
		"start_url", startURL,
		"seeds", len(seeds),
		"expand", expand,
		"resume", s.resume,
	)

	r.loop(ctx)

	r.mu.Lock()
	job.PagesFetched, _ = r.frontier.stats()
	r.mu.Unlock()

	status := model.JobCompleted
	if ctx.Err() != nil {
		status = model.JobInterrupted
	}
	s.finish(ctx, job, status)

	r.mu.Lock()
	result := resultOf(job, r.perPage)
	r.mu.Unlock()

	s.logger.Info("crawl finished",
		"job_id", job.ID,
		"status", job.Status,
		"pages_fetched", result.PagesFetched,
		"pages_skipped", result.PagesSkipped,
		"errors", len(result.Errors),
		"duration", result.Duration,
	)

	if status == model.JobInterrupted {
		return result, context.Cause(ctx)
	}
	return result, nil
}

// prepare validates seeds, builds the scope and fills the frontier.
// Any error here is a setup error.
func (s *Spider) prepare(ctx context.Context, job *model.CrawlJob, rawSeeds []string, expand bool) (*crawlRun, error) {
	if len(rawSeeds) == 0 {
		return nil, ErrNoSeeds
	}
	seeds := make([]*url.URL, 0, len(rawSeeds))
	for _, raw := range rawSeeds {
		u, err := policy.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidSeed, u.Scheme)
		}
		seeds = append(seeds, u)
	}

	var scope *policy.Scope
	var err error
	if expand {
		scope, err = policy.NewScope(seeds[0], s.include, s.exclude)
	} else {
		scope, err = policy.NewSeedScope(seeds, s.include, s.exclude)
	}
	if err != nil {
		return nil, err
	}

	r := &crawlRun{
		spider:   s,
		job:      job,
		scope:    scope,
		expand:   expand,
		frontier: newFrontier(s.maxPages),
		stored:   make(map[string]model.PageRecord),
		perPage:  make([]model.PageOutcome, 0),
		paths:    make(map[string]string),
	}

	if s.resume || s.conditional {
		pages, err := s.store.ListPages(ctx, job.KBID)
		if err != nil {
			return nil, fmt.Errorf("failed to load stored pages: %w", err)
		}
		for _, p := range pages {
			if u, err := policy.Parse(p.URL); err == nil {
				r.stored[policy.NormalizeURL(u)] = p
			}
		}
	}
	if s.resume {
		if err := r.seedFromStore(ctx); err != nil {
			return nil, err
		}
	}

	for _, u := range seeds {
		r.frontier.push(frontierEntry{url: u, key: policy.NormalizeURL(u), depth: 0})
	}
	return r, nil
}

// seedFromStore marks stored pages visited and queues their unvisited
// internal links one level below the page that holds them.
func (r *crawlRun) seedFromStore(ctx context.Context) error {
	pages := make([]model.PageRecord, 0, len(r.stored))
	for key, p := range r.stored {
		r.frontier.claim(key)
		pages = append(pages, p)
	}
	if !r.expand {
		return nil
	}

	sort.Slice(pages, func(i, j int) bool {
		if pages[i].Depth != pages[j].Depth {
			return pages[i].Depth < pages[j].Depth
		}
		return pages[i].URL < pages[j].URL
	})

	queued := 0
	for _, p := range pages {
		if p.Depth >= r.spider.maxDepth {
			continue
		}
		links, err := r.spider.store.ListLinks(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("failed to load stored links: %w", err)
		}
		for _, l := range links {
			if l.Kind != model.LinkInternal {
				continue
			}
			u, err := policy.Parse(l.ToURL)
			if err != nil || !r.scope.SameHost(u) {
				continue
			}
			if r.frontier.push(frontierEntry{url: u, key: policy.NormalizeURL(u), depth: p.Depth + 1, from: p.URL}) {
				queued++
			}
		}
	}
	r.spider.logger.Info("resuming crawl", "job_id", r.job.ID, "stored_pages", len(pages), "queued", queued)
	return nil
}

// loop drains the frontier until it is empty, the page cap is reached or
// ctx is done.
func (r *crawlRun) loop(ctx context.Context) {
	sem := semaphore.NewWeighted(int64(r.spider.concurrency))
	var g errgroup.Group

	for {
		e, ok := r.frontier.pop(ctx)
		if !ok {
			break
		}
		if !r.admit(e) {
			r.frontier.done(e, false)
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			r.frontier.done(e, false)
			break
		}
		if ctx.Err() != nil {
			sem.Release(1)
			r.frontier.done(e, false)
			break
		}

		g.Go(func() error {
			defer sem.Release(1)
			stored, reason := r.process(ctx, e)
			fetched := r.frontier.done(e, stored)
			r.reportProgress(e, fetched, reason)
			return nil
		})
	}

	_ = g.Wait()
}

// admit applies the checks that need no network access.
func (r *crawlRun) admit(e frontierEntry) bool {
	if e.depth > r.spider.maxDepth {
		return false
	}
	if !r.scope.Allows(e.url) {
		r.skip(e.key, "out of scope")
		return false
	}
	if err := r.spider.guard.CheckURL(e.url); err != nil {
		r.addError(e.key, err.Error(), model.ErrorKindValidation)
		return false
	}
	return true
}

// process fetches, extracts and stores one entry. It reports whether a
// page was stored, and otherwise a short reason for progress output.
func (r *crawlRun) process(ctx context.Context, e frontierEntry) (bool, string) {
	s := r.spider
	if ctx.Err() != nil {
		return false, ""
	}

	if err := s.guard.Check(ctx, e.url); err != nil {
		if ctx.Err() != nil {
			return false, ""
		}
		kind := model.ErrorKindNetwork
		if errors.Is(err, policy.ErrBlocked) {
			kind = model.ErrorKindValidation
		}
		r.addError(e.key, err.Error(), kind)
		return false, err.Error()
	}

	if err := s.limiter.Wait(ctx, e.url.Host); err != nil {
		return false, ""
	}

	if s.robots != nil {
		allowed := s.robots.Allowed(ctx, e.key)
		if ctx.Err() != nil {
			return false, ""
		}
		if !allowed {
			r.skip(e.key, "disallowed by robots.txt")
			return false, "disallowed by robots.txt"
		}
	}

	prev, hasPrev := r.stored[e.key]
	req := fetch.Request{
		URL:          e.key,
		Timeout:      s.timeout,
		MaxRedirects: s.maxRedirects,
		UserAgent:    s.userAgent,
	}
	if s.conditional && hasPrev {
		req.ETag = prev.ETag
		req.LastModified = prev.LastModified
	}

	resp, err := s.fetcher.Fetch(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ""
		}
		kind := model.ErrorKindNetwork
		if fetch.KindOf(err) == fetch.KindBlocked {
			kind = model.ErrorKindValidation
		}
		r.addError(e.key, err.Error(), kind)
		return false, err.Error()
	}

	if resp.NotModified() && hasPrev {
		return r.reuse(ctx, e, prev)
	}
	if err := fetch.StatusError(resp); err != nil {
		r.addStatusError(e.key, err.Error(), resp.StatusCode)
		return false, err.Error()
	}

	pageURL, pageKey, ok := r.finalURL(e, resp)
	if !ok {
		return false, "redirected"
	}

	outcome, links, err := r.extract(resp, pageURL)
	if err != nil {
		r.addError(pageKey, err.Error(), model.ErrorKindParse)
		return false, err.Error()
	}

	record, err := r.storePage(ctx, e, pageKey, pageURL, resp, outcome, links)
	if err != nil {
		r.addError(pageKey, err.Error(), model.ErrorKindStorage)
		return false, err.Error()
	}

	r.enqueue(e, record.URL, internalTargets(links))
	r.recordOutcome(record, false)
	r.emit(ctx, record, outcome, links, false)

	s.logger.Debug("page stored",
		"url", record.URL,
		"depth", e.depth,
		"adapter", record.AdapterName,
		"links", len(links),
	)
	return true, ""
}

// finalURL resolves the URL a page is stored under after redirects. A
// redirect to an out-of-scope or already visited URL drops the entry.
func (r *crawlRun) finalURL(e frontierEntry, resp *fetch.Response) (*url.URL, string, bool) {
	if resp.FinalURL == "" {
		return e.url, e.key, true
	}
	final, err := policy.Parse(resp.FinalURL)
	if err != nil {
		return e.url, e.key, true
	}
	key := policy.NormalizeURL(final)
	if key == e.key {
		return e.url, e.key, true
	}
	if !r.scope.Allows(final) {
		r.skip(e.key, "redirected out of scope to "+key)
		return nil, "", false
	}
	if !r.frontier.claim(key) {
		r.spider.logger.Debug("redirect target already visited", "url", e.key, "target", key)
		return nil, "", false
	}
	normalized, err := url.Parse(key)
	if err != nil {
		return e.url, e.key, true
	}
	return normalized, key, true
}

// extract routes the body through the adapter registry and collects links.
func (r *crawlRun) extract(resp *fetch.Response, pageURL *url.URL) (model.AdapterOutcome, []Link, error) {
	contentType := resp.ContentType()
	if adapter.IsRaw(contentType, pageURL) {
		return adapter.RawOutcome(resp.Body, pageURL), nil, nil
	}
	if contentType != "" && contentType != "text/html" && contentType != "application/xhtml+xml" {
		return model.AdapterOutcome{}, nil, fmt.Errorf("%w: %s", ErrUnsupportedContent, contentType)
	}

	doc, err := adapter.NewDocument(resp.Body, pageURL)
	if err != nil {
		return model.AdapterOutcome{}, nil, err
	}
	outcome, err := r.spider.registry.Select(doc)
	if err != nil {
		return model.AdapterOutcome{}, nil, err
	}
	return outcome, NewParser(pageURL).ParseNode(doc.Root()).Links, nil
}

// storePage writes the page record and regenerates its links. Writes use a
// context detached from cancellation so an interrupt never leaves a page
// without its links.
func (r *crawlRun) storePage(ctx context.Context, e frontierEntry, key string, pageURL *url.URL, resp *fetch.Response, outcome model.AdapterOutcome, links []Link) (*model.PageRecord, error) {
	s := r.spider
	wctx := context.WithoutCancel(ctx)

	prev, hasPrev := r.stored[key]
	path := model.StablePath(pageURL)
	if hasPrev {
		path = prev.StablePath
	}
	path, err := r.claimPath(wctx, key, path)
	if err != nil {
		return nil, err
	}

	record := &model.PageRecord{
		KBID:          r.job.KBID,
		URL:           key,
		StablePath:    path,
		Title:         outcome.Metadata.Title,
		ContentHash:   model.ContentHash(outcome.ContentHTML),
		FetchedAt:     s.now().UTC(),
		StatusCode:    resp.StatusCode,
		ContentLength: int64(len(resp.Body)),
		AdapterName:   outcome.AdapterName,
		Depth:         e.depth,
		ETag:          resp.Header.Get("ETag"),
		LastModified:  resp.Header.Get("Last-Modified"),
	}
	if hasPrev {
		record.ID = prev.ID
	}
	if err := s.store.UpsertPage(wctx, record); err != nil {
		return nil, fmt.Errorf("failed to store page: %w", err)
	}

	if err := s.store.DeleteLinks(wctx, record.ID); err != nil {
		return nil, fmt.Errorf("failed to replace links: %w", err)
	}
	for _, l := range links {
		link := model.LinkRecord{FromPageID: record.ID, ToURL: l.URL.String(), Kind: l.Kind}
		if err := s.store.InsertLink(wctx, link); err != nil {
			return nil, fmt.Errorf("failed to store link: %w", err)
		}
	}
	return record, nil
}

// reuse handles a 304 answer: the stored hash and links stay valid.
func (r *crawlRun) reuse(ctx context.Context, e frontierEntry, prev model.PageRecord) (bool, string) {
	s := r.spider
	wctx := context.WithoutCancel(ctx)

	record := prev
	record.FetchedAt = s.now().UTC()
	record.Depth = e.depth
	if err := s.store.UpsertPage(wctx, &record); err != nil {
		r.addError(e.key, err.Error(), model.ErrorKindStorage)
		return false, err.Error()
	}
	r.pathMu.Lock()
	r.paths[record.StablePath] = record.URL
	r.pathMu.Unlock()

	stored, err := s.store.ListLinks(wctx, record.ID)
	if err != nil {
		r.addError(e.key, err.Error(), model.ErrorKindStorage)
		return false, err.Error()
	}
	links := make([]Link, 0, len(stored))
	for _, l := range stored {
		if u, err := url.Parse(l.ToURL); err == nil {
			links = append(links, Link{URL: u, Kind: l.Kind})
		}
	}

	r.enqueue(e, record.URL, internalTargets(links))
	r.recordOutcome(&record, true)
	r.emit(ctx, &record, model.AdapterOutcome{AdapterName: record.AdapterName, Metadata: model.PageMetadata{Title: record.Title}}, links, true)

	s.logger.Debug("page not modified", "url", record.URL)
	return true, ""
}

// claimPath returns a stable path for key that no other URL owns. A path
// owned by another URL, in this run or in storage, gets a short hash suffix.
func (r *crawlRun) claimPath(ctx context.Context, key, path string) (string, error) {
	r.pathMu.Lock()
	defer r.pathMu.Unlock()

	owned := func(candidate string) (bool, error) {
		if owner, ok := r.paths[candidate]; ok {
			return owner != key, nil
		}
		existing, err := r.spider.store.GetPageByPath(ctx, r.job.KBID, candidate)
		if errors.Is(err, model.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to check stable path: %w", err)
		}
		return existing.URL != key, nil
	}

	taken, err := owned(path)
	if err != nil {
		return "", err
	}
	if taken {
		path = path + "-" + model.ContentHash(key)[:8]
		if taken, err = owned(path); err != nil {
			return "", err
		} else if taken {
			return "", fmt.Errorf("stable path %q is already taken", path)
		}
	}
	r.paths[path] = key
	return path, nil
}

// enqueue pushes same-host link targets one level deeper. Scope rules are
// applied when the entry is popped, so each rejected URL is counted once.
func (r *crawlRun) enqueue(e frontierEntry, from string, targets []*url.URL) {
	if !r.expand || e.depth >= r.spider.maxDepth {
		return
	}
	for _, u := range targets {
		if !r.scope.SameHost(u) {
			continue
		}
		r.frontier.push(frontierEntry{url: u, key: policy.NormalizeURL(u), depth: e.depth + 1, from: from})
	}
}

func internalTargets(links []Link) []*url.URL {
	out := make([]*url.URL, 0, len(links))
	for _, l := range links {
		if l.Kind == model.LinkInternal {
			out = append(out, l.URL)
		}
	}
	return out
}

func (r *crawlRun) recordOutcome(record *model.PageRecord, notModified bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.perPage = append(r.perPage, model.PageOutcome{
		URL:         record.URL,
		StablePath:  record.StablePath,
		AdapterName: record.AdapterName,
		ContentHash: record.ContentHash,
		NotModified: notModified,
	})
}

func (r *crawlRun) addError(rawURL, reason string, kind model.ErrorKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.job.AddError(rawURL, reason, kind)
	r.spider.logger.Debug("page failed", "url", rawURL, "kind", kind, "reason", reason)
}

func (r *crawlRun) addStatusError(rawURL, reason string, status int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.job.AddStatusError(rawURL, reason, status)
	r.spider.logger.Debug("page failed", "url", rawURL, "status", status, "reason", reason)
}

func (r *crawlRun) skip(rawURL, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.job.PagesSkipped++
	r.spider.logger.Debug("page skipped", "url", rawURL, "reason", reason)
}

func (r *crawlRun) reportProgress(e frontierEntry, fetched int, reason string) {
	if r.spider.progress == nil {
		return
	}
	_, queued := r.frontier.stats()
	r.spider.progress(model.Progress{
		URL:          e.key,
		Depth:        e.depth,
		PagesFetched: fetched,
		Queued:       queued,
		Err:          reason,
	})
}

// emit sends the stored page to every sink.
func (r *crawlRun) emit(ctx context.Context, record *model.PageRecord, outcome model.AdapterOutcome, links []Link, notModified bool) {
	if len(r.spider.sinks) == 0 {
		return
	}
	records := make([]model.LinkRecord, 0, len(links))
	for _, l := range links {
		records = append(records, model.LinkRecord{FromPageID: record.ID, ToURL: l.URL.String(), Kind: l.Kind})
	}
	event := model.PageEvent{
		KBID:        record.KBID,
		JobID:       r.job.ID,
		PageID:      record.ID,
		URL:         record.URL,
		StablePath:  record.StablePath,
		Title:       record.Title,
		Description: outcome.Metadata.Description,
		AdapterName: record.AdapterName,
		ContentHash: record.ContentHash,
		ContentHTML: outcome.ContentHTML,
		TOC:         outcome.TOC,
		Links:       records,
		NotModified: notModified,
		FetchedAt:   record.FetchedAt,
	}

	wctx := context.WithoutCancel(ctx)
	for _, sink := range r.spider.sinks {
		if err := sink.PageStored(wctx, event); err != nil {
			r.spider.logger.Warn("page sink failed", "url", record.URL, "error", err)
		}
	}
}

// finish moves the job to a terminal status and persists it.
func (s *Spider) finish(ctx context.Context, job *model.CrawlJob, status model.JobStatus) {
	if err := job.Transition(status, s.now()); err != nil {
		s.logger.Error("invalid job transition", "job_id", job.ID, "error", err)
		return
	}
	if err := s.store.UpdateJob(context.WithoutCancel(ctx), job); err != nil {
		s.logger.Error("failed to persist crawl job", "job_id", job.ID, "status", status, "error", err)
	}
	s.notify(ctx, job)
}

func (s *Spider) notify(ctx context.Context, job *model.CrawlJob) {
	wctx := context.WithoutCancel(ctx)
	for _, o := range s.observers {
		if err := o.JobChanged(wctx, job); err != nil {
			s.logger.Warn("job observer failed", "job_id", job.ID, "error", err)
		}
	}
}

// configSnapshot returns the settings the job runs with as JSON.
func (s *Spider) configSnapshot() string {
	if s.snapshot != "" {
		return s.snapshot
	}
	data, err := json.Marshal(struct {
		MaxDepth      int      `json:"max_depth"`
		MaxPages      int      `json:"max_pages"`
		Concurrency   int      `json:"concurrency"`
		Delay         string   `json:"delay"`
		Timeout       string   `json:"timeout"`
		MaxRedirects  int      `json:"max_redirects"`
		UserAgent     string   `json:"user_agent"`
		Include       []string `json:"include,omitempty"`
		Exclude       []string `json:"exclude,omitempty"`
		RespectRobots bool     `json:"respect_robots"`
		Conditional   bool     `json:"conditional"`
		Resume        bool     `json:"resume"`
	}{
		MaxDepth:      s.maxDepth,
		MaxPages:      s.maxPages,
		Concurrency:   s.concurrency,
		Delay:         s.delay.String(),
		Timeout:       s.timeout.String(),
		MaxRedirects:  s.maxRedirects,
		UserAgent:     s.userAgent,
		Include:       s.include,
		Exclude:       s.exclude,
		RespectRobots: s.robots != nil,
		Conditional:   s.conditional,
		Resume:        s.resume,
	})
	if err != nil {
		return "{}"
	}
	return string(data)
}

// resultOf builds the caller-facing summary of job.
func resultOf(job *model.CrawlJob, perPage []model.PageOutcome) *model.CrawlResult {
	pages := make([]model.PageOutcome, len(perPage))
	copy(pages, perPage)
	sort.Slice(pages, func(i, j int) bool { return pages[i].URL < pages[j].URL })

	errs := make([]model.CrawlError, len(job.Errors))
	copy(errs, job.Errors)

	return &model.CrawlResult{
		JobID:        job.ID,
		Status:       job.Status,
		PagesFetched: job.PagesFetched,
		PagesSkipped: job.PagesSkipped,
		Errors:       errs,
		Duration:     job.Duration(),
		PerPage:      pages,
	}
}
