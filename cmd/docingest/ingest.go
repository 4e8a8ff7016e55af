package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/docingest/internal/config"
	"github.com/nao1215/docingest/internal/crawler"
	"github.com/nao1215/docingest/internal/database"
	"github.com/nao1215/docingest/internal/fetch"
	ilog "github.com/nao1215/docingest/internal/log"
	"github.com/nao1215/docingest/internal/model"
	"github.com/nao1215/docingest/internal/pipeline"
	"github.com/nao1215/docingest/internal/policy"
	"github.com/nao1215/docingest/internal/report"
	"github.com/nao1215/docingest/internal/sink"
	"github.com/spf13/cobra"
)

// addCrawlFlags registers the crawl and report flags shared by add and update.
func addCrawlFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	// Discovery and crawl limits
	flags.StringP("mode", "M", config.DefaultMode,
		"Ingest mode: auto (llms.txt, then crawl), llms-txt (index only) or crawl")
	flags.IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link distance from the start URL (0 fetches only the seeds)")
	flags.IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages fetched per knowledge base")
	flags.IntP("concurrency", "C", config.DefaultConcurrency,
		"Number of concurrent fetches per knowledge base")
	flags.Duration("delay", config.DefaultCrawlDelay,
		"Minimum spacing between requests to the same host")
	flags.DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page request")
	flags.Duration("discovery-timeout", config.DefaultDiscoveryTimeout,
		"Timeout for each llms.txt probe")
	flags.Int("max-redirects", config.DefaultMaxRedirects,
		"Maximum number of redirects followed per page")
	flags.Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum number of bytes read from one response")
	flags.StringSlice("include", nil,
		"Glob pattern a URL path must match to be crawled (repeatable)")
	flags.StringSlice("exclude", nil,
		"Glob pattern that rejects a URL path (repeatable)")
	flags.String("user-agent", "",
		"User-Agent header (default: docingest/<version>)")

	// Politeness and network policy
	flags.Bool("no-robots", false,
		"Ignore robots.txt (only for sites you operate)")
	flags.String("robots-unreachable", config.DefaultRobotsUnreachable,
		"What to do when robots.txt cannot be fetched: allow or deny")
	flags.Bool("allow-private", false,
		"Allow loopback and private network addresses (local mirrors)")
	flags.String("proxy", "",
		"Route requests through a SOCKS5 proxy (host:port)")

	// Batch ingest
	flags.IntP("batch", "b", config.DefaultBatchSize,
		"Number of knowledge bases ingested concurrently")

	// Report flags
	flags.BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	flags.BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	flags.StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
// Flags that only one command defines are read when present.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.Targets = args
	flags := cmd.Flags()

	var err error
	if cfg.Mode, err = flags.GetString("mode"); err != nil {
		return nil, err
	}
	if cfg.MaxDepth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.DiscoveryTimeout, err = flags.GetDuration("discovery-timeout"); err != nil {
		return nil, err
	}
	if cfg.MaxRedirects, err = flags.GetInt("max-redirects"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.IncludePatterns, err = flags.GetStringSlice("include"); err != nil {
		return nil, err
	}
	if cfg.ExcludePatterns, err = flags.GetStringSlice("exclude"); err != nil {
		return nil, err
	}

	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = userAgent()
	}

	noRobots, err := flags.GetBool("no-robots")
	if err != nil {
		return nil, err
	}
	cfg.RespectRobots = !noRobots

	if cfg.RobotsUnreachable, err = flags.GetString("robots-unreachable"); err != nil {
		return nil, err
	}
	if cfg.AllowPrivateNetworks, err = flags.GetBool("allow-private"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	// Command-specific flags
	if flags.Lookup("kb-id") != nil {
		if cfg.KBID, err = flags.GetString("kb-id"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("name") != nil {
		if cfg.KBName, err = flags.GetString("name"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("resume") != nil {
		if cfg.Resume, err = flags.GetBool("resume"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("prune") != nil {
		if cfg.Prune, err = flags.GetBool("prune"); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("force") != nil {
		if cfg.Force, err = flags.GetBool("force"); err != nil {
			return nil, err
		}
	}

	if err := loadStorageConfig(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadStorageConfig reads the configuration file and the database location.
// history uses it on its own because it has no crawl flags.
func loadStorageConfig(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.File, err = config.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	default:
		cfg.File = config.NewFile()
	}

	cfg.DBDir, err = cmd.Flags().GetString("data-dir")
	if err != nil {
		return err
	}
	storage := cfg.File.Storage
	switch {
	case storage.Driver == "postgres":
		cfg.DatabaseURL = storage.DSN
	case cfg.DBDir == "" && storage.DSN != "":
		cfg.DBDir = storage.DSN
	}
	if cfg.DBDir == "" {
		cfg.DBDir = config.XDGDataDir()
	}
	return nil
}

// setupLogger creates the redacting logger and installs it as the default.
func setupLogger(w io.Writer, verbose bool) *slog.Logger {
	logger := ilog.NewSecureLogger(w, verbose)
	slog.SetDefault(logger)
	return logger
}

// signalContext returns a child of parent that is also cancelled on SIGINT
// or SIGTERM. An interrupted crawl is recorded as Interrupted and resumes on
// the next add.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// openStore opens PostgreSQL when the configuration file selects it and the
// SQLite database in cfg.DBDir otherwise.
func openStore(ctx context.Context, cfg *config.Config, create bool) (*database.CrawlDB, error) {
	if cfg.DatabaseURL != "" {
		return database.OpenPostgres(ctx, cfg.DatabaseURL)
	}
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = create
	return database.Open(cfg.DBDir, opts)
}

// sinkSet holds the downstream consumers configured in the configuration file.
type sinkSet struct {
	sinks     []crawler.PageSink
	observers []crawler.JobObserver
	closers   []func() error
}

// openSinks connects the configured sinks. Nothing is connected for an
// empty configuration.
func openSinks(cfg config.SinksConfig) (*sinkSet, error) {
	set := &sinkSet{}

	if cfg.Kafka.Enabled() {
		publisher := sink.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		set.sinks = append(set.sinks, publisher)
		set.closers = append(set.closers, publisher.Close)
	}

	if cfg.Neo4j.Enabled() {
		graph, err := sink.NewGraphWriter(cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password)
		if err != nil {
			set.close(slog.Default())
			return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
		}
		set.sinks = append(set.sinks, graph)
		set.closers = append(set.closers, func() error {
			return graph.Close(context.Background())
		})
	}

	if cfg.Redis.Enabled() {
		var ttl time.Duration
		if cfg.Redis.TTL != "" {
			d, err := time.ParseDuration(cfg.Redis.TTL)
			if err != nil {
				set.close(slog.Default())
				return nil, fmt.Errorf("invalid redis ttl %q: %w", cfg.Redis.TTL, err)
			}
			ttl = d
		}
		mirror := sink.NewRedisStatusMirror(cfg.Redis.Addr, cfg.Redis.Prefix, ttl)
		set.observers = append(set.observers, mirror)
		set.closers = append(set.closers, mirror.Close)
	}
	return set, nil
}

// close releases every sink. Errors are logged because the ingest result is
// already final.
func (s *sinkSet) close(logger *slog.Logger) {
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			logger.Warn("failed to close sink", "error", err)
		}
	}
}

// newFetcher builds the HTTP client of one knowledge base. Configured headers
// are only sent to the host of source.
func newFetcher(cfg *config.Config, source string, guard *policy.Guard, logger *slog.Logger) (*fetch.HTTPFetcher, error) {
	opts := []fetch.Option{
		fetch.WithGuard(guard),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithLogger(logger),
	}
	if cfg.ProxyAddress != "" {
		opts = append(opts, fetch.WithProxy(cfg.ProxyAddress))
	}
	if len(cfg.Headers) > 0 {
		u, err := url.Parse(source)
		if err != nil {
			return nil, fmt.Errorf("invalid source URL %q: %w", source, err)
		}
		opts = append(opts, fetch.WithHeaders(u.Host, cfg.Headers))
	}
	return fetch.New(opts...)
}

// syncWriter serializes writes from the logger and the progress printer,
// which share stderr.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// progressPrinter returns a progress callback that prints one line per
// processed page. Several crawls may call it concurrently, so w must be
// safe for concurrent use.
func progressPrinter(w io.Writer) func(model.Progress) {
	return func(p model.Progress) {
		if p.Err != "" {
			fmt.Fprintf(w, "[%d fetched, %d queued] %s: %s\n", p.PagesFetched, p.Queued, p.URL, p.Err)
			return
		}
		fmt.Fprintf(w, "[%d fetched, %d queued] depth %d %s\n", p.PagesFetched, p.Queued, p.Depth, p.URL)
	}
}

// ingestRequest is one add or update invocation after flag parsing.
type ingestRequest struct {
	cfg    *config.Config
	update bool
	// modeOverride applies cfg.Mode to existing knowledge bases on update.
	modeOverride bool
	out          io.Writer
	errOut       io.Writer
	logger       *slog.Logger
}

// runIngest resolves the knowledge bases, ingests them through the batch
// processor and writes one report per knowledge base.
func runIngest(ctx context.Context, req ingestRequest) error {
	cfg := req.cfg
	logger := req.logger

	store, err := openStore(ctx, cfg, !req.update)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	var kbs []model.KnowledgeBase
	var resume map[string]bool
	if req.update {
		kbs, err = resolveUpdateKBs(ctx, store, cfg, req.modeOverride)
	} else {
		kbs, resume, err = resolveAddKBs(ctx, store, cfg)
	}
	if err != nil {
		return err
	}
	for id := range resume {
		logger.Info("resuming unfinished crawl", "kb", id)
	}

	sinks, err := openSinks(cfg.File.Sinks)
	if err != nil {
		return err
	}
	defer sinks.close(logger)

	guard := policy.NewGuard(policy.WithAllowPrivate(cfg.AllowPrivateNetworks))
	var progress func(model.Progress)
	if cfg.Verbose {
		progress = progressPrinter(req.errOut)
	}

	factory := func(kb model.KnowledgeBase) (*pipeline.Pipeline, error) {
		targetCfg, err := cfg.ForTarget(kb.SourceURL)
		if err != nil {
			return nil, err
		}
		targetCfg.Mode = kb.Mode
		if resume[kb.ID] {
			targetCfg.Resume = true
		}

		kbLogger := logger.With("kb", kb.ID)
		fetcher, err := newFetcher(targetCfg, kb.SourceURL, guard, kbLogger)
		if err != nil {
			return nil, err
		}
		deps := pipeline.Dependencies{
			Store:     store,
			Fetcher:   fetcher,
			Guard:     guard,
			Sinks:     sinks.sinks,
			Observers: sinks.observers,
			Progress:  progress,
			Logger:    kbLogger,
		}
		return pipeline.DefaultPipeline(targetCfg, deps, req.update), nil
	}

	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
		pipeline.WithUpdate(req.update),
	)
	reports, batchErr := bp.ProcessBatch(ctx, kbs)

	// Successful runs bump the knowledge base's updated_at.
	for _, r := range reports {
		if r.Error != "" || ctx.Err() != nil {
			continue
		}
		kb := r.KnowledgeBase
		if err := store.UpsertKB(ctx, &kb); err != nil {
			logger.Warn("failed to touch knowledge base", "kb", kb.ID, "error", err)
		}
	}

	if err := outputReports(req.out, cfg, reports); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if batchErr != nil {
		return fmt.Errorf("ingest interrupted: %w", batchErr)
	}
	if pipeline.Failed(reports) {
		failed := 0
		for _, r := range reports {
			if r.Error != "" {
				failed++
			}
		}
		return fmt.Errorf("%d of %d ingests failed", failed, len(reports))
	}
	return nil
}

// resolveAddKBs creates or reuses one knowledge base per source URL.
// Re-adding a source reuses its knowledge base. The returned set holds the
// IDs of reused knowledge bases whose last crawl never completed; those
// resume without --resume.
func resolveAddKBs(ctx context.Context, store *database.CrawlDB, cfg *config.Config) ([]model.KnowledgeBase, map[string]bool, error) {
	seen := make(map[string]bool, len(cfg.Targets))
	kbs := make([]model.KnowledgeBase, 0, len(cfg.Targets))
	resume := make(map[string]bool)

	for _, target := range cfg.Targets {
		source, err := policy.Normalize(target)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid source URL %q: %w", target, err)
		}
		if seen[source] {
			continue
		}
		seen[source] = true

		kb, err := store.FindKBBySource(ctx, source)
		switch {
		case err == nil:
			if cfg.KBID != "" && cfg.KBID != kb.ID {
				return nil, nil, fmt.Errorf("source %s is already ingested as knowledge base %s", source, kb.ID)
			}
			unfinished, err := lastCrawlUnfinished(ctx, store, kb.ID)
			if err != nil {
				return nil, nil, err
			}
			if unfinished {
				resume[kb.ID] = true
			}
		case errors.Is(err, model.ErrNotFound):
			kb, err = newKB(ctx, store, cfg.KBID, source)
			if err != nil {
				return nil, nil, err
			}
		default:
			return nil, nil, err
		}

		kb.Mode = cfg.Mode
		if cfg.KBName != "" {
			kb.Name = cfg.KBName
		}
		if err := store.UpsertKB(ctx, kb); err != nil {
			return nil, nil, err
		}
		kbs = append(kbs, *kb)
	}
	return kbs, resume, nil
}

// lastCrawlUnfinished reports whether the newest job of kbID was
// interrupted, or never reached a terminal status because the process died.
func lastCrawlUnfinished(ctx context.Context, store *database.CrawlDB, kbID string) (bool, error) {
	jobs, err := store.ListJobs(ctx, kbID)
	if err != nil {
		return false, fmt.Errorf("failed to read crawl history of %s: %w", kbID, err)
	}
	if len(jobs) == 0 {
		return false, nil
	}
	last := jobs[0]
	return last.Status == model.JobInterrupted || !last.Status.IsTerminal(), nil
}

// newKB returns a knowledge base for a source that was never ingested.
// A requested ID must not belong to a knowledge base of another source.
func newKB(ctx context.Context, store *database.CrawlDB, id, source string) (*model.KnowledgeBase, error) {
	if id != "" {
		existing, err := store.GetKB(ctx, id)
		if err == nil {
			return nil, fmt.Errorf("knowledge base %s already exists for %s", id, existing.SourceURL)
		}
		if !errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
	}

	name := source
	if u, err := url.Parse(source); err == nil && u.Host != "" {
		name = u.Host
		if u.Path != "" && u.Path != "/" {
			name += u.Path
		}
	}
	return &model.KnowledgeBase{ID: id, Name: name, SourceURL: source}, nil
}

// resolveUpdateKBs loads the knowledge bases named by cfg.Targets.
func resolveUpdateKBs(ctx context.Context, store *database.CrawlDB, cfg *config.Config, modeOverride bool) ([]model.KnowledgeBase, error) {
	seen := make(map[string]bool, len(cfg.Targets))
	kbs := make([]model.KnowledgeBase, 0, len(cfg.Targets))

	for _, id := range cfg.Targets {
		if seen[id] {
			continue
		}
		seen[id] = true

		kb, err := store.GetKB(ctx, id)
		if err != nil {
			return nil, err
		}
		if modeOverride {
			kb.Mode = cfg.Mode
		}
		if kb.Mode == "" {
			kb.Mode = config.DefaultMode
		}
		kbs = append(kbs, *kb)
	}
	return kbs, nil
}

// newReportWriter selects the report format requested by cfg.
func newReportWriter(w io.Writer, cfg *config.Config) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(w, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
	}
}

// outputReports writes reports to cfg.ReportFile, or to w when no file is set.
func outputReports(w io.Writer, cfg *config.Config, reports []*model.IngestReport) error {
	output := w
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports may contain private documentation URLs.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	writer := newReportWriter(output, cfg)
	for _, r := range reports {
		if _, err := writer.Write(r); err != nil {
			return err
		}
	}
	return nil
}
