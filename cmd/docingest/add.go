package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewAddCmd creates the add command.
func NewAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <url> [url...]",
		Short: "Ingest a documentation website into a new knowledge base",
		Long: `Add ingests one or more documentation websites, one knowledge base each.

For every source URL docingest:
- Looks for /llms-full.txt and /llms.txt at the site origin (mode auto)
- Fetches the listed pages, or crawls from the URL when no index exists
- Extracts content, table of contents and metadata with a framework adapter
- Stores every page with a content hash for later incremental updates

Adding a source that was already ingested reuses its knowledge base.
Use --resume to continue an interrupted crawl without refetching pages.

Examples:
  # Ingest a documentation site
  docingest add https://docs.example.com/

  # Crawl only the guide section, ignoring any llms.txt
  docingest add --mode crawl --include "/guide/**" https://docs.example.com/guide/

  # Ingest several sites, three at a time
  docingest add -b 3 https://a.example.com/ https://b.example.com/ https://c.example.com/

  # Continue a crawl that was interrupted with Ctrl+C
  docingest add --resume https://docs.example.com/

  # Output JSON report to a file
  docingest add --json -o report.json https://docs.example.com/`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAddCmd,
	}

	addCrawlFlags(cmd)
	cmd.Flags().String("kb-id", "",
		"Knowledge base ID for a new source (default: random UUID, single source only)")
	cmd.Flags().String("name", "",
		"Human-readable knowledge base name (default: host and path)")
	cmd.Flags().Bool("resume", false,
		"Continue an interrupted crawl from the stored pages and links")

	return cmd
}

// runAddCmd executes the add command.
func runAddCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	errOut := &syncWriter{w: cmd.ErrOrStderr()}
	logger := setupLogger(errOut, cfg.Verbose)
	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	logger.Info("starting add",
		"targets", len(cfg.Targets),
		"mode", cfg.Mode,
		"batchSize", cfg.BatchSize,
	)

	return runIngest(ctx, ingestRequest{
		cfg:    cfg,
		out:    cmd.OutOrStdout(),
		errOut: errOut,
		logger: logger,
	})
}
