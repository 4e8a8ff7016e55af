package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewUpdateCmd creates the update command.
func NewUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <kb-id> [kb-id...]",
		Short: "Re-crawl a knowledge base and report what changed",
		Long: `Update re-ingests existing knowledge bases from their original source.

Pages are fetched conditionally (If-None-Match / If-Modified-Since), so
unchanged pages cost a 304 response. Afterwards every page is classified as
added, changed, unchanged or removed by comparing content hashes with the
previous run.

Removed pages are only reported. Use --prune to delete them; pages whose
re-fetch failed are never pruned. Use --force to refetch everything and treat
every surviving page as changed.

Examples:
  # Update a knowledge base
  docingest update 0b9d1f1e-5c36-4a4e-9a51-2f4c1a1f7c0e

  # Update and delete pages that disappeared from the site
  docingest update --prune 0b9d1f1e-5c36-4a4e-9a51-2f4c1a1f7c0e

  # Force a full refresh and output Markdown
  docingest update --force --markdown 0b9d1f1e-5c36-4a4e-9a51-2f4c1a1f7c0e

  # List knowledge base IDs
  docingest history --list-kbs`,
		Args: cobra.MinimumNArgs(1),
		RunE: runUpdateCmd,
	}

	addCrawlFlags(cmd)
	cmd.Flags().Bool("prune", false,
		"Delete pages that are no longer reachable from the source")
	cmd.Flags().BoolP("force", "f", false,
		"Ignore stored validators and classify every surviving page as changed")

	return cmd
}

// runUpdateCmd executes the update command.
func runUpdateCmd(cmd *cobra.Command, args []string) error {
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

	logger.Info("starting update",
		"kbs", len(cfg.Targets),
		"prune", cfg.Prune,
		"force", cfg.Force,
	)

	return runIngest(ctx, ingestRequest{
		cfg:          cfg,
		update:       true,
		modeOverride: cmd.Flags().Changed("mode"),
		out:          cmd.OutOrStdout(),
		errOut:       errOut,
		logger:       logger,
	})
}
