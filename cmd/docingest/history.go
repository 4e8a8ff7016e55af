package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/docingest/internal/config"
	"github.com/nao1215/docingest/internal/database"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
// This command shows past crawl jobs stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [kb-id]",
		Short: "Show crawl history of a knowledge base",
		Long: `History lists the crawl jobs of a knowledge base, newest first.

Each job shows its status (pending, running, completed, interrupted, failed),
the number of pages fetched and skipped, and how many errors were recorded.

Examples:
  # Show the jobs of a knowledge base
  docingest history 0b9d1f1e-5c36-4a4e-9a51-2f4c1a1f7c0e

  # List all knowledge bases in the database
  docingest history --list-kbs

  # Output history in JSON format
  docingest history --json 0b9d1f1e-5c36-4a4e-9a51-2f4c1a1f7c0e`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-kbs", "L", false,
		"List all knowledge bases in the database")
	cmd.Flags().BoolP("json", "j", false,
		"Output history in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output history in Markdown format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listKBs, err := cmd.Flags().GetBool("list-kbs")
	if err != nil {
		return err
	}
	if !listKBs && len(args) == 0 {
		return errors.New("knowledge base ID is required (or use --list-kbs)")
	}

	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if cfg.JSONReport && cfg.MarkdownReport {
		return config.ErrConflictingReportFormats
	}
	if err := loadStorageConfig(cmd, cfg); err != nil {
		return err
	}
	setupLogger(cmd.ErrOrStderr(), cfg.Verbose)

	ctx := context.Background()
	store, err := openStore(ctx, cfg, false)
	if err != nil {
		if errors.Is(err, database.ErrDatabaseNotFound) {
			return errors.New("no knowledge bases yet (use 'docingest add <url>' first)")
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	writer := newReportWriter(cmd.OutOrStdout(), cfg)

	if listKBs {
		kbs, err := store.ListKBs(ctx)
		if err != nil {
			return err
		}
		_, err = writer.WriteKnowledgeBases(kbs)
		return err
	}

	kb, err := store.GetKB(ctx, args[0])
	if err != nil {
		return err
	}
	jobs, err := store.ListJobs(ctx, kb.ID)
	if err != nil {
		return err
	}
	_, err = writer.WriteHistory(kb, jobs)
	return err
}
