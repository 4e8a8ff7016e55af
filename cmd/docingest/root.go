package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for docingest.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docingest",
		Short: "Ingest documentation websites into knowledge bases",
		Long: `docingest ingests documentation websites into versioned knowledge bases.

It prefers a site-published llms.txt index and falls back to a polite,
scope-limited crawl. Pages are extracted with framework adapters (Docusaurus,
VitePress, GitBook, Read the Docs, generic HTML) and stored with content
hashes, so later updates only report what actually changed.

Knowledge bases are stored in SQLite under the XDG data directory unless the
configuration file selects PostgreSQL.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging and per-page progress")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .docingest in current or home directory)")
	cmd.PersistentFlags().String("data-dir", "",
		"Directory of the SQLite database (default: XDG data directory)")

	// Add subcommands
	cmd.AddCommand(NewAddCmd())
	cmd.AddCommand(NewUpdateCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
