package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/docingest/internal/model"
)

// SimpleWriter outputs human-readable text reports.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because it works in all terminals and is easy to pipe to
// files or other tools.
type SimpleWriter struct {
	baseWriter

	// verbose lists every URL of the diff and every error.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the ingest report in human-readable format.
func (w *SimpleWriter) Write(report *model.IngestReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeCrawl(&sb, report)
	w.writeDiff(&sb, report)
	w.writeErrors(&sb, report)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.IngestReport) {
	title := "DOCINGEST ADD"
	if report.Update {
		title = "DOCINGEST UPDATE"
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "%s\n", title)
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	kb := report.KnowledgeBase
	fmt.Fprintf(sb, "Knowledge Base: %s (%s)\n", kb.Name, kb.ID)
	fmt.Fprintf(sb, "Source:         %s\n", kb.SourceURL)
	fmt.Fprintf(sb, "Mode:           %s\n", kb.Mode)
	fmt.Fprintf(sb, "Discovery:      %s\n", discoveryText(report))
	fmt.Fprintf(sb, "Started:        %s\n", formatTime(report.StartedAt))
	fmt.Fprintf(sb, "Status:         %s\n", statusText(report))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeCrawl(sb *strings.Builder, report *model.IngestReport) {
	c := report.Crawl
	if c == nil {
		return
	}
	section(sb, "CRAWL")
	fmt.Fprintf(sb, "  Job:           %s\n", c.JobID)
	fmt.Fprintf(sb, "  Pages fetched: %d\n", c.PagesFetched)
	fmt.Fprintf(sb, "  Pages skipped: %d\n", c.PagesSkipped)
	fmt.Fprintf(sb, "  Errors:        %d\n", len(c.Errors))
	fmt.Fprintf(sb, "  Duration:      %s\n", formatDuration(c.Duration))
	if adapter := c.PrimaryAdapter(); adapter != "" {
		fmt.Fprintf(sb, "  Adapter:       %s\n", adapter)
	}
	if w.verbose {
		sb.WriteString("\n")
		for _, p := range c.PerPage {
			marker := "+"
			if p.NotModified {
				marker = "="
			}
			fmt.Fprintf(sb, "  [%s] %s -> %s (%s)\n", marker, p.URL, p.StablePath, p.AdapterName)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeDiff(sb *strings.Builder, report *model.IngestReport) {
	d := report.Diff
	if d == nil {
		return
	}
	section(sb, "CHANGES")
	fmt.Fprintf(sb, "  ADDED:     %d\n", len(d.Added))
	fmt.Fprintf(sb, "  CHANGED:   %d\n", len(d.Changed))
	fmt.Fprintf(sb, "  UNCHANGED: %d\n", len(d.Unchanged))
	fmt.Fprintf(sb, "  REMOVED:   %d\n", len(d.Removed))
	if len(report.Pruned) > 0 {
		fmt.Fprintf(sb, "  PRUNED:    %d\n", len(report.Pruned))
	}
	sb.WriteString("\n")

	if !w.verbose {
		return
	}
	for _, group := range []struct {
		marker string
		urls   []string
	}{
		{"+", d.Added},
		{"~", d.Changed},
		{"-", d.Removed},
	} {
		for _, u := range group.urls {
			fmt.Fprintf(sb, "  [%s] %s\n", group.marker, u)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeErrors(sb *strings.Builder, report *model.IngestReport) {
	if report.Crawl == nil || len(report.Crawl.Errors) == 0 {
		return
	}
	section(sb, "ERRORS")
	errs := report.Crawl.Errors
	limit := len(errs)
	if !w.verbose && limit > maxListedErrors {
		limit = maxListedErrors
	}
	for _, e := range errs[:limit] {
		fmt.Fprintf(sb, "  [%s] %s\n", e.Kind, e.URL)
		fmt.Fprintf(sb, "      %s\n", e.Reason)
	}
	if limit < len(errs) {
		fmt.Fprintf(sb, "  ... and %d more (use --verbose)\n", len(errs)-limit)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// WriteHistory outputs the crawl jobs of kb as a table.
func (w *SimpleWriter) WriteHistory(kb *model.KnowledgeBase, jobs []model.CrawlJob) (int, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s)\n%s\n\n", kb.Name, kb.ID, kb.SourceURL)
	if len(jobs) == 0 {
		sb.WriteString("No crawl jobs.\n")
		return io.WriteString(w.output, sb.String())
	}

	fmt.Fprintf(&sb, "%-36s  %-11s  %-23s  %7s  %7s  %6s\n", "JOB", "STATUS", "STARTED", "FETCHED", "SKIPPED", "ERRORS")
	for _, j := range jobs {
		fmt.Fprintf(&sb, "%-36s  %-11s  %-23s  %7d  %7d  %6d\n",
			j.ID, j.Status, formatTime(j.StartedAt), j.PagesFetched, j.PagesSkipped, len(j.Errors))
	}
	return io.WriteString(w.output, sb.String())
}

// WriteKnowledgeBases outputs kbs as a table.
func (w *SimpleWriter) WriteKnowledgeBases(kbs []model.KnowledgeBase) (int, error) {
	if len(kbs) == 0 {
		return io.WriteString(w.output, "No knowledge bases. Add one with `docingest add <url>`.\n")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-36s  %-24s  %-8s  %-23s  %s\n", "ID", "NAME", "MODE", "UPDATED", "SOURCE")
	for _, kb := range kbs {
		fmt.Fprintf(&sb, "%-36s  %-24s  %-8s  %-23s  %s\n",
			kb.ID, truncateString(kb.Name, 24), kb.Mode, formatTime(kb.UpdatedAt), kb.SourceURL)
	}
	return io.WriteString(w.output, sb.String())
}

// section writes a section heading.
func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}
