package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/docingest/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing, e.g. as a pull
// request comment after a scheduled update.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the ingest report in Markdown format.
func (w *MarkdownWriter) Write(report *model.IngestReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeCrawl(md, report)
	w.writeDiff(md, report)
	w.writeErrors(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.IngestReport) {
	title := "Ingest Report"
	if report.Update {
		title = "Update Report"
	}
	kb := report.KnowledgeBase
	md.H1(title + ": " + kb.Name)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Knowledge Base", "`" + kb.ID + "`"},
			{"Source", kb.SourceURL},
			{"Mode", kb.Mode},
			{"Discovery", discoveryText(report)},
			{"Started", formatTime(report.StartedAt)},
			{"Status", statusText(report)},
		},
	})
	md.PlainText("")

	if report.Error != "" {
		md.Cautionf("The run failed: %s", report.Error)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeCrawl(md *markdown.Markdown, report *model.IngestReport) {
	c := report.Crawl
	if c == nil {
		return
	}
	md.H2("Crawl")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Job", "`" + c.JobID + "`"},
			{"Pages fetched", strconv.Itoa(c.PagesFetched)},
			{"Pages skipped", strconv.Itoa(c.PagesSkipped)},
			{"Errors", strconv.Itoa(len(c.Errors))},
			{"Duration", formatDuration(c.Duration)},
			{"Primary adapter", valueOrDash(c.PrimaryAdapter())},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeDiff(md *markdown.Markdown, report *model.IngestReport) {
	d := report.Diff
	if d == nil {
		return
	}
	md.H2("Changes")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Class", "Pages"},
		Rows: [][]string{
			{"Added", strconv.Itoa(len(d.Added))},
			{"Changed", strconv.Itoa(len(d.Changed))},
			{"Unchanged", strconv.Itoa(len(d.Unchanged))},
			{"Removed", strconv.Itoa(len(d.Removed))},
			{"**Total**", "**" + strconv.Itoa(d.Total()) + "**"},
		},
	})
	md.PlainText("")

	if d.Total() > 0 {
		w.writePieChart(md, d)
	}

	if !d.HasChanges() {
		md.Tip("No page changed since the previous run.")
		md.PlainText("")
		return
	}

	for _, group := range []struct {
		title string
		urls  []string
	}{
		{"Added", d.Added},
		{"Changed", d.Changed},
		{"Removed", d.Removed},
	} {
		if len(group.urls) == 0 {
			continue
		}
		md.H3(group.title)
		md.PlainText("")
		md.BulletList(group.urls...)
		md.PlainText("")
	}

	if len(report.Pruned) > 0 {
		md.Importantf("%d removed page(s) were pruned from the knowledge base.", len(report.Pruned))
		md.PlainText("")
	} else if len(d.Removed) > 0 {
		md.Note("Removed pages are kept. Run `docingest update --prune` to delete them.")
		md.PlainText("")
	}
}

// writePieChart writes a mermaid pie chart of the diff classes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, d *model.DiffResult) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page Changes"),
		piechart.WithShowData(true),
	)
	for _, slice := range []struct {
		label string
		n     int
	}{
		{"Added", len(d.Added)},
		{"Changed", len(d.Changed)},
		{"Unchanged", len(d.Unchanged)},
		{"Removed", len(d.Removed)},
	} {
		if slice.n > 0 {
			chart.LabelAndIntValue(slice.label, uint64(slice.n))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeErrors(md *markdown.Markdown, report *model.IngestReport) {
	if report.Crawl == nil || len(report.Crawl.Errors) == 0 {
		return
	}
	errs := report.Crawl.Errors

	md.H2("Errors")
	md.PlainText("")
	md.Warningf("%d page(s) could not be ingested.", len(errs))
	md.PlainText("")

	limit := min(len(errs), maxListedErrors)
	rows := make([][]string, 0, limit)
	for _, e := range errs[:limit] {
		rows = append(rows, []string{
			truncateString(e.URL, 60),
			string(e.Kind),
			truncateString(e.Reason, 80),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Kind", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
	if limit < len(errs) {
		md.PlainTextf("... and %d more.", len(errs)-limit)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [docingest](https://github.com/nao1215/docingest)*")
}

// WriteHistory outputs the crawl jobs of kb as a Markdown table.
func (w *MarkdownWriter) WriteHistory(kb *model.KnowledgeBase, jobs []model.CrawlJob) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H1("History: " + kb.Name)
	md.PlainText("")
	md.PlainTextf("Source: %s", kb.SourceURL)
	md.PlainText("")

	if len(jobs) == 0 {
		md.PlainText("No crawl jobs.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, []string{
			"`" + j.ID + "`",
			titleCase(string(j.Status)),
			formatTime(j.StartedAt),
			formatDuration(j.Duration()),
			strconv.Itoa(j.PagesFetched),
			strconv.Itoa(j.PagesSkipped),
			strconv.Itoa(len(j.Errors)),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Job", "Status", "Started", "Duration", "Fetched", "Skipped", "Errors"},
		Rows:   rows,
	})
	return len(md.String()), md.Build()
}

// WriteKnowledgeBases outputs kbs as a Markdown table.
func (w *MarkdownWriter) WriteKnowledgeBases(kbs []model.KnowledgeBase) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H1("Knowledge Bases")
	md.PlainText("")

	if len(kbs) == 0 {
		md.PlainText("No knowledge bases.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, 0, len(kbs))
	for _, kb := range kbs {
		rows = append(rows, []string{"`" + kb.ID + "`", kb.Name, kb.Mode, formatTime(kb.UpdatedAt), kb.SourceURL})
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Name", "Mode", "Updated", "Source"},
		Rows:   rows,
	})
	return len(md.String()), md.Build()
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
