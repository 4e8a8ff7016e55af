package report

import (
	"io"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/docingest/internal/model"
)

// maxListedErrors caps the errors listed by the text and Markdown writers
// unless verbose output is requested.
const maxListedErrors = 20

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the report of one add or update run.
	Write(report *model.IngestReport) (int, error)

	// WriteHistory outputs the crawl jobs of a knowledge base, newest first.
	WriteHistory(kb *model.KnowledgeBase, jobs []model.CrawlJob) (int, error)

	// WriteKnowledgeBases outputs the list of knowledge bases.
	WriteKnowledgeBases(kbs []model.KnowledgeBase) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because each destination may use its own format.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.IngestReport) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.Write(report) })
}

// WriteHistory outputs the history to all configured Writers.
func (m *MultiWriter) WriteHistory(kb *model.KnowledgeBase, jobs []model.CrawlJob) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteHistory(kb, jobs) })
}

// WriteKnowledgeBases outputs the list to all configured Writers.
func (m *MultiWriter) WriteKnowledgeBases(kbs []model.KnowledgeBase) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteKnowledgeBases(kbs) })
}

func (m *MultiWriter) each(write func(Writer) (int, error)) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := write(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusText returns the display form of an ingest outcome.
func statusText(report *model.IngestReport) string {
	if report.Error != "" {
		return "Error - " + report.Error
	}
	if report.Crawl == nil {
		return "Not crawled"
	}
	return titleCase(string(report.Crawl.Status))
}

// titleCase upper-cases the first letter of each word.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// formatTime formats t for display, or "-" for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05 MST")
}

// formatDuration rounds d for display.
func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(100 * time.Millisecond).String()
	}
}

// discoveryText describes how the crawl was seeded.
func discoveryText(report *model.IngestReport) string {
	switch {
	case report.Discovery == nil:
		return "skipped"
	case report.Discovery.HasEntries():
		return "llms.txt (" + report.Discovery.IndexURL + ")"
	case report.Discovery.Found:
		return "llms.txt without entries, crawled"
	default:
		return "no index, crawled"
	}
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
