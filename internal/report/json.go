package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/docingest/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the ingest report in JSON format.
func (w *JSONWriter) Write(report *model.IngestReport) (int, error) {
	return w.writeJSON(report)
}

// historyJSON is the JSON form of a history listing.
type historyJSON struct {
	KnowledgeBase *model.KnowledgeBase `json:"knowledge_base"`
	Jobs          []model.CrawlJob     `json:"jobs"`
}

// WriteHistory outputs the knowledge base and its jobs in JSON format.
func (w *JSONWriter) WriteHistory(kb *model.KnowledgeBase, jobs []model.CrawlJob) (int, error) {
	if jobs == nil {
		jobs = []model.CrawlJob{}
	}
	return w.writeJSON(historyJSON{KnowledgeBase: kb, Jobs: jobs})
}

// WriteKnowledgeBases outputs kbs as a JSON array.
func (w *JSONWriter) WriteKnowledgeBases(kbs []model.KnowledgeBase) (int, error) {
	if kbs == nil {
		kbs = []model.KnowledgeBase{}
	}
	return w.writeJSON(kbs)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')
	return w.output.Write(data)
}

// JSONReport wraps an ingest report with the version that produced it.
type JSONReport struct {
	Version string              `json:"version"`
	Report  *model.IngestReport `json:"report"`
}

// FullJSONWriter outputs ingest reports wrapped with version metadata.
type FullJSONWriter struct {
	*JSONWriter

	version string
}

// NewFullJSONWriter creates a writer for complete reports with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the report wrapped with metadata.
func (w *FullJSONWriter) Write(report *model.IngestReport) (int, error) {
	return w.writeJSON(JSONReport{Version: w.version, Report: report})
}
