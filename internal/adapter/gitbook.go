package adapter

import (
	"strings"

	"github.com/nao1215/docingest/internal/model"
)

// GitBook handles GitBook sites, hosted and legacy static exports.
type GitBook struct{}

var _ Adapter = (*GitBook)(nil)

// Name implements Adapter.
func (*GitBook) Name() string { return NameGitBook }

// Detect implements Adapter.
func (*GitBook) Detect(doc *Document) bool {
	if doc.DOM.Find(`meta[name="gitbook"], .gitbook-root, .book-summary`).Length() > 0 {
		return true
	}
	generator := doc.DOM.Find(`meta[name="generator"]`).AttrOr("content", "")
	return strings.Contains(strings.ToLower(generator), "gitbook")
}

// ExtractTOC implements Adapter.
func (*GitBook) ExtractTOC(doc *Document) []model.TocEntry {
	if summary := doc.DOM.Find(".book-summary ul.summary").First(); summary.Length() > 0 {
		return nestedTOC(doc, summary)
	}
	return linkTOC(doc, "aside nav a, .sidebar nav a")
}

// ExtractContent implements Adapter.
func (*GitBook) ExtractContent(doc *Document) string {
	return firstContent(doc,
		[]string{".markdown-section", ".page-inner section", "main section", "main"},
		chromeSelector,
	)
}

// ExtractMetadata implements Adapter.
func (*GitBook) ExtractMetadata(doc *Document) model.PageMetadata {
	return extractMetadata(doc, ".markdown-section h1", "main h1")
}
