package adapter

import (
	"bytes"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/docingest/internal/model"
	"golang.org/x/net/html"
)

// Adapter names.
const (
	NameDocusaurus  = "docusaurus"
	NameVitePress   = "vitepress"
	NameGitBook     = "gitbook"
	NameReadTheDocs = "readthedocs"
	NameGeneric     = "generic"
	NameRaw         = "raw"
)

// Document is a parsed HTML page and the URL it was fetched from.
type Document struct {
	DOM *goquery.Document
	URL *url.URL
}

// NewDocument parses body as HTML.
func NewDocument(body []byte, u *url.URL) (*Document, error) {
	dom, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	dom.Url = u
	return &Document{DOM: dom, URL: u}, nil
}

// Root returns the document node, for callers that walk the tree directly.
func (d *Document) Root() *html.Node {
	if len(d.DOM.Nodes) == 0 {
		return nil
	}
	return d.DOM.Nodes[0]
}

// Adapter extracts content for one documentation platform.
//
// Extraction methods must not modify the document: the registry may hand
// the same document to the fallback adapter after a failed extraction.
type Adapter interface {
	// Name identifies the adapter in page records.
	Name() string

	// Detect reports whether the page was produced by this platform.
	Detect(doc *Document) bool

	// ExtractTOC returns the page-local table of contents.
	ExtractTOC(doc *Document) []model.TocEntry

	// ExtractContent returns the main content as HTML, or "" when the
	// expected container is missing.
	ExtractContent(doc *Document) string

	// ExtractMetadata returns title and description.
	ExtractMetadata(doc *Document) model.PageMetadata
}
