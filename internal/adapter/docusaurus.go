package adapter

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/docingest/internal/model"
)

// Docusaurus handles sites built with Docusaurus.
type Docusaurus struct{}

var _ Adapter = (*Docusaurus)(nil)

// Name implements Adapter.
func (*Docusaurus) Name() string { return NameDocusaurus }

// Detect matches the generator meta tag or the version attribute Docusaurus
// puts on <html>.
func (*Docusaurus) Detect(doc *Document) bool {
	found := false
	doc.DOM.Find(`meta[name="generator"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(s.AttrOr("content", "")), "docusaurus") {
			found = true
		}
		return !found
	})
	return found || doc.DOM.Find("[data-docusaurus-version]").Length() > 0
}

// ExtractTOC reads the sidebar menu, keeping category nesting.
func (*Docusaurus) ExtractTOC(doc *Document) []model.TocEntry {
	menu := doc.DOM.Find("ul.menu__list").First()
	if menu.Length() == 0 {
		return linkTOC(doc, ".menu__link")
	}
	return nestedTOC(doc, menu)
}

// ExtractContent returns the doc article without footer, pager and inline TOC.
func (*Docusaurus) ExtractContent(doc *Document) string {
	return firstContent(doc,
		[]string{"article .markdown", "article", ".markdown", "main"},
		".theme-doc-footer, .pagination-nav, .theme-doc-toc-mobile, .theme-edit-this-page, .hash-link, "+chromeSelector,
	)
}

// ExtractMetadata implements Adapter.
func (*Docusaurus) ExtractMetadata(doc *Document) model.PageMetadata {
	return extractMetadata(doc, "article header h1")
}
