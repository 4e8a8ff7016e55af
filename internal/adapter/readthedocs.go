package adapter

import "github.com/nao1215/docingest/internal/model"

// ReadTheDocs handles Sphinx sites using the Read the Docs theme.
type ReadTheDocs struct{}

var _ Adapter = (*ReadTheDocs)(nil)

// Name implements Adapter.
func (*ReadTheDocs) Name() string { return NameReadTheDocs }

// Detect matches the theme markup or Sphinx's _static asset directory.
func (*ReadTheDocs) Detect(doc *Document) bool {
	return doc.DOM.Find(`meta[name="readthedocs"], .wy-nav-side, .wy-body-for-nav, link[href*="_static"]`).Length() > 0
}

// ExtractTOC uses the first navigation structure that yields entries.
func (*ReadTheDocs) ExtractTOC(doc *Document) []model.TocEntry {
	if menu := doc.DOM.Find(".wy-menu-vertical > ul").First(); menu.Length() > 0 {
		if entries := nestedTOC(doc, menu); len(entries) > 0 {
			return entries
		}
	}
	for _, selector := range []string{".wy-menu a", ".toctree-wrapper a", "nav.wy-nav-side a"} {
		if entries := linkTOC(doc, selector); len(entries) > 0 {
			return entries
		}
	}
	return []model.TocEntry{}
}

// ExtractContent implements Adapter.
func (*ReadTheDocs) ExtractContent(doc *Document) string {
	return firstContent(doc,
		[]string{`[role="main"]`, ".document", ".rst-content .section", "main"},
		"a.headerlink, .rst-footer-buttons, "+chromeSelector,
	)
}

// ExtractMetadata implements Adapter.
func (*ReadTheDocs) ExtractMetadata(doc *Document) model.PageMetadata {
	return extractMetadata(doc, `[role="main"] h1`)
}
