package adapter

import "github.com/nao1215/docingest/internal/model"

// VitePress handles sites built with VitePress.
type VitePress struct{}

var _ Adapter = (*VitePress)(nil)

// Name implements Adapter.
func (*VitePress) Name() string { return NameVitePress }

// Detect implements Adapter.
func (*VitePress) Detect(doc *Document) bool {
	return doc.DOM.Find("#VPContent, .VPDoc").Length() > 0
}

// ExtractTOC implements Adapter.
func (*VitePress) ExtractTOC(doc *Document) []model.TocEntry {
	return linkTOC(doc, ".VPSidebar a")
}

// ExtractContent implements Adapter.
func (*VitePress) ExtractContent(doc *Document) string {
	return firstContent(doc,
		[]string{".vp-doc", ".VPDoc", "#VPContent main", "main"},
		".header-anchor, .edit-link, .prev-next, .VPDocFooter, .VPDocAside, "+chromeSelector,
	)
}

// ExtractMetadata implements Adapter.
func (*VitePress) ExtractMetadata(doc *Document) model.PageMetadata {
	return extractMetadata(doc, ".vp-doc h1")
}
