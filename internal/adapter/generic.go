package adapter

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/docingest/internal/model"
)

// minDenseText is the text length a container needs before the density
// heuristic prefers it over <body>.
const minDenseText = 200

// genericStrip also drops site headers, which only appear when the content
// root falls back to <body>.
const genericStrip = chromeSelector + ", body > header, .site-header"

// semanticSelectors are tried before the density heuristic.
var semanticSelectors = []string{"main", "article", `[role="main"]`, ".content", "#content"}

// Generic is the fallback adapter. It matches every page.
type Generic struct{}

var _ Adapter = (*Generic)(nil)

// Name implements Adapter.
func (*Generic) Name() string { return NameGeneric }

// Detect always matches.
func (*Generic) Detect(*Document) bool { return true }

// ExtractTOC lists the headings of the content root.
func (*Generic) ExtractTOC(doc *Document) []model.TocEntry {
	root := contentRoot(doc)
	if root.Length() == 0 {
		return []model.TocEntry{}
	}
	clone := root.Clone()
	clone.Find(genericStrip).Remove()
	return headingTOC(clone)
}

// ExtractContent returns the semantic content container when present,
// otherwise the most text-dense block, otherwise <body>.
func (*Generic) ExtractContent(doc *Document) string {
	root := contentRoot(doc)
	if root.Length() == 0 {
		return ""
	}
	return cleanHTML(root, genericStrip)
}

// ExtractMetadata implements Adapter.
func (*Generic) ExtractMetadata(doc *Document) model.PageMetadata {
	return extractMetadata(doc)
}

// contentRoot picks the element that holds the page content.
func contentRoot(doc *Document) *goquery.Selection {
	for _, selector := range semanticSelectors {
		if sel := doc.DOM.Find(selector).First(); sel.Length() > 0 {
			return sel
		}
	}
	if dense := densestBlock(doc); dense != nil {
		return dense
	}
	return doc.DOM.Find("body").First()
}

// densestBlock returns the div or section with the most non-link text,
// ignoring navigation chrome. Ties keep the outermost element.
func densestBlock(doc *Document) *goquery.Selection {
	var best *goquery.Selection
	bestScore := 0
	doc.DOM.Find("div, section").Each(func(_ int, s *goquery.Selection) {
		if s.Closest(chromeSelector).Length() > 0 {
			return
		}
		score := textScore(s)
		if score > bestScore {
			best, bestScore = s, score
		}
	})
	if bestScore < minDenseText {
		return nil
	}
	return best
}

// textScore is the length of direct paragraph-like text minus link text.
func textScore(s *goquery.Selection) int {
	text := 0
	s.ChildrenFiltered("p, pre, ul, ol, table, blockquote, h1, h2, h3, h4, h5, h6").Each(func(_ int, c *goquery.Selection) {
		text += len(strings.TrimSpace(c.Text()))
		text -= len(strings.TrimSpace(c.Find("a").Text()))
	})
	return text
}
