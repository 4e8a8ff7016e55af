package adapter

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/docingest/internal/model"
)

// chromeSelector matches navigation and page furniture removed by every adapter.
const chromeSelector = "script, style, noscript, template, nav, footer, aside, .sidebar, .nav, [role=\"navigation\"]"

// firstContent returns the inner HTML of the first element matching one of
// selectors, tried in order, with strip matches removed. The document is not
// modified.
func firstContent(doc *Document, selectors []string, strip string) string {
	for _, selector := range selectors {
		sel := doc.DOM.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		return cleanHTML(sel, strip)
	}
	return ""
}

// cleanHTML renders a cleaned copy of sel.
func cleanHTML(sel *goquery.Selection, strip string) string {
	clone := sel.Clone()
	if strip != "" {
		clone.Find(strip).Remove()
	}
	out, err := clone.Html()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// linkTOC builds a flat table of contents from the links matching selector.
// Fragment-only and non-HTTP links are skipped, duplicates keep their first
// occurrence.
func linkTOC(doc *Document, selector string) []model.TocEntry {
	entries := make([]model.TocEntry, 0)
	seen := make(map[string]bool)
	doc.DOM.Find(selector).Each(func(_ int, a *goquery.Selection) {
		entry, ok := linkEntry(doc, a)
		if !ok || seen[entry.SourceURL] {
			return
		}
		seen[entry.SourceURL] = true
		entries = append(entries, entry)
	})
	return entries
}

// nestedTOC walks a <ul>/<li> tree. Each item's own link becomes an entry
// and nested lists become its children. Items without a usable link lift
// their children one level up.
func nestedTOC(doc *Document, list *goquery.Selection) []model.TocEntry {
	entries := make([]model.TocEntry, 0)
	list.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		var children []model.TocEntry
		li.ChildrenFiltered("ul, ol").Each(func(_ int, sub *goquery.Selection) {
			children = append(children, nestedTOC(doc, sub)...)
		})

		a := li.ChildrenFiltered("a").First()
		if a.Length() == 0 {
			a = li.Children().Not("ul, ol").Find("a").First()
		}
		entry, ok := linkEntry(doc, a)
		if !ok {
			entries = append(entries, children...)
			return
		}
		entry.Children = children
		entries = append(entries, entry)
	})
	return entries
}

// linkEntry converts one anchor to a TOC entry.
func linkEntry(doc *Document, a *goquery.Selection) (model.TocEntry, bool) {
	if a.Length() == 0 {
		return model.TocEntry{}, false
	}
	title := collapseSpace(a.Text())
	href := strings.TrimSpace(a.AttrOr("href", ""))
	if title == "" || href == "" || strings.HasPrefix(href, "#") {
		return model.TocEntry{}, false
	}

	target, err := resolveHref(doc.URL, href)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
		return model.TocEntry{}, false
	}
	target.Fragment = ""

	return model.TocEntry{
		Title:     title,
		Path:      model.StablePath(target),
		SourceURL: target.String(),
	}, true
}

// headingTOC lists level-1 and level-2 headings inside root with slug paths.
// Level-2 headings nest under the preceding level-1 heading.
func headingTOC(root *goquery.Selection) []model.TocEntry {
	entries := make([]model.TocEntry, 0)
	lastH1 := -1
	root.Find("h1, h2").Each(func(_ int, h *goquery.Selection) {
		title := stripHeadingDecoration(collapseSpace(h.Text()))
		if title == "" {
			return
		}
		entry := model.TocEntry{Title: title, Path: headingPath(h, title)}
		if goquery.NodeName(h) == "h2" && lastH1 >= 0 {
			entries[lastH1].Children = append(entries[lastH1].Children, entry)
			return
		}
		entries = append(entries, entry)
		if goquery.NodeName(h) == "h1" {
			lastH1 = len(entries) - 1
		}
	})
	return entries
}

// headingPath prefers the heading's own anchor id over a derived slug.
func headingPath(h *goquery.Selection, title string) string {
	if id, ok := h.Attr("id"); ok && strings.TrimSpace(id) != "" {
		return strings.TrimSpace(id)
	}
	return model.Slugify(title)
}

// extractMetadata reads the title from the first <h1>, falling back to
// <title>, and the description from the description meta tags.
func extractMetadata(doc *Document, contentSelectors ...string) model.PageMetadata {
	var meta model.PageMetadata

	for _, selector := range append(contentSelectors, "h1") {
		if title := collapseSpace(doc.DOM.Find(selector).First().Text()); title != "" {
			meta.Title = stripHeadingDecoration(title)
			break
		}
	}
	if meta.Title == "" {
		meta.Title = siteTitle(collapseSpace(doc.DOM.Find("title").First().Text()))
	}

	for _, selector := range []string{`meta[name="description"]`, `meta[property="og:description"]`} {
		if desc := collapseSpace(doc.DOM.Find(selector).First().AttrOr("content", "")); desc != "" {
			meta.Description = desc
			break
		}
	}
	return meta
}

// siteTitle drops a trailing " | Site name" from a <title>.
func siteTitle(title string) string {
	for _, sep := range []string{" | ", " \u2014 ", " \u2013 ", " - "} {
		if i := strings.LastIndex(title, sep); i > 0 {
			return strings.TrimSpace(title[:i])
		}
	}
	return title
}

// stripHeadingDecoration removes permalink glyphs that generators append to headings.
func stripHeadingDecoration(title string) string {
	return strings.TrimSpace(strings.TrimRight(title, "#¶\u200b "))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func resolveHref(base *url.URL, href string) (*url.URL, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return nil, err
	}
	if base == nil {
		return ref, nil
	}
	return base.ResolveReference(ref), nil
}
