package crawler

import (
	"net/url"
	"strings"

	"github.com/nao1215/docingest/internal/model"
	"github.com/nao1215/docingest/internal/policy"
	"golang.org/x/net/html"
)

// Parser extracts outbound links from an HTML page.
//
// Design decision: We use golang.org/x/net/html for parsing rather than
// regex because:
//  1. It correctly handles the malformed HTML static-site generators emit
//  2. Adapters already hold a parsed tree, which ParseNode walks without
//     parsing the body twice
//  3. <base href> must be honored, which needs the element structure
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving relative URLs.
	baseURL *url.URL
}

// Link is one classified outbound link.
type Link struct {
	// URL is the resolved target. Internal and external targets are
	// normalized; anchor targets keep their fragment.
	URL *url.URL

	// Kind is internal (same host), external (other host) or anchor
	// (fragment of the same page).
	Kind model.LinkKind
}

// ParseResult contains the information extracted from a page.
type ParseResult struct {
	// Links lists every distinct link in document order.
	Links []Link
}

// NewParser creates a parser for a page fetched from baseURL.
func NewParser(baseURL *url.URL) *Parser {
	return &Parser{baseURL: baseURL}
}

// ParseNode walks an already parsed tree.
func (p *Parser) ParseNode(root *html.Node) *ParseResult {
	result := &ParseResult{Links: make([]Link, 0)}
	if root == nil {
		return result
	}

	base := p.baseURL
	if href := findBaseHref(root); href != "" {
		if u, err := p.baseURL.Parse(href); err == nil {
			base = u
		}
	}

	seen := make(map[string]bool)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.Data == "a" || n.Data == "area" {
				if link, ok := p.classify(base, getAttr(n, "href")); ok {
					key := string(link.Kind) + " " + link.URL.String()
					if !seen[key] {
						seen[key] = true
						result.Links = append(result.Links, link)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return result
}

// classify resolves href and decides its kind.
func (p *Parser) classify(base *url.URL, href string) (Link, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return Link{}, false
	}
	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return Link{}, false
		}
	}

	ref, err := url.Parse(href)
	if err != nil {
		return Link{}, false
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return Link{}, false
	}

	if samePage(resolved, p.baseURL) {
		if resolved.Fragment == "" {
			// Self link.
			return Link{}, false
		}
		return Link{URL: resolved, Kind: model.LinkAnchor}, true
	}

	normalized, err := url.Parse(policy.NormalizeURL(resolved))
	if err != nil {
		return Link{}, false
	}
	if strings.EqualFold(normalized.Host, p.baseURL.Host) {
		return Link{URL: normalized, Kind: model.LinkInternal}, true
	}
	return Link{URL: normalized, Kind: model.LinkExternal}, true
}

// samePage reports whether a and b differ at most in their fragment.
func samePage(a, b *url.URL) bool {
	x, y := *a, *b
	x.Fragment, y.Fragment = "", ""
	x.RawFragment, y.RawFragment = "", ""
	return policy.NormalizeURL(&x) == policy.NormalizeURL(&y)
}

// findBaseHref returns the href of the first <base> element.
func findBaseHref(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "base" {
		return getAttr(n, "href")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if href := findBaseHref(c); href != "" {
			return href
		}
	}
	return ""
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
