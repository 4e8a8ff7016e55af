// Package adapter extracts clean content from documentation pages.
//
// Documentation generators wrap the same kind of content in very different
// chrome: sidebars, edit links, pagers, version pickers. An Adapter knows one
// generator's markup. The Registry asks adapters in a fixed priority order
// whether they recognize a page and routes the page to the first match. The
// generic adapter is the fallback and matches every page, so Select always
// produces an outcome for HTML input.
//
// Built-in adapters, highest priority first:
//
//	docusaurus  meta generator "Docusaurus" or data-docusaurus-version
//	vitepress   #VPContent or .VPDoc
//	gitbook     meta name="gitbook", GitBook generator or .gitbook-root
//	readthedocs Read the Docs / Sphinx theme markup
//	generic     everything else
//
// Markdown and plain-text bodies bypass the registry; see RawOutcome.
package adapter
