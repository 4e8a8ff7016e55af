package model

// TocEntry is one node of a page-local table of contents.
type TocEntry struct {
	// Title is the visible link or heading text.
	Title string `json:"title"`

	// Path is the stable path of the target page, or a heading slug for
	// heading-derived entries.
	Path string `json:"path"`

	// SourceURL is the absolute URL the entry points to.
	SourceURL string `json:"source_url,omitempty"`

	// Summary is an optional one-line description.
	Summary string `json:"summary,omitempty"`

	// Children holds nested entries.
	Children []TocEntry `json:"children,omitempty"`
}

// PageMetadata is the metadata an adapter extracts from a page.
type PageMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// AdapterOutcome is the result of routing one document through the adapter
// registry. It is handed to the downstream converter and is not persisted.
type AdapterOutcome struct {
	// AdapterName records which adapter produced the outcome.
	AdapterName string `json:"adapter_name"`

	// TOC is the page-local table of contents fragment.
	TOC []TocEntry `json:"toc"`

	// ContentHTML is the clean content with navigation chrome removed.
	ContentHTML string `json:"content_html"`

	// Metadata holds title and description.
	Metadata PageMetadata `json:"metadata"`
}
