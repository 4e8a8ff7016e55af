package model

// IndexEntry is one link of an llms.txt index.
type IndexEntry struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Notes string `json:"notes,omitempty"`
}

// IndexSection is a level-2 heading of an llms.txt index with its entries.
type IndexSection struct {
	Name    string       `json:"name"`
	Entries []IndexEntry `json:"entries"`
}

// DiscoveryResult reports whether an origin publishes a usable index.
//
// It is a tagged variant: when Found is false every other field is empty.
type DiscoveryResult struct {
	// Found is true when an index was accepted.
	Found bool `json:"found"`

	// IndexURL is the URL of the accepted index.
	IndexURL string `json:"index_url,omitempty"`

	// IndexText is the raw body of the accepted index.
	IndexText string `json:"index_text,omitempty"`

	// ExtendedIndexText is the raw body of llms-full.txt when it was also published.
	ExtendedIndexText string `json:"extended_index_text,omitempty"`

	// Title is the level-1 heading of the index.
	Title string `json:"title,omitempty"`

	// Summary is the first blockquote of the index.
	Summary string `json:"summary,omitempty"`

	// Sections lists the level-2 sections in document order.
	Sections []IndexSection `json:"sections,omitempty"`

	// Entries lists every entry in document order, including entries that
	// appear before the first section.
	Entries []IndexEntry `json:"entries,omitempty"`
}

// NotFound returns the empty discovery result.
func NotFound() DiscoveryResult {
	return DiscoveryResult{}
}

// HasEntries reports whether the result can seed a crawl.
func (r DiscoveryResult) HasEntries() bool {
	return r.Found && len(r.Entries) > 0
}
