package model

import "testing"

// TestCrawlResultHelpers tests the derived views of a crawl result.
func TestCrawlResultHelpers(t *testing.T) {
	t.Parallel()

	result := &CrawlResult{
		PerPage: []PageOutcome{
			{URL: "https://d.example/a", ContentHash: "h1", AdapterName: "docusaurus"},
			{URL: "https://d.example/b", ContentHash: "h2", AdapterName: "docusaurus"},
			{URL: "https://d.example/c", ContentHash: "h3", AdapterName: "generic"},
		},
		Errors: []CrawlError{
			{URL: "https://d.example/d", Reason: "timeout", Kind: ErrorKindNetwork},
			{URL: "https://d.example/e", Reason: "HTTP 503", Kind: ErrorKindNetwork, Status: 503},
			{URL: "https://d.example/f", Reason: "HTTP 404", Kind: ErrorKindNetwork, Status: 404},
			{URL: "https://d.example/g", Reason: "HTTP 410", Kind: ErrorKindNetwork, Status: 410},
		},
	}

	t.Run("Hashes maps URL to hash", func(t *testing.T) {
		t.Parallel()
		hashes := result.Hashes()
		if len(hashes) != 3 || hashes["https://d.example/b"] != "h2" {
			t.Errorf("unexpected hashes: %v", hashes)
		}
	})

	t.Run("FailedURLs lists errored URLs", func(t *testing.T) {
		t.Parallel()
		failed := result.FailedURLs()
		for _, u := range []string{"https://d.example/d", "https://d.example/e"} {
			if !failed[u] {
				t.Errorf("expected %s to be listed", u)
			}
		}
	})

	t.Run("FailedURLs leaves out pages that are gone", func(t *testing.T) {
		t.Parallel()
		failed := result.FailedURLs()
		for _, u := range []string{"https://d.example/f", "https://d.example/g"} {
			if failed[u] {
				t.Errorf("%s answered 404 or 410 and must not be listed", u)
			}
		}
		if len(failed) != 2 {
			t.Errorf("expected 2 failed URLs, got %v", failed)
		}
	})

	t.Run("PrimaryAdapter picks the most frequent adapter", func(t *testing.T) {
		t.Parallel()
		if got := result.PrimaryAdapter(); got != "docusaurus" {
			t.Errorf("expected docusaurus, got %q", got)
		}
	})

	t.Run("PrimaryAdapter of empty result is empty", func(t *testing.T) {
		t.Parallel()
		empty := &CrawlResult{}
		if got := empty.PrimaryAdapter(); got != "" {
			t.Errorf("expected empty, got %q", got)
		}
	})
}

// TestDiscoveryResultHasEntries tests the seeding predicate.
func TestDiscoveryResultHasEntries(t *testing.T) {
	t.Parallel()

	if NotFound().HasEntries() {
		t.Error("NotFound must not have entries")
	}
	found := DiscoveryResult{Found: true}
	if found.HasEntries() {
		t.Error("found index without entries must not seed a crawl")
	}
	found.Entries = []IndexEntry{{Name: "a", URL: "https://d.example/a"}}
	if !found.HasEntries() {
		t.Error("expected HasEntries to be true")
	}
}
