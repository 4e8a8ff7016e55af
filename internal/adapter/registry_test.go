package adapter

import (
	"errors"
	"net/url"
	"slices"
	"testing"

	"github.com/nao1215/docingest/internal/model"
)

type stubAdapter struct {
	name    string
	match   bool
	content string
}

func (s *stubAdapter) Name() string                          { return s.name }
func (s *stubAdapter) Detect(*Document) bool                 { return s.match }
func (s *stubAdapter) ExtractTOC(*Document) []model.TocEntry { return nil }
func (s *stubAdapter) ExtractContent(*Document) string       { return s.content }
func (s *stubAdapter) ExtractMetadata(*Document) model.PageMetadata {
	return model.PageMetadata{Title: s.name}
}

func TestRegistryOrderIsPriorityNotRegistration(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for _, reg := range []struct {
		name     string
		priority int
	}{
		{"late", 30},
		{"early", 10},
		{"tie-b", 20},
		{"tie-a", 20},
	} {
		if err := r.Register(&stubAdapter{name: reg.name, match: true, content: "<p>x</p>"}, reg.priority); err != nil {
			t.Fatalf("Register(%s) error: %v", reg.name, err)
		}
	}

	want := []string{"early", "tie-a", "tie-b", "late", NameGeneric}
	if got := r.Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if got := r.Detect(&Document{}).Name(); got != "early" {
		t.Errorf("Detect() = %q, want early", got)
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()
	err := r.Register(&stubAdapter{name: NameDocusaurus}, 1)
	if !errors.Is(err, ErrDuplicateAdapter) {
		t.Errorf("Register() error = %v, want ErrDuplicateAdapter", err)
	}
}

func TestDefaultRegistryOrder(t *testing.T) {
	t.Parallel()

	want := []string{NameDocusaurus, NameVitePress, NameGitBook, NameReadTheDocs, NameGeneric}
	if got := DefaultRegistry().Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

// For every combination of matching adapters, the earliest matching one
// wins and the fallback is chosen only when nothing matches.
func TestRegistryPriorityProperty(t *testing.T) {
	t.Parallel()

	names := []string{"a", "b", "c"}
	doc := &Document{URL: &url.URL{Scheme: "https", Host: "x.example.com"}}

	for mask := 0; mask < 1<<len(names); mask++ {
		r := NewRegistry()
		// Register in reverse so registration order disagrees with priority.
		for i := len(names) - 1; i >= 0; i-- {
			stub := &stubAdapter{name: names[i], match: mask&(1<<i) != 0, content: "<p>" + names[i] + "</p>"}
			if err := r.Register(stub, (i+1)*10); err != nil {
				t.Fatalf("Register() error: %v", err)
			}
		}

		want := NameGeneric
		for i, name := range names {
			if mask&(1<<i) != 0 {
				want = name
				break
			}
		}

		if got := r.Detect(doc).Name(); got != want {
			t.Errorf("mask %03b: Detect() = %q, want %q", mask, got, want)
		}
		if want == NameGeneric {
			continue
		}
		outcome, err := r.Select(doc)
		if err != nil {
			t.Fatalf("mask %03b: Select() error: %v", mask, err)
		}
		if outcome.AdapterName != want || outcome.Metadata.Title != want {
			t.Errorf("mask %03b: Select() adapter = %q, want %q", mask, outcome.AdapterName, want)
		}
		if outcome.TOC == nil {
			t.Errorf("mask %03b: TOC is nil, want empty slice", mask)
		}
	}
}

func TestRegistryCustomFallback(t *testing.T) {
	t.Parallel()

	fallback := &stubAdapter{name: "last-resort", match: true, content: "<p>fallback</p>"}
	r := NewRegistry(WithFallback(fallback))
	if err := r.Register(&stubAdapter{name: "empty", match: true}, 1); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	outcome, err := r.Select(&Document{})
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if outcome.AdapterName != "last-resort" {
		t.Errorf("AdapterName = %q, want last-resort", outcome.AdapterName)
	}
}
