package adapter

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/nao1215/docingest/internal/model"
)

// Default priorities of the built-in adapters. Lower runs first.
const (
	PriorityDocusaurus  = 10
	PriorityVitePress   = 20
	PriorityGitBook     = 30
	PriorityReadTheDocs = 40
)

type registration struct {
	adapter  Adapter
	priority int
}

// Registry routes documents to adapters in explicit priority order.
//
// Design decision: precedence comes from the priority value, never from
// registration order, so adding an adapter cannot silently change which
// adapter wins for existing sites. Equal priorities are ordered by name.
type Registry struct {
	adapters []registration
	fallback Adapter
	logger   *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithFallback replaces the generic fallback adapter.
func WithFallback(a Adapter) Option {
	return func(r *Registry) {
		r.fallback = a
	}
}

// NewRegistry creates an empty registry with the generic fallback.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		fallback: &Generic{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefaultRegistry returns a registry with every built-in adapter.
func DefaultRegistry(opts ...Option) *Registry {
	r := NewRegistry(opts...)
	for _, reg := range []registration{
		{&Docusaurus{}, PriorityDocusaurus},
		{&VitePress{}, PriorityVitePress},
		{&GitBook{}, PriorityGitBook},
		{&ReadTheDocs{}, PriorityReadTheDocs},
	} {
		// Built-in names are distinct.
		_ = r.Register(reg.adapter, reg.priority)
	}
	return r
}

// Register adds an adapter at the given priority.
func (r *Registry) Register(a Adapter, priority int) error {
	for _, reg := range r.adapters {
		if reg.adapter.Name() == a.Name() {
			return fmt.Errorf("%w: %s", ErrDuplicateAdapter, a.Name())
		}
	}
	r.adapters = append(r.adapters, registration{adapter: a, priority: priority})
	sort.SliceStable(r.adapters, func(i, j int) bool {
		if r.adapters[i].priority != r.adapters[j].priority {
			return r.adapters[i].priority < r.adapters[j].priority
		}
		return r.adapters[i].adapter.Name() < r.adapters[j].adapter.Name()
	})
	return nil
}

// Names returns adapter names in the order they are consulted, fallback last.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters)+1)
	for _, reg := range r.adapters {
		names = append(names, reg.adapter.Name())
	}
	return append(names, r.fallback.Name())
}

// Detect returns the first adapter that recognizes doc, or the fallback.
func (r *Registry) Detect(doc *Document) Adapter {
	for _, reg := range r.adapters {
		if reg.adapter.Detect(doc) {
			return reg.adapter
		}
	}
	return r.fallback
}

// Select routes doc through the detected adapter. When the detected adapter
// yields no content, the fallback adapter is tried before giving up with
// ErrEmptyContent.
func (r *Registry) Select(doc *Document) (model.AdapterOutcome, error) {
	a := r.Detect(doc)
	outcome, ok := extract(a, doc)
	if ok {
		return outcome, nil
	}

	if a != r.fallback {
		r.logger.Debug("adapter produced no content, using fallback",
			"adapter", a.Name(),
			"url", docURL(doc),
		)
		if outcome, ok := extract(r.fallback, doc); ok {
			return outcome, nil
		}
	}
	return model.AdapterOutcome{}, fmt.Errorf("%w: %s", ErrEmptyContent, docURL(doc))
}

func extract(a Adapter, doc *Document) (model.AdapterOutcome, bool) {
	content := a.ExtractContent(doc)
	if strings.TrimSpace(content) == "" {
		return model.AdapterOutcome{}, false
	}
	toc := a.ExtractTOC(doc)
	if toc == nil {
		toc = []model.TocEntry{}
	}
	return model.AdapterOutcome{
		AdapterName: a.Name(),
		TOC:         toc,
		ContentHTML: content,
		Metadata:    a.ExtractMetadata(doc),
	}, true
}

func docURL(doc *Document) string {
	if doc.URL == nil {
		return ""
	}
	return doc.URL.String()
}
