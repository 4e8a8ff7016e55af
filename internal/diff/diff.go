package diff

import (
	"sort"

	"github.com/nao1215/docingest/internal/model"
)

// Option configures Compute.
type Option func(*options)

type options struct {
	force bool
}

// WithForce classifies every URL present in both runs as changed,
// regardless of its hash.
func WithForce() Option {
	return func(o *options) {
		o.force = true
	}
}

// Result is the classification of one update run.
type Result struct {
	model.DiffResult
}

// Compute partitions the union of the keys of next and prev:
//   - Added: only in next
//   - Removed: only in prev
//   - Changed: in both with different hashes
//   - Unchanged: in both with equal hashes
//
// Every list is sorted and non-nil.
func Compute(kbID string, next, prev map[string]string, opts ...Option) *Result {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Result{DiffResult: model.DiffResult{
		KBID:      kbID,
		Added:     make([]string, 0),
		Changed:   make([]string, 0),
		Unchanged: make([]string, 0),
		Removed:   make([]string, 0),
	}}

	for u, hash := range next {
		old, ok := prev[u]
		switch {
		case !ok:
			r.Added = append(r.Added, u)
		case o.force || old != hash:
			r.Changed = append(r.Changed, u)
		default:
			r.Unchanged = append(r.Unchanged, u)
		}
	}
	for u := range prev {
		if _, ok := next[u]; !ok {
			r.Removed = append(r.Removed, u)
		}
	}

	sort.Strings(r.Added)
	sort.Strings(r.Changed)
	sort.Strings(r.Unchanged)
	sort.Strings(r.Removed)
	return r
}

// Removable returns the removed URLs that may be deleted. A URL in failed
// could not be re-fetched in this run but may still be on the site, so it
// is kept.
func (r *Result) Removable(failed map[string]bool) []string {
	out := make([]string, 0, len(r.Removed))
	for _, u := range r.Removed {
		if !failed[u] {
			out = append(out, u)
		}
	}
	return out
}
