package diff

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"
)

func TestCompute(t *testing.T) {
	t.Parallel()

	t.Run("update with one changed page", func(t *testing.T) {
		t.Parallel()

		prev := map[string]string{
			"https://docs.example.com/a": "h1",
			"https://docs.example.com/b": "h2",
			"https://docs.example.com/c": "h3",
			"https://docs.example.com/d": "h4",
			"https://docs.example.com/e": "h5",
		}
		next := map[string]string{
			"https://docs.example.com/a": "h1",
			"https://docs.example.com/b": "h2",
			"https://docs.example.com/c": "h3",
			"https://docs.example.com/d": "h4-new",
			"https://docs.example.com/f": "h6",
		}

		got := Compute("kb", next, prev)

		if got.KBID != "kb" {
			t.Errorf("expected kb id kb, got %q", got.KBID)
		}
		if !slices.Equal(got.Added, []string{"https://docs.example.com/f"}) {
			t.Errorf("unexpected added: %v", got.Added)
		}
		if !slices.Equal(got.Changed, []string{"https://docs.example.com/d"}) {
			t.Errorf("unexpected changed: %v", got.Changed)
		}
		if len(got.Unchanged) != 3 {
			t.Errorf("expected 3 unchanged, got %v", got.Unchanged)
		}
		if !slices.Equal(got.Removed, []string{"https://docs.example.com/e"}) {
			t.Errorf("unexpected removed: %v", got.Removed)
		}
	})

	t.Run("force marks surviving pages changed", func(t *testing.T) {
		t.Parallel()

		prev := map[string]string{"https://docs.example.com/a": "h1", "https://docs.example.com/b": "h2"}
		next := map[string]string{"https://docs.example.com/a": "h1", "https://docs.example.com/c": "h3"}

		got := Compute("kb", next, prev, WithForce())
		if len(got.Unchanged) != 0 {
			t.Errorf("expected no unchanged pages, got %v", got.Unchanged)
		}
		if !slices.Equal(got.Changed, []string{"https://docs.example.com/a"}) {
			t.Errorf("unexpected changed: %v", got.Changed)
		}
		if len(got.Added) != 1 || len(got.Removed) != 1 {
			t.Errorf("force must not affect added/removed: %+v", got.DiffResult)
		}
	})

	t.Run("empty inputs", func(t *testing.T) {
		t.Parallel()

		got := Compute("kb", nil, nil)
		if got.Total() != 0 || got.HasChanges() {
			t.Errorf("expected empty result, got %+v", got.DiffResult)
		}
		if got.Added == nil || got.Changed == nil || got.Unchanged == nil || got.Removed == nil {
			t.Error("expected non-nil lists")
		}
	})
}

func randomHashes(r *rand.Rand) map[string]string {
	m := make(map[string]string)
	for range r.IntN(30) {
		m[fmt.Sprintf("https://docs.example.com/p%d", r.IntN(40))] = fmt.Sprintf("h%d", r.IntN(3))
	}
	return m
}

func TestComputePartition(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewPCG(1, 2))
	for i := range 200 {
		next, prev := randomHashes(r), randomHashes(r)
		got := Compute("kb", next, prev)

		union := make(map[string]bool)
		for u := range next {
			union[u] = true
		}
		for u := range prev {
			union[u] = true
		}

		seen := make(map[string]int)
		for _, list := range [][]string{got.Added, got.Changed, got.Unchanged, got.Removed} {
			for _, u := range list {
				seen[u]++
			}
		}
		if len(seen) != len(union) || got.Total() != len(union) {
			t.Fatalf("iteration %d: expected %d classified URLs, got %d", i, len(union), got.Total())
		}
		for u, n := range seen {
			if n != 1 {
				t.Fatalf("iteration %d: %s classified %d times", i, u, n)
			}
			if !union[u] {
				t.Fatalf("iteration %d: %s not in either input", i, u)
			}
		}
	}
}

func TestComputeIdempotent(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewPCG(3, 4))
	for i := range 100 {
		m := randomHashes(r)
		got := Compute("kb", m, m)
		if got.HasChanges() {
			t.Fatalf("iteration %d: diff of a map with itself has changes: %+v", i, got.DiffResult)
		}
		if len(got.Unchanged) != len(m) {
			t.Fatalf("iteration %d: expected %d unchanged, got %d", i, len(m), len(got.Unchanged))
		}
	}
}

func TestRemovable(t *testing.T) {
	t.Parallel()

	prev := map[string]string{
		"https://docs.example.com/gone":   "h1",
		"https://docs.example.com/failed": "h2",
	}
	got := Compute("kb", map[string]string{}, prev)

	removable := got.Removable(map[string]bool{"https://docs.example.com/failed": true})
	if !slices.Equal(removable, []string{"https://docs.example.com/gone"}) {
		t.Errorf("expected only the gone page, got %v", removable)
	}
	if len(got.Removed) != 2 {
		t.Errorf("failed pages are still reported as removed, got %v", got.Removed)
	}
}
