package crawler

import (
	"context"
	"sync"
	"testing"
	"time"
)

func entry(t *testing.T, raw string, depth int) frontierEntry {
	t.Helper()
	return frontierEntry{url: mustURL(t, raw), key: raw, depth: depth}
}

func TestFrontier(t *testing.T) {
	t.Parallel()

	t.Run("deduplicates at push", func(t *testing.T) {
		t.Parallel()

		f := newFrontier(10)
		if !f.push(entry(t, "https://docs.example.com/a", 0)) {
			t.Fatal("first push rejected")
		}
		if f.push(entry(t, "https://docs.example.com/a", 1)) {
			t.Error("duplicate push accepted")
		}
		if f.claim("https://docs.example.com/a") {
			t.Error("claim of a pushed URL succeeded")
		}
		if !f.claim("https://docs.example.com/b") {
			t.Error("claim of a new URL failed")
		}
		if f.push(entry(t, "https://docs.example.com/b", 1)) {
			t.Error("push of a claimed URL accepted")
		}
		if _, queued := f.stats(); queued != 1 {
			t.Errorf("expected 1 queued entry, got %d", queued)
		}
	})

	t.Run("orders by depth then push order", func(t *testing.T) {
		t.Parallel()

		f := newFrontier(10)
		f.push(entry(t, "https://docs.example.com/deep", 2))
		f.push(entry(t, "https://docs.example.com/1", 1))
		f.push(entry(t, "https://docs.example.com/2", 1))

		ctx := context.Background()
		for _, want := range []string{
			"https://docs.example.com/1",
			"https://docs.example.com/2",
			"https://docs.example.com/deep",
		} {
			e, ok := f.pop(ctx)
			if !ok || e.key != want {
				t.Fatalf("expected %q, got %q ok=%v", want, e.key, ok)
			}
			f.done(e, true)
		}
		if _, ok := f.pop(ctx); ok {
			t.Error("expected drained frontier")
		}
	})

	t.Run("holds deeper entries while a shallower one is in flight", func(t *testing.T) {
		t.Parallel()

		f := newFrontier(10)
		f.push(entry(t, "https://docs.example.com/a", 1))
		f.push(entry(t, "https://docs.example.com/b", 1))

		ctx := context.Background()
		a, _ := f.pop(ctx)
		b, _ := f.pop(ctx)

		// a finishes first and links one level deeper.
		f.push(entry(t, "https://docs.example.com/a2", 2))
		f.done(a, true)

		popped := make(chan frontierEntry, 1)
		go func() {
			e, _ := f.pop(ctx)
			popped <- e
		}()
		select {
		case e := <-popped:
			t.Fatalf("depth 2 entry %q dispatched while depth 1 was in flight", e.key)
		case <-time.After(50 * time.Millisecond):
		}

		// b links to a sibling of a2 and finishes; a2 goes first by push order.
		f.push(entry(t, "https://docs.example.com/b2", 2))
		f.done(b, true)

		select {
		case e := <-popped:
			if e.key != "https://docs.example.com/a2" {
				t.Errorf("expected a2, got %q", e.key)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("pop did not return after the level drained")
		}
	})

	t.Run("page cap counts in-flight entries", func(t *testing.T) {
		t.Parallel()

		f := newFrontier(1)
		f.push(entry(t, "https://docs.example.com/1", 0))
		f.push(entry(t, "https://docs.example.com/2", 0))

		ctx := context.Background()
		first, ok := f.pop(ctx)
		if !ok {
			t.Fatal("expected an entry")
		}

		var wg sync.WaitGroup
		popped := make(chan bool, 1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := f.pop(ctx)
			popped <- ok
		}()

		// The second pop waits while the first entry is in flight.
		select {
		case <-popped:
			t.Fatal("pop returned while the cap was held by an in-flight entry")
		case <-time.After(50 * time.Millisecond):
		}

		if got := f.done(first, true); got != 1 {
			t.Errorf("expected fetched=1, got %d", got)
		}
		wg.Wait()
		if ok := <-popped; ok {
			t.Error("expected pop to stop at the cap")
		}
	})

	t.Run("failed entry frees its slot", func(t *testing.T) {
		t.Parallel()

		f := newFrontier(1)
		f.push(entry(t, "https://docs.example.com/1", 0))
		f.push(entry(t, "https://docs.example.com/2", 0))

		ctx := context.Background()
		first, ok := f.pop(ctx)
		if !ok {
			t.Fatal("expected an entry")
		}
		f.done(first, false)
		e, ok := f.pop(ctx)
		if !ok || e.key != "https://docs.example.com/2" {
			t.Errorf("expected second entry after a failure, got %q ok=%v", e.key, ok)
		}
	})

	t.Run("cancellation wakes waiters", func(t *testing.T) {
		t.Parallel()

		f := newFrontier(10)
		f.push(entry(t, "https://docs.example.com/1", 0))

		ctx, cancel := context.WithCancel(context.Background())
		if _, ok := f.pop(ctx); !ok {
			t.Fatal("expected an entry")
		}

		done := make(chan bool)
		go func() {
			_, ok := f.pop(ctx)
			done <- ok
		}()
		cancel()

		select {
		case ok := <-done:
			if ok {
				t.Error("expected pop to fail after cancellation")
			}
		case <-time.After(2 * time.Second):
			t.Fatal("pop did not return after cancellation")
		}
	})
}
