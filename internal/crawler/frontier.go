package crawler

import (
	"container/heap"
	"context"
	"net/url"
	"sync"
)

// frontierEntry is a URL waiting to be fetched.
type frontierEntry struct {
	url   *url.URL
	key   string // normalized URL, the dedup key
	depth int
	from  string // URL of the page the link was found on; empty for seeds
	seq   int    // push order, breaks ties between entries of one depth
}

// entryHeap orders entries by depth, then by push order.
type entryHeap []frontierEntry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].depth != h[j].depth {
		return h[i].depth < h[j].depth
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(frontierEntry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = frontierEntry{}
	*h = old[:n-1]
	return e
}

// frontier is the queue of pending entries and the visited set of one job.
//
// Entries are dispatched one depth level at a time: an entry is only handed
// out when no shallower entry is still in flight, because an in-flight page
// may still push links that belong before it. The queue, the visited set and
// the in-flight accounting share one mutex. A URL is marked visited when it
// is pushed, so two pages linking to the same target can never enqueue it
// twice, and the page cap is enforced against fetched+inflight at pop time,
// so it can never be overshot by concurrent workers.
type frontier struct {
	mu   sync.Mutex
	cond *sync.Cond

	queue    entryHeap
	seq      int
	seen     map[string]bool
	inflight map[int]int // depth -> entries in flight
	running  int
	fetched  int
	maxPages int
}

func newFrontier(maxPages int) *frontier {
	f := &frontier{
		seen:     make(map[string]bool),
		inflight: make(map[int]int),
		maxPages: maxPages,
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// push enqueues e unless its URL was already seen.
func (f *frontier) push(e frontierEntry) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen[e.key] {
		return false
	}
	f.seen[e.key] = true
	e.seq = f.seq
	f.seq++
	heap.Push(&f.queue, e)
	f.cond.Broadcast()
	return true
}

// claim marks key as seen without queueing it. It reports false when key
// was already seen.
func (f *frontier) claim(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen[key] {
		return false
	}
	f.seen[key] = true
	return true
}

// shallowerInflight reports whether an entry above depth is in flight.
// Callers hold f.mu.
func (f *frontier) shallowerInflight(depth int) bool {
	for d, n := range f.inflight {
		if d < depth && n > 0 {
			return true
		}
	}
	return false
}

// pop blocks until an entry can be dispatched. It returns false when the
// frontier is drained, the page cap is reached or ctx is done.
//
// An entry can be dispatched while fetched+inflight is below the cap; when
// the cap is only reached through in-flight entries, pop waits for them,
// since a failed fetch frees its slot again.
func (f *frontier) pop(ctx context.Context) (frontierEntry, bool) {
	stop := context.AfterFunc(ctx, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.cond.Broadcast()
	})
	defer stop()

	f.mu.Lock()
	defer f.mu.Unlock()
	for {
		if ctx.Err() != nil || f.fetched >= f.maxPages {
			return frontierEntry{}, false
		}
		if len(f.queue) > 0 && f.fetched+f.running < f.maxPages && !f.shallowerInflight(f.queue[0].depth) {
			e := heap.Pop(&f.queue).(frontierEntry)
			f.inflight[e.depth]++
			f.running++
			return e, true
		}
		if len(f.queue) == 0 && f.running == 0 {
			return frontierEntry{}, false
		}
		f.cond.Wait()
	}
}

// done releases the slot of a popped entry. fetched reports whether the
// entry produced a stored page. It returns the fetched count afterwards.
func (f *frontier) done(e frontierEntry, fetched bool) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inflight[e.depth]--
	f.running--
	if fetched {
		f.fetched++
	}
	f.cond.Broadcast()
	return f.fetched
}

// stats returns the fetched count and queue length.
func (f *frontier) stats() (fetched, queued int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetched, len(f.queue)
}
