package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/docingest/internal/model"
)

func kbs(n int) []model.KnowledgeBase {
	out := make([]model.KnowledgeBase, n)
	for i := range out {
		out[i] = model.KnowledgeBase{ID: string(rune('a' + i)), SourceURL: "https://docs.example.com/"}
	}
	return out
}

func TestBatchProcessor(t *testing.T) {
	t.Parallel()

	t.Run("returns reports in input order", func(t *testing.T) {
		t.Parallel()

		factory := func(kb model.KnowledgeBase) (*Pipeline, error) {
			p := New(WithLogger(discardLogger))
			p.AddStep(&mockStep{name: "touch", doFunc: func(_ context.Context, r *model.IngestReport) error {
				if r.KnowledgeBase.ID != kb.ID {
					t.Errorf("report for %s ran in the pipeline of %s", r.KnowledgeBase.ID, kb.ID)
				}
				return nil
			}})
			return p, nil
		}

		bp := NewBatchProcessor(factory, WithConcurrency(3), WithUpdate(true), WithBatchLogger(discardLogger))
		reports, err := bp.ProcessBatch(context.Background(), kbs(5))
		if err != nil {
			t.Fatalf("ProcessBatch() error = %v", err)
		}
		if len(reports) != 5 {
			t.Fatalf("got %d reports, want 5", len(reports))
		}
		for i, r := range reports {
			if r.KnowledgeBase.ID != kbs(5)[i].ID {
				t.Errorf("report %d is for %s", i, r.KnowledgeBase.ID)
			}
			if !r.Update {
				t.Errorf("report %d should be an update", i)
			}
			if len(r.Steps) != 1 {
				t.Errorf("report %d steps = %v", i, r.Steps)
			}
		}
		if Failed(reports) {
			t.Error("no report should have failed")
		}
	})

	t.Run("limits concurrency", func(t *testing.T) {
		t.Parallel()

		var running, peak atomic.Int32
		factory := func(model.KnowledgeBase) (*Pipeline, error) {
			p := New(WithLogger(discardLogger))
			p.AddStep(&mockStep{name: "slow", doFunc: func(context.Context, *model.IngestReport) error {
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				running.Add(-1)
				return nil
			}})
			return p, nil
		}

		bp := NewBatchProcessor(factory, WithConcurrency(2), WithBatchLogger(discardLogger))
		if _, err := bp.ProcessBatch(context.Background(), kbs(6)); err != nil {
			t.Fatal(err)
		}
		if peak.Load() > 2 {
			t.Errorf("peak concurrency = %d, want <= 2", peak.Load())
		}
	})

	t.Run("one failure does not stop the others", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		factory := func(kb model.KnowledgeBase) (*Pipeline, error) {
			if kb.ID == "b" {
				return nil, boom
			}
			p := New(WithLogger(discardLogger))
			p.AddStep(&mockStep{name: "ok"})
			return p, nil
		}

		bp := NewBatchProcessor(factory, WithBatchLogger(discardLogger))
		reports, err := bp.ProcessBatch(context.Background(), kbs(3))
		if err != nil {
			t.Fatal(err)
		}
		if reports[1].Error != "boom" {
			t.Errorf("report b error = %q", reports[1].Error)
		}
		if reports[0].Error != "" || reports[2].Error != "" {
			t.Error("other reports should succeed")
		}
		if !Failed(reports) {
			t.Error("Failed() should report the failure")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		factory := func(model.KnowledgeBase) (*Pipeline, error) {
			return New(WithLogger(discardLogger)), nil
		}
		bp := NewBatchProcessor(factory, WithBatchLogger(discardLogger))
		reports, err := bp.ProcessBatch(ctx, kbs(2))
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		for _, r := range reports {
			if r.Error == "" {
				t.Error("every report should carry the cancellation")
			}
		}
	})
}
