package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/docingest/internal/config"
	"github.com/nao1215/docingest/internal/model"
)

// PipelineFactory builds the pipeline for one knowledge base.
type PipelineFactory func(kb model.KnowledgeBase) (*Pipeline, error)

// BatchProcessor ingests several knowledge bases concurrently.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on a single knowledge base
// 2. Each knowledge base gets its own pipeline, so per-host overrides never leak
type BatchProcessor struct {
	factory     PipelineFactory
	concurrency int
	update      bool
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent ingests.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithUpdate marks the reports of the batch as updates.
func WithUpdate(update bool) BatchOption {
	return func(b *BatchProcessor) {
		b.update = update
	}
}

// NewBatchProcessor creates a new BatchProcessor. factory is called once per
// knowledge base.
func NewBatchProcessor(factory PipelineFactory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: config.DefaultBatchSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(bp)
	}
	return bp
}

// ProcessBatch ingests kbs concurrently, at most the configured number at a
// time. The returned reports are in the order of kbs.
//
// A failed ingest does not stop the others; its error is in the report.
// The returned error is non-nil only when ctx was cancelled, in which case
// knowledge bases that never started have a report carrying the cause.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, kbs []model.KnowledgeBase) ([]*model.IngestReport, error) {
	bp.logger.Info("starting batch ingest",
		"total", len(kbs),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	// Each goroutine writes only its own index.
	reports := make([]*model.IngestReport, len(kbs))
	for i, kb := range kbs {
		reports[i] = model.NewIngestReport(kb, bp.update)
	}

	g := new(errgroup.Group)
	g.SetLimit(bp.concurrency)

	for i, kb := range kbs {
		report := reports[i]
		g.Go(func() error {
			if err := context.Cause(ctx); err != nil {
				report.Error = err.Error()
				report.FinishedAt = time.Now().UTC()
				return nil
			}

			bp.logger.Info("ingesting",
				"kb", kb.ID,
				"source", kb.SourceURL,
				"index", i+1,
				"total", len(kbs),
			)

			p, err := bp.factory(kb)
			if err != nil {
				report.Error = err.Error()
				report.FinishedAt = time.Now().UTC()
				bp.logger.Warn("ingest setup failed", "kb", kb.ID, "error", err)
				return nil
			}
			if err := p.Execute(ctx, report); err != nil {
				bp.logger.Warn("ingest failed", "kb", kb.ID, "error", err)
				return nil
			}
			bp.logger.Info("ingest completed", "kb", kb.ID)
			return nil
		})
	}
	_ = g.Wait()

	bp.logger.Info("batch ingest complete",
		"total", len(kbs),
		"elapsed", time.Since(startTime),
	)
	return reports, context.Cause(ctx)
}

// Failed reports whether any report of a batch carries an error.
func Failed(reports []*model.IngestReport) bool {
	for _, r := range reports {
		if r != nil && r.Error != "" {
			return true
		}
	}
	return false
}
