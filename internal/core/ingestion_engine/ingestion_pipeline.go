package ingestion_engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/Clausewise/internal/core"
	"github.com/markdave123-py/Clausewise/internal/logger"
	"github.com/markdave123-py/Clausewise/internal/models"
)

// NewReferenceIngestor constructs the ingestor with a bounded job queue (64).
// A zero cfg selects DefaultIngestConfig.
func NewReferenceIngestor(db core.DbClient, obj core.ObjectClient, emb core.EmbeddingProvider, extractor core.DocumentExtractor, cfg IngestConfig) *ReferenceIngestor {
	if cfg.TargetTokens <= 0 {
		cfg = DefaultIngestConfig
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultIngestConfig.BatchSize
	}
	return &ReferenceIngestor{
		db: db, obj: obj, embedder: emb, extractor: extractor, cfg: cfg,
		jobs: make(chan Job, 64),
	}
}

// Start runs numWorkers goroutines reading from the jobs channel until ctx
// is cancelled.
func (i *ReferenceIngestor) Start(ctx context.Context, numWorkers int) {
	for w := 1; w <= numWorkers; w++ {
		go func(w int) {
			for {
				select {
				case <-ctx.Done():
					logger.Info(ctx, "reference ingestor worker shutting down", "worker", w)
					return
				case job := <-i.jobs:
					logger.Info(ctx, "processing reference document", "reference_id", job.ReferenceID, "worker", w)
					if err := i.ProcessOne(ctx, job); err != nil {
						logger.Error(ctx, "reference ingestion failed", "reference_id", job.ReferenceID, "error", err)
					}
				}
			}
		}(w)
	}
}

// Enqueue schedules a document for ingestion. It blocks while the queue is
// full, until ctx is done.
func (i *ReferenceIngestor) Enqueue(ctx context.Context, job Job) error {
	select {
	case i.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProcessOne extracts, chunks, embeds and persists a single document, moving
// it through processing to ready (or failed).
func (i *ReferenceIngestor) ProcessOne(ctx context.Context, job Job) error {
	proctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	// Status writes use the parent context so a timed-out run can still be
	// marked failed.
	if err := i.db.UpdateReferenceStatus(ctx, job.ReferenceID, models.ReferenceProcessing); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	if err := i.run(proctx, job); err != nil {
		if serr := i.db.UpdateReferenceStatus(ctx, job.ReferenceID, models.ReferenceFailed); serr != nil {
			logger.Error(ctx, "could not mark reference failed", "reference_id", job.ReferenceID, "error", serr)
		}
		return err
	}

	return i.db.UpdateReferenceStatus(ctx, job.ReferenceID, models.ReferenceReady)
}

func (i *ReferenceIngestor) run(ctx context.Context, job Job) error {
	data := job.Data
	if len(data) == 0 {
		if i.obj == nil || job.Key == "" {
			return fmt.Errorf("reference %s has no content", job.ReferenceID)
		}
		var err error
		data, err = i.obj.GetFile(ctx, job.Bucket, job.Key)
		if err != nil {
			return fmt.Errorf("get object: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	// extract -> fragments.
	fragCh, err := i.extractor.ExtractText(gctx, g, data, job.ContentType)
	if err != nil {
		return err
	}

	// fragments -> chunks.
	chunkCh := streamChunk(gctx, g, fragCh, i.cfg.TargetTokens, i.cfg.OverlapTokens)

	// chunks -> embed + persist.
	g.Go(func() error {
		return i.embedAndPersist(gctx, job.ReferenceID, chunkCh, i.cfg.BatchSize)
	})

	return g.Wait()
}
