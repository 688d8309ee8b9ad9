package services

import (
	"context"
	"time"

	"github.com/markdave123-py/Clausewise/internal/core"
	"github.com/markdave123-py/Clausewise/internal/core/ingestion_engine"
	"github.com/markdave123-py/Clausewise/internal/logger"
)

// Deps wires the services to their collaborators. Objects, Retriever and
// Ingestor are optional.
type Deps struct {
	DB         core.DbClient
	Agent      core.ReviewAgent
	Extractor  core.DocumentExtractor
	Selections core.SelectionStore
	Exporter   core.Exporter
	Objects    core.ObjectClient
	Bucket     string
	Retriever  *ingestion_engine.Retriever
	Ingestor   ingestion_engine.Ingestor
	AITimeout  time.Duration
	LockTTL    time.Duration
}

func (d *Deps) defaults() {
	if d.AITimeout <= 0 {
		d.AITimeout = 5 * time.Minute
	}
	if d.LockTTL <= 0 {
		d.LockTTL = d.AITimeout + time.Minute
	}
}

// FileUpload is one file received from a client.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// archive stores data in object storage when it is configured. Failures are
// logged, never returned.
func (d *Deps) archive(ctx context.Context, key string, data []byte, contentType string) string {
	if d.Objects == nil {
		return ""
	}
	if _, err := d.Objects.UploadFile(ctx, d.Bucket, key, data, contentType); err != nil {
		logger.Warn(ctx, "archiving to object storage failed", "key", key, "error", err)
		return ""
	}
	return key
}
