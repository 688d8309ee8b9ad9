package ingestion_engine

import (
	"github.com/markdave123-py/Clausewise/internal/core"
)

// IngestConfig tunes the streaming pipeline.
//
// TargetTokens:   approximate tokens per chunk (e.g., 500).
// OverlapTokens:  token overlap between consecutive chunks (e.g., 50).
// BatchSize:      how many chunks to embed/write in one batch (e.g., 32).
type IngestConfig struct {
	TargetTokens  int
	OverlapTokens int
	BatchSize     int
}

// DefaultIngestConfig is used when no config is passed to NewReferenceIngestor.
var DefaultIngestConfig = IngestConfig{TargetTokens: 500, OverlapTokens: 50, BatchSize: 32}

// chunk is the internal representation passed through the pipeline.
//
// Pos:      stable, zero-based position of the chunk inside the document.
// Text:     chunk content (built from one or more fragments).
// TokenCnt: approximate token count (used for batching and overlap math).
type chunk struct {
	Pos      int
	Text     string
	TokenCnt int
}

// Job is one reference document waiting to be chunked and embedded.
// Data holds the raw upload; when empty the file is read back from object
// storage using Bucket and Key.
type Job struct {
	ReferenceID string
	ContentType string
	Data        []byte
	Bucket      string
	Key         string
}

// ReferenceIngestor orchestrates the background ingestion pipeline:
//
// db:        persistence for reference documents and chunks.
// obj:       object storage the uploads were archived to (may be nil).
// embedder:  embedding provider.
// extractor: text extraction for PDF and DOCX.
// jobs:      in-memory queue of documents to process.
type ReferenceIngestor struct {
	db        core.DbClient
	obj       core.ObjectClient
	embedder  core.EmbeddingProvider
	extractor core.DocumentExtractor
	cfg       IngestConfig
	jobs      chan Job
}

// DocconvExtractor implements core.DocumentExtractor using sajari/docconv.
type DocconvExtractor struct {
	useReadability bool
}
