package core

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/markdave123-py/Clausewise/internal/core/annotation_engine"
	"github.com/markdave123-py/Clausewise/internal/core/export"
	"github.com/markdave123-py/Clausewise/internal/models"
)

var (
	// ErrNotFound is returned by updates that matched no row.
	ErrNotFound = errors.New("not found")
	// ErrActionInFlight is returned when the same action is already running
	// for a review.
	ErrActionInFlight = errors.New("action already in progress")
)

// DbClient defines all persistence operations the services need.
// Getters return (nil, nil) when nothing matches.
type DbClient interface {
	CreateReviewSession(ctx context.Context, s *models.ReviewSession) error
	GetReviewSession(ctx context.Context, reviewID, email string) (*models.ReviewSession, error)
	ListReviewSessions(ctx context.Context, email string) ([]models.ReviewSession, error)
	UpdateReviewStatus(ctx context.Context, reviewID, email, status string) error
	SaveRevisedContract(ctx context.Context, reviewID, email, html, plain, updatesText string) error
	SaveTranslation(ctx context.Context, reviewID, email, language, text string) error

	InsertContractUpdates(ctx context.Context, updates []models.ContractUpdate) error
	ListContractUpdates(ctx context.Context, reviewID, email string) ([]models.ContractUpdate, error)
	UpdateContractUpdateStatus(ctx context.Context, updateID, email, status string) error

	CreateReferenceDocument(ctx context.Context, doc *models.ReferenceDocument) error
	UpdateReferenceStatus(ctx context.Context, id, status string) error
	ListReferenceDocuments(ctx context.Context, email string) ([]models.ReferenceDocument, error)
	InsertReferenceChunks(ctx context.Context, chunks []models.ReferenceChunk) error
	SearchReferenceChunks(ctx context.Context, email string, queryVec []float32, limit int) ([]models.ReferenceChunk, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)

	GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// SelectionStore keeps the row selections of open reviews and guards
// against the same action running twice for one review.
type SelectionStore interface {
	Load(ctx context.Context, reviewID string) (annotation_engine.Selection, error)
	Save(ctx context.Context, reviewID string, sel annotation_engine.Selection) error
	// Acquire returns ErrActionInFlight while another holder has the lock.
	Acquire(ctx context.Context, reviewID, action string, ttl time.Duration) (release func(), err error)
}

// Exporter renders a document to a downloadable file.
type Exporter interface {
	Export(ctx context.Context, req export.Request) (*export.Result, error)
}
