package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/markdave123-py/Clausewise/internal/core/ingestion_engine"
	objectclient "github.com/markdave123-py/Clausewise/internal/core/object-client"
	"github.com/markdave123-py/Clausewise/internal/models"
)

// ReferenceService manages the user's reference library.
type ReferenceService struct {
	d Deps
}

func NewReferenceService(d Deps) *ReferenceService {
	d.defaults()
	return &ReferenceService{d: d}
}

// Upload stores a reference document and queues it for chunking and
// embedding.
func (s *ReferenceService) Upload(ctx context.Context, user *models.User, file FileUpload) (*models.ReferenceDocument, error) {
	if s.d.Ingestor == nil {
		return nil, domainError(http.StatusServiceUnavailable, CodeFeatureDisabled, "the reference library needs an embedding model", nil)
	}
	if err := checkUser(user); err != nil {
		return nil, err
	}
	if len(file.Data) == 0 {
		return nil, validationError("a reference file is required", nil)
	}
	ct, err := ingestion_engine.ContentType(file.Name, file.ContentType)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	doc := &models.ReferenceDocument{
		ID:          id,
		UserEmail:   user.Email,
		FileName:    file.Name,
		ContentType: ct,
		StorageKey:  s.d.archive(ctx, objectclient.Key("references", id, file.Name), file.Data, ct),
		Status:      models.ReferenceUploaded,
	}
	if err := s.d.DB.CreateReferenceDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create reference document: %w", err)
	}

	if err := s.d.Ingestor.Enqueue(ctx, ingestion_engine.Job{
		ReferenceID: id,
		ContentType: ct,
		Data:        file.Data,
		Bucket:      s.d.Bucket,
		Key:         doc.StorageKey,
	}); err != nil {
		return nil, fmt.Errorf("enqueue reference: %w", err)
	}
	return doc, nil
}

func (s *ReferenceService) List(ctx context.Context, user *models.User) ([]models.ReferenceDocument, error) {
	if err := checkUser(user); err != nil {
		return nil, err
	}
	docs, err := s.d.DB.ListReferenceDocuments(ctx, user.Email)
	if err != nil {
		return nil, fmt.Errorf("list reference documents: %w", err)
	}
	return docs, nil
}
