package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Clausewise/internal/core/ingestion_engine"
	"github.com/markdave123-py/Clausewise/internal/models"
)

type queueIngestor struct {
	jobs []ingestion_engine.Job
}

func (q *queueIngestor) Start(context.Context, int) {}

func (q *queueIngestor) Enqueue(_ context.Context, job ingestion_engine.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *queueIngestor) ProcessOne(context.Context, ingestion_engine.Job) error { return nil }

func TestReferenceUploadQueuesIngestion(t *testing.T) {
	f := newFixture()
	q := &queueIngestor{}
	f.deps.Ingestor = q
	svc := NewReferenceService(f.deps)
	ctx := context.Background()

	doc, err := svc.Upload(ctx, testUser, FileUpload{Name: "ojk-22-2023.pdf", Data: []byte("%PDF")})
	require.NoError(t, err)
	assert.Equal(t, models.ReferenceUploaded, doc.Status)
	assert.Equal(t, ingestion_engine.MimePDF, doc.ContentType)
	assert.Equal(t, "references/"+doc.ID+"/ojk-22-2023.pdf", doc.StorageKey)

	require.Len(t, q.jobs, 1)
	assert.Equal(t, doc.ID, q.jobs[0].ReferenceID)
	assert.Equal(t, []byte("%PDF"), q.jobs[0].Data)

	docs, err := svc.List(ctx, testUser)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestReferenceUploadDisabledWithoutIngestor(t *testing.T) {
	f := newFixture()
	_, err := NewReferenceService(f.deps).Upload(context.Background(), testUser, FileUpload{Name: "a.pdf", Data: []byte("x")})
	assert.Equal(t, http.StatusServiceUnavailable, AsDomainError(err).Status)
}
