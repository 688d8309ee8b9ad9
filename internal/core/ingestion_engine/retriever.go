package ingestion_engine

import (
	"context"
	"fmt"

	"github.com/markdave123-py/Clausewise/internal/core"
	"github.com/markdave123-py/Clausewise/internal/models"
)

// queryRunes bounds how much of a contract is embedded as the search query.
const queryRunes = 4000

// Retriever finds reference chunks related to a contract.
type Retriever struct {
	db       core.DbClient
	embedder core.EmbeddingProvider
	topK     int
}

func NewRetriever(db core.DbClient, emb core.EmbeddingProvider, topK int) *Retriever {
	if topK <= 0 {
		topK = 6
	}
	return &Retriever{db: db, embedder: emb, topK: topK}
}

// Related embeds the opening of text and returns the nearest chunks from the
// user's ready reference documents.
func (r *Retriever) Related(ctx context.Context, email, text string) ([]models.ReferenceChunk, error) {
	if r == nil || r.embedder == nil {
		return nil, nil
	}
	if rs := []rune(text); len(rs) > queryRunes {
		text = string(rs[:queryRunes])
	}
	if text == "" {
		return nil, nil
	}

	vecs, err := r.embedder.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vecs))
	}
	return r.db.SearchReferenceChunks(ctx, email, vecs[0], r.topK)
}
