package core

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DocumentExtractor defines the interface for extracting text from uploaded contracts.
type DocumentExtractor interface {
	// ExtractText returns a channel of extracted text fragments. The
	// `contentType` hint chooses the parsing strategy; unsupported types
	// fail before any work is scheduled on g.
	ExtractText(ctx context.Context, g *errgroup.Group, r []byte, contentType string) (<-chan string, error)
}
