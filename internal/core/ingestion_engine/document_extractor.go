package ingestion_engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/Clausewise/internal/core"
	"github.com/markdave123-py/Clausewise/internal/logger"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var (
	// ErrUnsupportedType is returned for uploads that are neither PDF nor DOCX.
	ErrUnsupportedType = errors.New("unsupported document type")
	// ErrEmptyDocument is returned when no text could be extracted.
	ErrEmptyDocument = errors.New("no text could be extracted from the document")
)

var _ core.DocumentExtractor = (*DocconvExtractor)(nil)

func NewDocconvExtractor(useReadability bool) *DocconvExtractor {
	return &DocconvExtractor{useReadability: useReadability}
}

// ContentType resolves the MIME type of an upload from its declared type and
// file extension. Only PDF and DOCX are accepted.
func ContentType(fileName, declared string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(declared, ";", 2)[0])) {
	case MimePDF:
		return MimePDF, nil
	case MimeDOCX:
		return MimeDOCX, nil
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return MimePDF, nil
	case ".docx":
		return MimeDOCX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedType, fileName)
}

// ExtractText converts the document with docconv on g and streams its
// non-blank lines. Conversion errors surface through g.Wait.
func (e *DocconvExtractor) ExtractText(ctx context.Context, g *errgroup.Group, r []byte, contentType string) (<-chan string, error) {
	if contentType != MimePDF && contentType != MimeDOCX {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	out := make(chan string, 32)

	g.Go(func() error {
		defer close(out)

		res, err := docconv.Convert(bytes.NewReader(r), contentType, e.useReadability)
		if err != nil {
			return fmt.Errorf("docconv %s: %w", contentType, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if strings.TrimSpace(res.Body) == "" {
			logger.Warn(ctx, "docconv extracted empty text", "content_type", contentType)
			return nil
		}

		for _, line := range strings.Split(res.Body, "\n") {
			if line = strings.TrimSpace(line); line == "" {
				continue
			}
			select {
			case out <- line:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	return out, nil
}

// ExtractAll drains an extractor into a single newline-joined string.
func ExtractAll(ctx context.Context, ex core.DocumentExtractor, data []byte, contentType string) (string, error) {
	g, gctx := errgroup.WithContext(ctx)

	frags, err := ex.ExtractText(gctx, g, data, contentType)
	if err != nil {
		return "", err
	}

	var lines []string
	g.Go(func() error {
		for f := range frags {
			lines = append(lines, f)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", ErrEmptyDocument
	}
	return strings.Join(lines, "\n"), nil
}
