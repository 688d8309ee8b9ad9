package export

import (
	"context"
	"fmt"
	"html/template"
	"strings"
)

// Service provides document export functionality
type Service struct{}

// NewService creates a new export service
func NewService() *Service {
	return &Service{}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	body := req.HTML
	if strings.TrimSpace(body) == "" {
		if strings.TrimSpace(req.Text) == "" {
			return nil, ErrEmptyContent
		}
		if LooksLikeHTML(req.Text) {
			body = req.Text
		} else {
			body = TextToHTML(req.Text)
		}
	}

	if req.Format == FormatTXT {
		text, err := HTMLToText(body)
		if err != nil {
			return nil, fmt.Errorf("html to text: %w", err)
		}
		return &Result{
			Data:     []byte(text + "\n"),
			Filename: sanitizeFilename(req.Title) + ".txt",
			MimeType: "text/plain; charset=utf-8",
		}, nil
	}

	html, err := RenderDocumentHTML(TemplateData{
		Title:       req.Title,
		Subtitle:    req.Subtitle,
		GeneratedAt: req.GeneratedAt,
		ContentHTML: template.HTML(body),
	})
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatPDF:
		return exportPDF(ctx, html, req.Title)
	case FormatDOCX:
		return exportDOCX(ctx, html, req.Title)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
}
