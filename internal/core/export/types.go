// Package export renders revised contracts as PDF, DOCX or plain text.
package export

import (
	"errors"
	"time"
)

// Format represents the export output format
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatTXT  Format = "txt"
)

// ParseFormat maps a query value to a Format; "" selects PDF.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatPDF:
		return FormatPDF, nil
	case FormatDOCX, FormatTXT:
		return Format(s), nil
	}
	return "", ErrUnsupportedFormat
}

// Request contains parameters for an export operation. Exactly one of HTML
// and Text is normally set; Text is treated as lightly formatted markdown.
type Request struct {
	Title       string
	Subtitle    string
	HTML        string
	Text        string
	Format      Format
	GeneratedAt time.Time
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrEmptyContent indicates there is nothing to export.
	ErrEmptyContent = errors.New("export content empty")
	// ErrUnsupportedFormat indicates an unknown output format.
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
