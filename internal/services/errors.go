package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/markdave123-py/Clausewise/internal/core"
	db "github.com/markdave123-py/Clausewise/internal/core/database"
	"github.com/markdave123-py/Clausewise/internal/core/export"
	"github.com/markdave123-py/Clausewise/internal/core/ingestion_engine"
	"github.com/markdave123-py/Clausewise/internal/core/llm"
)

// Error codes returned to clients.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeExtractionFailed  = "EXTRACTION_FAILED"
	CodeAgentFailed       = "AGENT_FAILED"
	CodePersistence       = "PERSISTENCE_ERROR"
	CodeInFlight          = "ACTION_IN_PROGRESS"
	CodeExportUnavailable = "EXPORT_UNAVAILABLE"
	CodeFeatureDisabled   = "FEATURE_DISABLED"
	CodeTimeout           = "TIMEOUT"
	CodeInternal          = "INTERNAL_ERROR"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func validationError(message string, details any) *DomainError {
	return domainError(http.StatusBadRequest, CodeValidation, message, details)
}

func notFound(what string) *DomainError {
	return domainError(http.StatusNotFound, CodeNotFound, what+" not found", nil)
}

// AsDomainError maps any error returned by the services to the DomainError
// sent to the client.
func AsDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}

	var de *DomainError
	if errors.As(err, &de) {
		return de
	}

	var status *llm.StatusError
	var pe *db.PersistenceError

	switch {
	case errors.Is(err, core.ErrNotFound):
		return notFound("resource")
	case errors.Is(err, core.ErrActionInFlight):
		return domainError(http.StatusConflict, CodeInFlight, "this action is already running for the review", nil)
	case errors.Is(err, ingestion_engine.ErrUnsupportedType):
		return domainError(http.StatusBadRequest, CodeValidation, "only PDF and DOCX files are supported", nil)
	case errors.Is(err, ingestion_engine.ErrEmptyDocument):
		return domainError(http.StatusUnprocessableEntity, CodeExtractionFailed, err.Error(), nil)
	case errors.As(err, &status):
		return domainError(http.StatusBadGateway, CodeAgentFailed, "the review agent returned an error",
			map[string]any{"status": status.StatusCode})
	case errors.Is(err, llm.ErrEmptyAnswer), errors.Is(err, llm.ErrFlowNotConfigured):
		return domainError(http.StatusBadGateway, CodeAgentFailed, err.Error(), nil)
	case errors.As(err, &pe):
		return domainError(http.StatusInternalServerError, CodePersistence, pe.Message, map[string]any{
			"code":    pe.Code,
			"details": pe.Details,
			"hint":    pe.Hint,
		})
	case errors.Is(err, export.ErrPDFDependencyMissing), errors.Is(err, export.ErrDOCXDependencyMissing):
		return domainError(http.StatusServiceUnavailable, CodeExportUnavailable, err.Error(), nil)
	case errors.Is(err, export.ErrUnsupportedFormat):
		return domainError(http.StatusBadRequest, CodeValidation, "format must be pdf, docx or txt", nil)
	case errors.Is(err, export.ErrEmptyContent):
		return domainError(http.StatusConflict, CodeValidation, "nothing to export yet", nil)
	case errors.Is(err, context.DeadlineExceeded):
		return domainError(http.StatusGatewayTimeout, CodeTimeout, "the operation timed out", nil)
	}

	return domainError(http.StatusInternalServerError, CodeInternal, "internal server error", nil)
}

// extractionError wraps a document conversion failure for the client.
func extractionError(name string, err error) error {
	if errors.Is(err, ingestion_engine.ErrUnsupportedType) || errors.Is(err, ingestion_engine.ErrEmptyDocument) {
		return err
	}
	return &DomainError{
		Status:  http.StatusUnprocessableEntity,
		Code:    CodeExtractionFailed,
		Message: fmt.Sprintf("could not read %s", name),
		Details: err.Error(),
	}
}
