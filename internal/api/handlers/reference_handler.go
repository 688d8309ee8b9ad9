package handlers

import (
	"context"
	"net/http"

	"github.com/markdave123-py/Clausewise/internal/models"
	"github.com/markdave123-py/Clausewise/internal/services"
)

type ReferenceAPI interface {
	Upload(ctx context.Context, user *models.User, file services.FileUpload) (*models.ReferenceDocument, error)
	List(ctx context.Context, user *models.User) ([]models.ReferenceDocument, error)
}

var _ ReferenceAPI = (*services.ReferenceService)(nil)

type ReferenceHandler struct {
	refs           ReferenceAPI
	maxUploadBytes int64
}

func NewReferenceHandler(refs ReferenceAPI, maxUploadBytes int64) *ReferenceHandler {
	return &ReferenceHandler{refs: refs, maxUploadBytes: maxUploadBytes}
}

// Upload stores a reference document and queues it for indexing.
func (h *ReferenceHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := parseUpload(w, r, h.maxUploadBytes); err != nil {
		writeError(w, r, err)
		return
	}

	files := formFiles(r, "file")
	if len(files) == 0 {
		writeError(w, r, badRequest("a file is required"))
		return
	}
	file, err := readFileHeader(files[0])
	if err != nil {
		writeError(w, r, err)
		return
	}

	doc, err := h.refs.Upload(r.Context(), currentUser(r), file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (h *ReferenceHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.refs.List(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []models.ReferenceDocument{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"references": docs})
}
