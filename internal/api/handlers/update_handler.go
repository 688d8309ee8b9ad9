package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/Clausewise/internal/core/export"
	"github.com/markdave123-py/Clausewise/internal/models"
	"github.com/markdave123-py/Clausewise/internal/services"
)

// UpdateAPI covers everything that happens after a review is committed.
type UpdateAPI interface {
	Get(ctx context.Context, user *models.User, reviewID string) (*services.UpdatesView, error)
	SetUpdateStatus(ctx context.Context, user *models.User, updateID, status string) error
	Revise(ctx context.Context, user *models.User, reviewID string) (*models.ReviewSession, error)
	Translate(ctx context.Context, user *models.User, reviewID, language string) (*services.TranslationResult, error)
	Download(ctx context.Context, user *models.User, reviewID, format, variant string) (*export.Result, error)
	Tracking(ctx context.Context, user *models.User) ([]models.ReviewSession, error)
	Changes(ctx context.Context, user *models.User, reviewID string) (*services.ChangesView, error)
}

var _ UpdateAPI = (*services.UpdateService)(nil)

type UpdateHandler struct {
	updates UpdateAPI
}

func NewUpdateHandler(updates UpdateAPI) *UpdateHandler {
	return &UpdateHandler{updates: updates}
}

type translateRequest struct {
	Language string `json:"language"`
}

func (h *UpdateHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.updates.Get(r.Context(), currentUser(r), chi.URLParam(r, "reviewID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *UpdateHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req, false, maxJSONBytes); err != nil {
		writeError(w, r, err)
		return
	}

	updateID := chi.URLParam(r, "updateID")
	if err := h.updates.SetUpdateStatus(r.Context(), currentUser(r), updateID, req.Status); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": updateID, "status": req.Status})
}

// Revise asks the agent for the revised contract and returns the saved
// session.
func (h *UpdateHandler) Revise(w http.ResponseWriter, r *http.Request) {
	session, err := h.updates.Revise(r.Context(), currentUser(r), chi.URLParam(r, "reviewID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *UpdateHandler) Translate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := decodeJSON(w, r, &req, false, maxJSONBytes); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.updates.Translate(r.Context(), currentUser(r), chi.URLParam(r, "reviewID"), req.Language)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Download streams the exported document as an attachment.
func (h *UpdateHandler) Download(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.updates.Download(r.Context(), currentUser(r), chi.URLParam(r, "reviewID"), q.Get("format"), q.Get("variant"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", res.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

func (h *UpdateHandler) Tracking(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.updates.Tracking(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []models.ReviewSession{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h *UpdateHandler) Changes(w http.ResponseWriter, r *http.Request) {
	view, err := h.updates.Changes(r.Context(), currentUser(r), chi.URLParam(r, "reviewID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
