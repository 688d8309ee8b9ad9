package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	ae "github.com/markdave123-py/Clausewise/internal/core/annotation_engine"
	"github.com/markdave123-py/Clausewise/internal/models"
	"github.com/markdave123-py/Clausewise/internal/services"
)

// ReviewAPI is the contract review workflow behind the review routes.
type ReviewAPI interface {
	Submit(ctx context.Context, user *models.User, in services.SubmitInput) (*services.ReviewView, error)
	Get(ctx context.Context, user *models.User, reviewID string) (*services.ReviewView, error)
	SaveSelection(ctx context.Context, user *models.User, reviewID string, sel ae.Selection) (*services.ReviewView, error)
	Extract(ctx context.Context, user *models.User, reviewID, markup string) ([]ae.Row, error)
	Commit(ctx context.Context, user *models.User, reviewID, markup string) (*services.CommitResult, error)
	UpdateStatus(ctx context.Context, user *models.User, reviewID, status string) error
}

var _ ReviewAPI = (*services.ReviewService)(nil)

type ReviewHandler struct {
	reviews        ReviewAPI
	maxUploadBytes int64
}

func NewReviewHandler(reviews ReviewAPI, maxUploadBytes int64) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, maxUploadBytes: maxUploadBytes}
}

type markupRequest struct {
	HTML string `json:"html"`
}

type selectionRequest struct {
	Rows ae.Selection `json:"rows"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// Submit handles the contract upload and returns the annotated review.
func (h *ReviewHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := parseUpload(w, r, h.maxUploadBytes); err != nil {
		writeError(w, r, err)
		return
	}

	files := formFiles(r, "file")
	if len(files) == 0 {
		writeError(w, r, badRequest("a contract file is required"))
		return
	}
	contract, err := readFileHeader(files[0])
	if err != nil {
		writeError(w, r, err)
		return
	}

	in := services.SubmitInput{
		File:         contract,
		Party:        r.FormValue("party"),
		RiskAppetite: r.FormValue("risk_appetite"),
		Jurisdiction: r.FormValue("jurisdiction"),
		Language:     r.FormValue("language"),
	}
	for _, fh := range formFiles(r, "references[]", "references") {
		ref, err := readFileHeader(fh)
		if err != nil {
			writeError(w, r, err)
			return
		}
		in.References = append(in.References, ref)
	}

	view, err := h.reviews.Submit(r.Context(), currentUser(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.reviews.Get(r.Context(), currentUser(r), chi.URLParam(r, "reviewID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// SaveSelection stores the checkbox and note state of the review's rows.
func (h *ReviewHandler) SaveSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeJSON(w, r, &req, false, maxJSONBytes); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Rows == nil {
		req.Rows = ae.Selection{}
	}

	view, err := h.reviews.SaveSelection(r.Context(), currentUser(r), chi.URLParam(r, "reviewID"), req.Rows)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Extract reads the row states out of a client's annotated markup.
func (h *ReviewHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req markupRequest
	if err := decodeJSON(w, r, &req, false, h.maxUploadBytes); err != nil {
		writeError(w, r, err)
		return
	}
	if req.HTML == "" {
		writeError(w, r, badRequest("html is required"))
		return
	}

	rows, err := h.reviews.Extract(r.Context(), currentUser(r), chi.URLParam(r, "reviewID"), req.HTML)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

// Commit persists the selected rows as contract updates. The body is
// optional; when it carries html the rows are read from it.
func (h *ReviewHandler) Commit(w http.ResponseWriter, r *http.Request) {
	var req markupRequest
	if err := decodeJSON(w, r, &req, true, h.maxUploadBytes); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.reviews.Commit(r.Context(), currentUser(r), chi.URLParam(r, "reviewID"), req.HTML)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *ReviewHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req, false, maxJSONBytes); err != nil {
		writeError(w, r, err)
		return
	}

	reviewID := chi.URLParam(r, "reviewID")
	if err := h.reviews.UpdateStatus(r.Context(), currentUser(r), reviewID, req.Status); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"contract_review_id": reviewID, "status": req.Status})
}
