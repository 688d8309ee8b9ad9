package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	middleware "github.com/markdave123-py/Clausewise/internal/api/middlewares"
	"github.com/markdave123-py/Clausewise/internal/core"
	ae "github.com/markdave123-py/Clausewise/internal/core/annotation_engine"
	"github.com/markdave123-py/Clausewise/internal/core/export"
	"github.com/markdave123-py/Clausewise/internal/models"
	"github.com/markdave123-py/Clausewise/internal/services"
)

const reviewID = "0123456789abcdef0123456789abcdef0123456789abcdef01"

type fakeReviews struct {
	user      *models.User
	submitted services.SubmitInput
	selection ae.Selection
	markup    string
	status    string
	err       error
}

func (f *fakeReviews) Submit(_ context.Context, u *models.User, in services.SubmitInput) (*services.ReviewView, error) {
	f.user, f.submitted = u, in
	if f.err != nil {
		return nil, f.err
	}
	return &services.ReviewView{Session: &models.ReviewSession{ContractReviewID: reviewID}, HTML: "<table></table>"}, nil
}

func (f *fakeReviews) Get(_ context.Context, u *models.User, id string) (*services.ReviewView, error) {
	f.user = u
	if f.err != nil {
		return nil, f.err
	}
	return &services.ReviewView{Session: &models.ReviewSession{ContractReviewID: id}}, nil
}

func (f *fakeReviews) SaveSelection(_ context.Context, _ *models.User, _ string, sel ae.Selection) (*services.ReviewView, error) {
	f.selection = sel
	return &services.ReviewView{Selected: sel.Count()}, f.err
}

func (f *fakeReviews) Extract(_ context.Context, _ *models.User, _ string, markup string) ([]ae.Row, error) {
	f.markup = markup
	return []ae.Row{{Key: "1-0", Selected: true}}, f.err
}

func (f *fakeReviews) Commit(_ context.Context, _ *models.User, id, markup string) (*services.CommitResult, error) {
	f.markup = markup
	if f.err != nil {
		return nil, f.err
	}
	return &services.CommitResult{ContractReviewID: id, Updates: []models.ContractUpdate{{ContractReviewID: id}}}, nil
}

func (f *fakeReviews) UpdateStatus(_ context.Context, _ *models.User, _, status string) error {
	f.status = status
	return f.err
}

type fakeUpdates struct {
	format, variant, language string
	sessions                  []models.ReviewSession
	err                       error
}

func (f *fakeUpdates) Get(_ context.Context, _ *models.User, id string) (*services.UpdatesView, error) {
	return &services.UpdatesView{Session: &models.ReviewSession{ContractReviewID: id}}, f.err
}

func (f *fakeUpdates) SetUpdateStatus(context.Context, *models.User, string, string) error {
	return f.err
}

func (f *fakeUpdates) Revise(_ context.Context, _ *models.User, id string) (*models.ReviewSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.ReviewSession{ContractReviewID: id, RevisedContractText: "revised"}, nil
}

func (f *fakeUpdates) Translate(_ context.Context, _ *models.User, id, language string) (*services.TranslationResult, error) {
	f.language = language
	return &services.TranslationResult{ContractReviewID: id, Language: language, Text: "terjemahan"}, f.err
}

func (f *fakeUpdates) Download(_ context.Context, _ *models.User, _ string, format, variant string) (*export.Result, error) {
	f.format, f.variant = format, variant
	if f.err != nil {
		return nil, f.err
	}
	return &export.Result{Data: []byte("revised text\n"), Filename: "Revised-Contract.txt", MimeType: "text/plain; charset=utf-8"}, nil
}

func (f *fakeUpdates) Tracking(context.Context, *models.User) ([]models.ReviewSession, error) {
	return f.sessions, f.err
}

func (f *fakeUpdates) Changes(_ context.Context, _ *models.User, id string) (*services.ChangesView, error) {
	return &services.ChangesView{ContractReviewID: id}, f.err
}

type fakeRefs struct {
	file services.FileUpload
}

func (f *fakeRefs) Upload(_ context.Context, u *models.User, file services.FileUpload) (*models.ReferenceDocument, error) {
	f.file = file
	return &models.ReferenceDocument{ID: "ref-1", UserEmail: u.Email, FileName: file.Name, Status: models.ReferenceUploaded}, nil
}

func (f *fakeRefs) List(context.Context, *models.User) ([]models.ReferenceDocument, error) {
	return nil, nil
}

func newRouter(reviews ReviewAPI, updates UpdateAPI, refs ReferenceAPI) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequireUser(middleware.NewStubAuthenticator()))

	s := NewSessionHandler(nil)
	rh := NewReviewHandler(reviews, 1<<20)
	uh := NewUpdateHandler(updates)
	fh := NewReferenceHandler(refs, 1<<20)

	r.Get("/api/session", s.Session)
	r.Post("/api/contract-review", rh.Submit)
	r.Get("/api/contract-review/{reviewID}", rh.Get)
	r.Put("/api/contract-review/{reviewID}/selection", rh.SaveSelection)
	r.Post("/api/contract-review/{reviewID}/extract", rh.Extract)
	r.Post("/api/contract-review/{reviewID}/commit", rh.Commit)
	r.Patch("/api/contract-review/{reviewID}/status", rh.UpdateStatus)
	r.Post("/api/contract-review-update-translation/{reviewID}", uh.Translate)
	r.Get("/api/contract-review-update-download/{reviewID}", uh.Download)
	r.Get("/api/update-tracking", uh.Tracking)
	r.Post("/api/references", fh.Upload)
	r.Get("/api/references", fh.List)
	return r
}

func do(t *testing.T, h http.Handler, method, target, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type part struct {
	field, name, contentType string
	data                     []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...part) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		hdr.Set("Content-Type", f.contentType)
		w, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = w.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestSubmitReadsMultipartForm(t *testing.T) {
	reviews := &fakeReviews{}
	h := newRouter(reviews, &fakeUpdates{}, &fakeRefs{})

	body, ct := multipartBody(t, map[string]string{
		"party":         "Employer",
		"risk_appetite": "low",
		"jurisdiction":  "Indonesia",
		"language":      "english",
	},
		part{"file", "employment.pdf", "application/pdf", []byte("%PDF-1.7")},
		part{"references[]", "policy.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", []byte("PK")},
		part{"references[]", "law.pdf", "application/pdf", []byte("%PDF")},
	)
	rec := do(t, h, http.MethodPost, "/api/contract-review", ct, body)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	in := reviews.submitted
	assert.Equal(t, "employment.pdf", in.File.Name)
	assert.Equal(t, "application/pdf", in.File.ContentType)
	assert.Equal(t, []byte("%PDF-1.7"), in.File.Data)
	require.Len(t, in.References, 2)
	assert.Equal(t, "policy.docx", in.References[0].Name)
	assert.Equal(t, "law.pdf", in.References[1].Name)
	assert.Equal(t, "Employer", in.Party)
	assert.Equal(t, "low", in.RiskAppetite)
	assert.Equal(t, "Indonesia", in.Jurisdiction)
	assert.Equal(t, "english", in.Language)
	assert.Equal(t, "user@example.com", reviews.user.Email)
	assert.Contains(t, rec.Body.String(), reviewID)
}

func TestSubmitRequiresFile(t *testing.T) {
	h := newRouter(&fakeReviews{}, &fakeUpdates{}, &fakeRefs{})

	body, ct := multipartBody(t, map[string]string{"party": "Employer"})
	rec := do(t, h, http.MethodPost, "/api/contract-review", ct, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, services.CodeValidation, errorCode(t, rec))

	rec = do(t, h, http.MethodPost, "/api/contract-review", "application/json", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitRejectsOversizedUpload(t *testing.T) {
	h := newRouter(&fakeReviews{}, &fakeUpdates{}, &fakeRefs{})

	body, ct := multipartBody(t, nil, part{"file", "big.pdf", "application/pdf", bytes.Repeat([]byte("a"), 2<<20)})
	rec := do(t, h, http.MethodPost, "/api/contract-review", ct, body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestServiceErrorsAreMapped(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{core.ErrActionInFlight, http.StatusConflict, services.CodeInFlight},
		{core.ErrNotFound, http.StatusNotFound, services.CodeNotFound},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, services.CodeTimeout},
		{assert.AnError, http.StatusInternalServerError, services.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			h := newRouter(&fakeReviews{err: tc.err}, &fakeUpdates{}, &fakeRefs{})
			rec := do(t, h, http.MethodPost, "/api/contract-review/"+reviewID+"/commit", "", nil)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, errorCode(t, rec))
		})
	}
}

func TestSaveSelectionDecodesRows(t *testing.T) {
	reviews := &fakeReviews{}
	h := newRouter(reviews, &fakeUpdates{}, &fakeRefs{})

	rec := do(t, h, http.MethodPut, "/api/contract-review/"+reviewID+"/selection", "application/json",
		[]byte(`{"rows":{"1-0":{"selected":true,"note":"Keep 30 days."},"1-2":{"selected":false}}}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ae.Selection{
		"1-0": {Selected: true, Note: "Keep 30 days."},
		"1-2": {Selected: false},
	}, reviews.selection)
	assert.JSONEq(t, `{"session":null,"html":"","tables":null,"rows":null,"selected":1}`, rec.Body.String())

	rec = do(t, h, http.MethodPut, "/api/contract-review/"+reviewID+"/selection", "application/json", []byte(`{`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCommitBodyIsOptional(t *testing.T) {
	reviews := &fakeReviews{markup: "unset"}
	h := newRouter(reviews, &fakeUpdates{}, &fakeRefs{})

	rec := do(t, h, http.MethodPost, "/api/contract-review/"+reviewID+"/commit", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "", reviews.markup)

	rec = do(t, h, http.MethodPost, "/api/contract-review/"+reviewID+"/commit", "application/json", []byte(`{"html":"<table></table>"}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "<table></table>", reviews.markup)
}

func TestExtractRequiresHTML(t *testing.T) {
	reviews := &fakeReviews{}
	h := newRouter(reviews, &fakeUpdates{}, &fakeRefs{})

	rec := do(t, h, http.MethodPost, "/api/contract-review/"+reviewID+"/extract", "application/json", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/contract-review/"+reviewID+"/extract", "application/json", []byte(`{"html":"<p>x</p>"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<p>x</p>", reviews.markup)
	assert.Contains(t, rec.Body.String(), `"key":"1-0"`)
}

func TestUpdateStatus(t *testing.T) {
	reviews := &fakeReviews{}
	h := newRouter(reviews, &fakeUpdates{}, &fakeRefs{})

	rec := do(t, h, http.MethodPatch, "/api/contract-review/"+reviewID+"/status", "application/json", []byte(`{"status":"completed"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusCompleted, reviews.status)
	assert.JSONEq(t, `{"contract_review_id":"`+reviewID+`","status":"completed"}`, rec.Body.String())
}

func TestDownloadWritesAttachment(t *testing.T) {
	updates := &fakeUpdates{}
	h := newRouter(&fakeReviews{}, updates, &fakeRefs{})

	rec := do(t, h, http.MethodGet, "/api/contract-review-update-download/"+reviewID+"?format=txt&variant=english", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "txt", updates.format)
	assert.Equal(t, "english", updates.variant)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Revised-Contract.txt"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "revised text\n", rec.Body.String())
}

func TestDownloadErrorIsJSON(t *testing.T) {
	h := newRouter(&fakeReviews{}, &fakeUpdates{err: export.ErrPDFDependencyMissing}, &fakeRefs{})

	rec := do(t, h, http.MethodGet, "/api/contract-review-update-download/"+reviewID, "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, services.CodeExportUnavailable, errorCode(t, rec))
}

func TestTranslateAndTracking(t *testing.T) {
	updates := &fakeUpdates{}
	h := newRouter(&fakeReviews{}, updates, &fakeRefs{})

	rec := do(t, h, http.MethodPost, "/api/contract-review-update-translation/"+reviewID, "application/json", []byte(`{"language":"Indonesian"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Indonesian", updates.language)

	rec = do(t, h, http.MethodGet, "/api/update-tracking", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sessions":[]}`, rec.Body.String())
}

func TestReferenceUploadAndList(t *testing.T) {
	refs := &fakeRefs{}
	h := newRouter(&fakeReviews{}, &fakeUpdates{}, refs)

	body, ct := multipartBody(t, nil, part{"file", "../../etc/regulation.pdf", "application/pdf", []byte("%PDF")})
	rec := do(t, h, http.MethodPost, "/api/references", ct, body)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "regulation.pdf", refs.file.Name)
	assert.Contains(t, rec.Body.String(), `"status":"uploaded"`)

	rec = do(t, h, http.MethodGet, "/api/references", "", nil)
	assert.JSONEq(t, `{"references":[]}`, rec.Body.String())
}

func TestSessionReturnsUser(t *testing.T) {
	h := newRouter(&fakeReviews{}, &fakeUpdates{}, &fakeRefs{})

	rec := do(t, h, http.MethodGet, "/api/session", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"email":"user@example.com"`))
}

func TestMarkupBodyIsBounded(t *testing.T) {
	reviews := &fakeReviews{}
	h := newRouter(reviews, &fakeUpdates{}, &fakeRefs{})

	body := []byte(`{"html":"` + strings.Repeat("a", 2<<20) + `"}`)
	for _, action := range []string{"extract", "commit"} {
		rec := do(t, h, http.MethodPost, "/api/contract-review/"+reviewID+"/"+action, "application/json", body)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, action)
		assert.Equal(t, services.CodeValidation, errorCode(t, rec))
	}
	assert.Empty(t, reviews.markup)
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthChecksDependencies(t *testing.T) {
	up := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return assert.AnError })

	r := chi.NewRouter()
	r.Get("/ok", NewSessionHandler(map[string]Pinger{"database": up, "redis": up}).Health)
	r.Get("/degraded", NewSessionHandler(map[string]Pinger{"database": up, "redis": down}).Health)

	rec := do(t, r, http.MethodGet, "/ok", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"database":"ok","redis":"ok"}}`, rec.Body.String())

	rec = do(t, r, http.MethodGet, "/degraded", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"database":"ok","redis":"unavailable"}}`, rec.Body.String())
}
