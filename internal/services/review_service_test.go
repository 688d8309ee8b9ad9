package services

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Clausewise/internal/core"
	ae "github.com/markdave123-py/Clausewise/internal/core/annotation_engine"
	db "github.com/markdave123-py/Clausewise/internal/core/database"
	"github.com/markdave123-py/Clausewise/internal/core/export"
	"github.com/markdave123-py/Clausewise/internal/core/ingestion_engine"
	"github.com/markdave123-py/Clausewise/internal/core/selection_store"
	"github.com/markdave123-py/Clausewise/internal/models"
)

const reviewAnswer = "```html\n" + `<h2>Compliance Assessment</h2>
<table><tr><th>Area</th><th>Finding</th></tr><tr><td>Notice</td><td>Missing</td></tr></table>
<h2>Recommended Legal Amendments and Clause Revisions</h2>
<table>
<tr><th>Contractual Reference</th><th>Recommended Legal Amendment</th><th>Original Clause</th><th>Input Verification of Amendments</th><th>Revised Clause</th></tr>
<tr><td>Clause 4.2</td><td>Add notice period</td><td>Employee may resign at will</td><td></td><td>Employee shall provide 30 days notice.</td></tr>
<tr><td>Clause 7</td><td>Cap liability</td><td>Unlimited liability</td><td></td><td>Liability is capped at fees paid.</td></tr>
<tr><td>Clause 9</td><td>Add governing law</td><td>Silent</td><td></td><td>This Agreement is governed by Indonesian law.</td></tr>
</table>` + "\n```"

var testUser = &models.User{ID: "u-1", Email: "user@example.com", Role: "legal"}

type fixture struct {
	db      *memDB
	agent   *fakeAgent
	objects *memObjects
	deps    Deps
}

func newFixture() *fixture {
	f := &fixture{
		db: newMemDB(),
		agent: &fakeAgent{answers: map[core.Flow]string{
			core.FlowReview: reviewAnswer,
		}},
		objects: &memObjects{},
	}
	f.deps = Deps{
		DB:         f.db,
		Agent:      f.agent,
		Extractor:  textExtractor{},
		Selections: selection_store.NewMemoryStore(),
		Exporter:   export.NewService(),
		Objects:    f.objects,
		Bucket:     "contracts",
		AITimeout:  time.Minute,
	}
	return f
}

func (f *fixture) submit(t *testing.T) *ReviewView {
	t.Helper()
	view, err := NewReviewService(f.deps).Submit(context.Background(), testUser, SubmitInput{
		File: FileUpload{
			Name:        "employment.pdf",
			ContentType: ingestion_engine.MimePDF,
			Data:        []byte("1. Employee may resign at will.\n2. Unlimited liability."),
		},
		References: []FileUpload{{Name: "policy.docx", Data: []byte("Notice periods are mandatory.")}},
		Party:      "Employer",
	})
	require.NoError(t, err)
	return view
}

func TestSubmitCreatesAnnotatedSession(t *testing.T) {
	f := newFixture()
	view := f.submit(t)

	id := view.Session.ContractReviewID
	assert.True(t, ValidReviewID(id))
	assert.Equal(t, models.StatusPending, view.Session.Status)
	assert.Equal(t, "1. Employee may resign at will.\n2. Unlimited liability.", view.Session.OriginalText)
	assert.Equal(t, 3, strings.Count(view.HTML, `data-role="row-select"`))
	assert.Len(t, view.Rows, 3)
	require.Len(t, view.Tables, 2)
	assert.Equal(t, ae.RoleInformational, view.Tables[0].Role)
	assert.Equal(t, ae.RoleActionableAmendments, view.Tables[1].Role)

	stored, err := f.db.GetReviewSession(context.Background(), id, testUser.Email)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, view.HTML, stored.AIReviewHTML)
	assert.NotContains(t, stored.AIReviewHTML, "```")
	assert.Equal(t, "contracts/"+id+"/employment.pdf", stored.StorageKey)
	require.NotNil(t, stored.ReviewDate)
	assert.Equal(t, view.Session.ReviewDate, stored.ReviewDate)

	require.Len(t, f.agent.calls, 1)
	call := f.agent.calls[0]
	assert.Equal(t, core.FlowReview, call.Flow)
	assert.Equal(t, id, call.ChatID)
	assert.Equal(t, []core.Upload{{Type: "file:full", Name: "employment.pdf", Data: stored.OriginalText, Mime: ingestion_engine.MimePDF}}, call.Uploads)
	assert.Contains(t, call.Question, "We act for: Employer.")
	assert.Contains(t, call.Question, `Reference document "policy.docx":`+"\nNotice periods are mandatory.")
}

func TestSubmitRejectsUnsupportedFileBeforeCallingAgent(t *testing.T) {
	f := newFixture()
	_, err := NewReviewService(f.deps).Submit(context.Background(), testUser, SubmitInput{
		File: FileUpload{Name: "notes.txt", ContentType: "text/plain", Data: []byte("hi")},
	})
	assert.ErrorIs(t, err, ingestion_engine.ErrUnsupportedType)
	assert.Equal(t, http.StatusBadRequest, AsDomainError(err).Status)
	assert.Empty(t, f.agent.calls)
}

func TestSubmitRejectsInvalidEmail(t *testing.T) {
	f := newFixture()
	_, err := NewReviewService(f.deps).Submit(context.Background(), &models.User{Email: "not an email"}, SubmitInput{})
	require.Error(t, err)
	assert.Equal(t, CodeValidation, AsDomainError(err).Code)
}

func TestCommitPersistsOnlySelectedRows(t *testing.T) {
	f := newFixture()
	id := f.submit(t).Session.ContractReviewID
	svc := NewReviewService(f.deps)
	ctx := context.Background()

	view, err := svc.SaveSelection(ctx, testUser, id, ae.Selection{
		"1-0": {Selected: true},
		"1-1": {Selected: false},
		"1-2": {Selected: true, Note: "Governed by the laws of the Republic of Indonesia."},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, view.Selected)
	assert.Contains(t, view.HTML, `<textarea data-role="verification-note">Employee shall provide 30 days notice.</textarea>`)

	res, err := svc.Commit(ctx, testUser, id, "")
	require.NoError(t, err)

	require.Len(t, f.db.inserts, 1)
	payload := f.db.inserts[0]
	require.Len(t, payload, 2)
	assert.Equal(t, payload, res.Updates)

	assert.Equal(t, "Clause 4.2", payload[0].ContractualReference)
	assert.Equal(t, "Add notice period", payload[0].RecommendedLegalAmendment)
	assert.Equal(t, "Employee may resign at will", payload[0].OriginalClause)
	assert.Equal(t, "Employee shall provide 30 days notice.", payload[0].InputVerificationOfAmendments)
	assert.Equal(t, "Clause 9", payload[1].ContractualReference)
	assert.Equal(t, "Governed by the laws of the Republic of Indonesia.", payload[1].InputVerificationOfAmendments)
	for _, u := range payload {
		assert.Equal(t, id, u.ContractReviewID)
		assert.Equal(t, testUser.Email, u.UserEmail)
		assert.Equal(t, models.StatusPending, u.Status)
		assert.NotEmpty(t, u.ID)
	}
}

func TestCommitFromPostedMarkup(t *testing.T) {
	f := newFixture()
	id := f.submit(t).Session.ContractReviewID
	svc := NewReviewService(f.deps)
	ctx := context.Background()

	view, err := svc.SaveSelection(ctx, testUser, id, ae.Selection{"1-1": {Selected: true}})
	require.NoError(t, err)
	_, err = svc.SaveSelection(ctx, testUser, id, ae.Selection{})
	require.NoError(t, err)

	rows, err := svc.Extract(ctx, testUser, id, view.HTML)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Len(t, ae.SelectedRows(rows), 1)

	res, err := svc.Commit(ctx, testUser, id, view.HTML)
	require.NoError(t, err)
	require.Len(t, res.Updates, 1)
	assert.Equal(t, 0, res.Ignored)
	assert.Equal(t, "Clause 7", res.Updates[0].ContractualReference)
	assert.Equal(t, "Liability is capped at fees paid.", res.Updates[0].InputVerificationOfAmendments)
}

func TestPostedMarkupBecomesStoredSelection(t *testing.T) {
	f := newFixture()
	id := f.submit(t).Session.ContractReviewID
	svc := NewReviewService(f.deps)
	ctx := context.Background()

	view, err := svc.SaveSelection(ctx, testUser, id, ae.Selection{
		"1-0": {Selected: true, Note: "Thirty days, in writing."},
		"1-2": {Selected: true},
	})
	require.NoError(t, err)
	_, err = svc.SaveSelection(ctx, testUser, id, ae.Selection{})
	require.NoError(t, err)

	// Keys that are not rows of the stored review are dropped.
	posted := strings.Replace(view.HTML, `data-row="1-2"`, `data-row="9-9"`, 1)
	_, err = svc.Commit(ctx, testUser, id, posted)
	require.NoError(t, err)

	stored, err := f.deps.Selections.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, ae.Selection{"1-0": {Selected: true, Note: "Thirty days, in writing."}}, stored)

	got, err := svc.Get(ctx, testUser, id)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Selected)
	assert.Equal(t, "Thirty days, in writing.", got.Rows[0].VerificationNote)
}

func TestCommitReportsIgnoredRedundancyRows(t *testing.T) {
	f := newFixture()
	f.agent.answers[core.FlowReview] = strings.TrimSuffix(reviewAnswer, "\n```") + `
<h2>Redundancy Check</h2>
<table><tr><th>Clause</th><th>Note</th></tr><tr><td>Clause 3</td><td>Repeats clause 5</td></tr></table>` + "\n```"
	id := f.submit(t).Session.ContractReviewID
	svc := NewReviewService(f.deps)
	ctx := context.Background()

	_, err := svc.SaveSelection(ctx, testUser, id, ae.Selection{"2-0": {Selected: true}})
	require.NoError(t, err)
	_, err = svc.Commit(ctx, testUser, id, "")
	de := AsDomainError(err)
	assert.Equal(t, http.StatusUnprocessableEntity, de.Status)
	assert.Equal(t, map[string]any{"ignored": 1}, de.Details)

	_, err = svc.SaveSelection(ctx, testUser, id, ae.Selection{"1-0": {Selected: true}, "2-0": {Selected: true}})
	require.NoError(t, err)
	res, err := svc.Commit(ctx, testUser, id, "")
	require.NoError(t, err)
	assert.Len(t, res.Updates, 1)
	assert.Equal(t, 1, res.Ignored)
}

func TestCommitWithoutSelection(t *testing.T) {
	f := newFixture()
	id := f.submit(t).Session.ContractReviewID

	_, err := NewReviewService(f.deps).Commit(context.Background(), testUser, id, "")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, AsDomainError(err).Status)
	assert.Empty(t, f.db.inserts)
}

func TestCommitRejectedWhileInFlight(t *testing.T) {
	f := newFixture()
	id := f.submit(t).Session.ContractReviewID
	ctx := context.Background()

	release, err := f.deps.Selections.Acquire(ctx, id, "commit", time.Minute)
	require.NoError(t, err)
	defer release()

	_, err = NewReviewService(f.deps).Commit(ctx, testUser, id, "")
	assert.ErrorIs(t, err, core.ErrActionInFlight)
	assert.Equal(t, http.StatusConflict, AsDomainError(err).Status)
}

func TestCommitPersistenceFailureKeepsSession(t *testing.T) {
	f := newFixture()
	id := f.submit(t).Session.ContractReviewID
	svc := NewReviewService(f.deps)
	ctx := context.Background()

	_, err := svc.SaveSelection(ctx, testUser, id, ae.Selection{"1-0": {Selected: true}})
	require.NoError(t, err)
	f.db.failOn["InsertContractUpdates"] = &db.PersistenceError{Op: "insert contract updates", Code: "23505", Message: "duplicate key"}

	_, err = svc.Commit(ctx, testUser, id, "")
	de := AsDomainError(err)
	assert.Equal(t, CodePersistence, de.Code)
	assert.Equal(t, "duplicate key", de.Message)

	stored, err := f.db.GetReviewSession(ctx, id, testUser.Email)
	require.NoError(t, err)
	assert.NotNil(t, stored)
}

func TestSaveSelectionRejectsUnknownRows(t *testing.T) {
	f := newFixture()
	id := f.submit(t).Session.ContractReviewID

	_, err := NewReviewService(f.deps).SaveSelection(context.Background(), testUser, id, ae.Selection{"0-0": {Selected: true}, "1-9": {}})
	de := AsDomainError(err)
	assert.Equal(t, http.StatusBadRequest, de.Status)
	assert.Equal(t, map[string]any{"rows": []string{"0-0", "1-9"}}, de.Details)
}

func TestGetRendersStoredSelection(t *testing.T) {
	f := newFixture()
	id := f.submit(t).Session.ContractReviewID
	svc := NewReviewService(f.deps)
	ctx := context.Background()

	_, err := svc.SaveSelection(ctx, testUser, id, ae.Selection{"1-2": {Selected: true}})
	require.NoError(t, err)

	view, err := svc.Get(ctx, testUser, id)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Selected)
	assert.True(t, view.Rows[2].Selected)
	assert.False(t, view.Rows[0].Selected)
}

func TestGetScopesByUser(t *testing.T) {
	f := newFixture()
	id := f.submit(t).Session.ContractReviewID

	_, err := NewReviewService(f.deps).Get(context.Background(), &models.User{Email: "other@example.com"}, id)
	assert.Equal(t, http.StatusNotFound, AsDomainError(err).Status)

	_, err = NewReviewService(f.deps).Get(context.Background(), testUser, "short")
	assert.Equal(t, http.StatusBadRequest, AsDomainError(err).Status)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture()
	id := f.submit(t).Session.ContractReviewID
	svc := NewReviewService(f.deps)
	ctx := context.Background()

	require.NoError(t, svc.UpdateStatus(ctx, testUser, id, models.StatusCompleted))
	stored, _ := f.db.GetReviewSession(ctx, id, testUser.Email)
	assert.Equal(t, models.StatusCompleted, stored.Status)

	err := svc.UpdateStatus(ctx, testUser, id, "archived")
	assert.Equal(t, CodeValidation, AsDomainError(err).Code)
}
