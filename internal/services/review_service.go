package services

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/Clausewise/internal/core"
	ae "github.com/markdave123-py/Clausewise/internal/core/annotation_engine"
	"github.com/markdave123-py/Clausewise/internal/core/ingestion_engine"
	objectclient "github.com/markdave123-py/Clausewise/internal/core/object-client"
	"github.com/markdave123-py/Clausewise/internal/logger"
	"github.com/markdave123-py/Clausewise/internal/models"
)

// SubmitInput is a contract review request.
type SubmitInput struct {
	File         FileUpload
	References   []FileUpload
	Party        string
	RiskAppetite string
	Jurisdiction string
	Language     string
}

// ReviewView is a review session with its annotated AI review rendered for
// the current selection.
type ReviewView struct {
	Session  *models.ReviewSession `json:"session"`
	HTML     string                `json:"html"`
	Tables   []ae.TableInfo        `json:"tables"`
	Rows     []ae.Row              `json:"rows"`
	Selected int                   `json:"selected"`
}

// CommitResult lists the contract updates written by Commit.
// Ignored counts selected rows outside the amendments table; only amendment
// rows become updates.
type CommitResult struct {
	ContractReviewID string                  `json:"contract_review_id"`
	Updates          []models.ContractUpdate `json:"updates"`
	Ignored          int                     `json:"ignored"`
}

type ReviewService struct {
	d       Deps
	prompts PromptBuilder
}

func NewReviewService(d Deps) *ReviewService {
	d.defaults()
	return &ReviewService{d: d}
}

// Submit extracts the contract, asks the agent for a review, annotates the
// answer and stores a new pending session.
func (s *ReviewService) Submit(ctx context.Context, user *models.User, in SubmitInput) (*ReviewView, error) {
	if err := checkUser(user); err != nil {
		return nil, err
	}
	if len(in.File.Data) == 0 {
		return nil, validationError("a contract file is required", nil)
	}
	if in.Language != "" && !validLanguage(in.Language) {
		return nil, validationError("language must be one of english, indonesian, bilingual", map[string]any{"language": in.Language})
	}

	ct, err := ingestion_engine.ContentType(in.File.Name, in.File.ContentType)
	if err != nil {
		return nil, err
	}
	refTypes := make([]string, len(in.References))
	for i, ref := range in.References {
		if refTypes[i], err = ingestion_engine.ContentType(ref.Name, ref.ContentType); err != nil {
			return nil, err
		}
	}

	reviewID, err := NewReviewID()
	if err != nil {
		return nil, fmt.Errorf("generate review id: %w", err)
	}
	ctx = logger.WithReviewID(ctx, reviewID)

	// The contract and its reference documents are converted concurrently.
	var contractText string
	refs := make([]NamedText, len(in.References))
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		text, err := ingestion_engine.ExtractAll(gctx, s.d.Extractor, in.File.Data, ct)
		if err != nil {
			return extractionError(in.File.Name, err)
		}
		contractText = text
		return nil
	})
	for i, ref := range in.References {
		g.Go(func() error {
			text, err := ingestion_engine.ExtractAll(gctx, s.d.Extractor, ref.Data, refTypes[i])
			if err != nil {
				return extractionError(ref.Name, err)
			}
			refs[i] = NamedText{Name: ref.Name, Text: text}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	related, err := s.d.Retriever.Related(ctx, user.Email, contractText)
	if err != nil {
		logger.Warn(ctx, "reference lookup failed, reviewing without it", "error", err)
		related = nil
	}

	prompt := s.prompts.Review(ReviewRequest{
		ContractName: in.File.Name,
		ContractText: contractText,
		Party:        in.Party,
		RiskAppetite: in.RiskAppetite,
		Jurisdiction: in.Jurisdiction,
		Language:     in.Language,
		References:   refs,
		Related:      related,
	})

	aiCtx, cancel := context.WithTimeout(ctx, s.d.AITimeout)
	defer cancel()
	answer, err := s.d.Agent.Ask(aiCtx, core.AgentRequest{
		Flow:     core.FlowReview,
		Question: prompt,
		ChatID:   reviewID,
		Uploads:  []core.Upload{{Type: "file:full", Name: in.File.Name, Data: contractText, Mime: ct}},
	})
	if err != nil {
		return nil, fmt.Errorf("review agent: %w", err)
	}

	doc, err := ae.Parse(StripCodeFences(answer))
	if err != nil {
		return nil, fmt.Errorf("parse review: %w", err)
	}
	controls := doc.Annotate()
	reviewHTML, err := doc.HTML()
	if err != nil {
		return nil, fmt.Errorf("render review: %w", err)
	}
	logger.Info(ctx, "review annotated", "tables", len(doc.Tables()), "controls", controls)

	now := time.Now().UTC()
	session := &models.ReviewSession{
		ContractReviewID: reviewID,
		UserEmail:        user.Email,
		UserRole:         user.Role,
		SessionToken:     user.SessionToken,
		ContractName:     in.File.Name,
		OriginalText:     contractText,
		AIReviewHTML:     reviewHTML,
		Status:           models.StatusPending,
		StorageKey:       s.d.archive(ctx, objectclient.Key("contracts", reviewID, in.File.Name), in.File.Data, ct),
		ReviewDate:       &now,
	}
	if err := s.d.DB.CreateReviewSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create review session: %w", err)
	}

	return &ReviewView{
		Session: session,
		HTML:    reviewHTML,
		Tables:  doc.Tables(),
		Rows:    doc.ExtractRows(),
	}, nil
}

// Get renders a stored review with its saved selection.
func (s *ReviewService) Get(ctx context.Context, user *models.User, reviewID string) (*ReviewView, error) {
	session, err := s.session(ctx, user, reviewID)
	if err != nil {
		return nil, err
	}
	sel, err := s.d.Selections.Load(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("load selection: %w", err)
	}
	return s.render(session, sel)
}

// SaveSelection replaces the stored selection and returns the review
// rendered with it.
func (s *ReviewService) SaveSelection(ctx context.Context, user *models.User, reviewID string, sel ae.Selection) (*ReviewView, error) {
	session, err := s.session(ctx, user, reviewID)
	if err != nil {
		return nil, err
	}

	doc, err := annotatedDocument(session)
	if err != nil {
		return nil, err
	}
	known := map[string]bool{}
	for _, k := range doc.RowKeys() {
		known[k] = true
	}
	var unknown []string
	for k := range sel {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, validationError("selection refers to rows that do not exist", map[string]any{"rows": unknown})
	}

	if err := s.d.Selections.Save(ctx, reviewID, sel); err != nil {
		return nil, fmt.Errorf("save selection: %w", err)
	}
	return s.render(session, sel)
}

// Extract reads row state from review markup posted by a client and keeps
// the posted selection as the stored one.
func (s *ReviewService) Extract(ctx context.Context, user *models.User, reviewID, markup string) ([]ae.Row, error) {
	session, err := s.session(ctx, user, reviewID)
	if err != nil {
		return nil, err
	}
	doc, _, err := s.adoptPosted(ctx, session, markup)
	if err != nil {
		return nil, err
	}
	return doc.ExtractRows(), nil
}

// Commit writes one contract update per selected row. Rows come from the
// posted markup when given, else from the stored selection.
func (s *ReviewService) Commit(ctx context.Context, user *models.User, reviewID, markup string) (*CommitResult, error) {
	session, err := s.session(ctx, user, reviewID)
	if err != nil {
		return nil, err
	}

	release, err := s.d.Selections.Acquire(ctx, reviewID, "commit", s.d.LockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		rows []ae.Row
		sel  ae.Selection
	)
	if markup != "" {
		var doc *ae.Document
		if doc, sel, err = s.adoptPosted(ctx, session, markup); err != nil {
			return nil, err
		}
		rows = doc.ExtractRows()
	} else {
		doc, err := annotatedDocument(session)
		if err != nil {
			return nil, err
		}
		if sel, err = s.d.Selections.Load(ctx, reviewID); err != nil {
			return nil, fmt.Errorf("load selection: %w", err)
		}
		rows = ae.RowsFromSelection(doc, sel)
	}

	selected := ae.SelectedRows(rows)
	ignored := ignoredRows(sel, selected)
	if ignored > 0 {
		logger.Warn(ctx, "selected rows outside the amendments table are not committed", "ignored", ignored)
	}

	updates := BuildUpdates(session, selected)
	if len(updates) == 0 {
		var details any
		if ignored > 0 {
			details = map[string]any{"ignored": ignored}
		}
		return nil, domainError(http.StatusUnprocessableEntity, CodeValidation, "select at least one amendment before committing", details)
	}
	if err := s.d.DB.InsertContractUpdates(ctx, updates); err != nil {
		return nil, fmt.Errorf("insert contract updates: %w", err)
	}
	logger.Info(ctx, "review committed", "rows", len(rows), "updates", len(updates))

	return &CommitResult{ContractReviewID: reviewID, Updates: updates, Ignored: ignored}, nil
}

// adoptPosted parses client markup and saves the selection it carries,
// restricted to rows of the stored review.
func (s *ReviewService) adoptPosted(ctx context.Context, session *models.ReviewSession, markup string) (*ae.Document, ae.Selection, error) {
	posted, err := ae.Parse(markup)
	if err != nil {
		return nil, nil, validationError("html could not be parsed", err.Error())
	}
	stored, err := annotatedDocument(session)
	if err != nil {
		return nil, nil, err
	}

	sel := ae.Selection{}
	read := posted.ReadSelection()
	for _, k := range stored.RowKeys() {
		if st, ok := read[k]; ok {
			sel[k] = st
		}
	}
	if err := s.d.Selections.Save(ctx, session.ContractReviewID, sel); err != nil {
		return nil, nil, fmt.Errorf("save selection: %w", err)
	}
	return posted, sel, nil
}

// ignoredRows counts rows selected in sel that are not among committed.
func ignoredRows(sel ae.Selection, committed []ae.Row) int {
	keys := make(map[string]bool, len(committed))
	for _, r := range committed {
		keys[r.Key] = true
	}
	n := 0
	for k, st := range sel {
		if st.Selected && !keys[k] {
			n++
		}
	}
	return n
}

// UpdateStatus sets the session status.
func (s *ReviewService) UpdateStatus(ctx context.Context, user *models.User, reviewID, status string) error {
	if err := checkUser(user); err != nil {
		return err
	}
	if err := checkReviewID(reviewID); err != nil {
		return err
	}
	if err := checkStatus(status); err != nil {
		return err
	}
	return s.d.DB.UpdateReviewStatus(ctx, reviewID, user.Email, status)
}

// BuildUpdates maps selected rows to pending contract updates.
func BuildUpdates(session *models.ReviewSession, rows []ae.Row) []models.ContractUpdate {
	out := make([]models.ContractUpdate, 0, len(rows))
	now := time.Now().UTC()
	for _, r := range rows {
		out = append(out, models.ContractUpdate{
			ID:                            uuid.NewString(),
			UserEmail:                     session.UserEmail,
			ContractReviewID:              session.ContractReviewID,
			ContractualReference:          r.Reference,
			RecommendedLegalAmendment:     r.RecommendedAmendment,
			OriginalClause:                r.OriginalClause,
			InputVerificationOfAmendments: r.VerificationNote,
			Status:                        models.StatusPending,
			CreatedAt:                     now,
			UpdatedAt:                     now,
		})
	}
	return out
}

func (s *ReviewService) session(ctx context.Context, user *models.User, reviewID string) (*models.ReviewSession, error) {
	return loadSession(ctx, s.d.DB, user, reviewID)
}

func (s *ReviewService) render(session *models.ReviewSession, sel ae.Selection) (*ReviewView, error) {
	doc, err := annotatedDocument(session)
	if err != nil {
		return nil, err
	}
	doc.ApplySelection(sel)
	out, err := doc.HTML()
	if err != nil {
		return nil, fmt.Errorf("render review: %w", err)
	}
	return &ReviewView{
		Session:  session,
		HTML:     out,
		Tables:   doc.Tables(),
		Rows:     doc.ExtractRows(),
		Selected: sel.Count(),
	}, nil
}

func annotatedDocument(session *models.ReviewSession) (*ae.Document, error) {
	doc, err := ae.Parse(session.AIReviewHTML)
	if err != nil {
		return nil, fmt.Errorf("parse stored review: %w", err)
	}
	doc.Annotate()
	return doc, nil
}

func loadSession(ctx context.Context, dbc core.DbClient, user *models.User, reviewID string) (*models.ReviewSession, error) {
	if err := checkUser(user); err != nil {
		return nil, err
	}
	if err := checkReviewID(reviewID); err != nil {
		return nil, err
	}
	session, err := dbc.GetReviewSession(ctx, reviewID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("get review session: %w", err)
	}
	if session == nil {
		return nil, notFound("contract review")
	}
	return session, nil
}

func validLanguage(l string) bool {
	switch l {
	case models.LanguageEnglish, models.LanguageIndonesian, models.LanguageBilingual:
		return true
	}
	return false
}
