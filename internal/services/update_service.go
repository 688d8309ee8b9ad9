package services

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/markdave123-py/Clausewise/internal/core"
	"github.com/markdave123-py/Clausewise/internal/core/export"
	"github.com/markdave123-py/Clausewise/internal/logger"
	"github.com/markdave123-py/Clausewise/internal/models"
)

// Download variants.
const (
	VariantRevised = "revised"
	VariantReview  = "review"
)

// UpdatesView is a session with its committed updates.
type UpdatesView struct {
	Session *models.ReviewSession   `json:"session"`
	Updates []models.ContractUpdate `json:"updates"`
}

// TranslationResult is a stored translation of the revised contract.
type TranslationResult struct {
	ContractReviewID string `json:"contract_review_id"`
	Language         string `json:"language"`
	Text             string `json:"text"`
}

// ChangesView compares the original contract with its revision.
type ChangesView struct {
	ContractReviewID string     `json:"contract_review_id"`
	ContractName     string     `json:"contract_name"`
	ReviewDate       *time.Time `json:"review_date,omitempty"`
	OriginalText     string     `json:"original_text"`
	RevisedText      string     `json:"revised_text"`
	UpdatesText      string     `json:"updates_text"`
	Diff             string     `json:"diff"`
}

type UpdateService struct {
	d       Deps
	prompts PromptBuilder
}

func NewUpdateService(d Deps) *UpdateService {
	d.defaults()
	return &UpdateService{d: d}
}

func (s *UpdateService) Get(ctx context.Context, user *models.User, reviewID string) (*UpdatesView, error) {
	session, err := loadSession(ctx, s.d.DB, user, reviewID)
	if err != nil {
		return nil, err
	}
	updates, err := s.d.DB.ListContractUpdates(ctx, reviewID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("list contract updates: %w", err)
	}
	return &UpdatesView{Session: session, Updates: updates}, nil
}

// SetUpdateStatus changes one contract update's status. It is independent
// of the session status.
func (s *UpdateService) SetUpdateStatus(ctx context.Context, user *models.User, updateID, status string) error {
	if err := checkUser(user); err != nil {
		return err
	}
	if _, err := uuid.Parse(updateID); err != nil {
		return validationError("update id must be a UUID", map[string]any{"id": updateID})
	}
	if err := checkStatus(status); err != nil {
		return err
	}
	return s.d.DB.UpdateContractUpdateStatus(ctx, updateID, user.Email, status)
}

// Revise asks the agent for the full contract with every committed update
// applied, and stores it on the session.
func (s *UpdateService) Revise(ctx context.Context, user *models.User, reviewID string) (*models.ReviewSession, error) {
	session, err := loadSession(ctx, s.d.DB, user, reviewID)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithReviewID(ctx, reviewID)

	release, err := s.d.Selections.Acquire(ctx, reviewID, "revise", s.d.LockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	updates, err := s.d.DB.ListContractUpdates(ctx, reviewID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("list contract updates: %w", err)
	}
	if len(updates) == 0 {
		return nil, domainError(http.StatusUnprocessableEntity, CodeValidation, "no contract updates found; commit the review first", nil)
	}

	aiCtx, cancel := context.WithTimeout(ctx, s.d.AITimeout)
	defer cancel()
	answer, err := s.d.Agent.Ask(aiCtx, core.AgentRequest{
		Flow:     core.FlowRevision,
		Question: s.prompts.Revision(session.OriginalText, updates),
		ChatID:   reviewID,
	})
	if err != nil {
		return nil, fmt.Errorf("revision agent: %w", err)
	}

	revised := StripCodeFences(answer)
	plain, err := plainText(revised)
	if err != nil {
		return nil, err
	}
	updatesText := s.prompts.UpdatesText(updates)

	if err := s.d.DB.SaveRevisedContract(ctx, reviewID, user.Email, revised, plain, updatesText); err != nil {
		return nil, fmt.Errorf("save revised contract: %w", err)
	}
	logger.Info(ctx, "revised contract saved", "updates", len(updates), "chars", len(revised))

	session.RevisedContractText = revised
	session.RevisedContractPlainText = plain
	session.UpdatesText = updatesText
	return session, nil
}

// Translate translates the revised contract and stores the result.
func (s *UpdateService) Translate(ctx context.Context, user *models.User, reviewID, language string) (*TranslationResult, error) {
	language = strings.ToLower(strings.TrimSpace(language))
	flow, _, err := s.prompts.Translation(language, "")
	if err != nil {
		return nil, err
	}
	session, err := loadSession(ctx, s.d.DB, user, reviewID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(session.RevisedContractText) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, CodeValidation, "generate the revised contract before translating it", nil)
	}
	ctx = logger.WithReviewID(ctx, reviewID)

	release, err := s.d.Selections.Acquire(ctx, reviewID, "translate", s.d.LockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	_, prompt, _ := s.prompts.Translation(language, session.RevisedContractText)

	aiCtx, cancel := context.WithTimeout(ctx, s.d.AITimeout)
	defer cancel()
	answer, err := s.d.Agent.Ask(aiCtx, core.AgentRequest{Flow: flow, Question: prompt, ChatID: reviewID})
	if err != nil {
		return nil, fmt.Errorf("translation agent: %w", err)
	}

	text := StripCodeFences(answer)
	if err := s.d.DB.SaveTranslation(ctx, reviewID, user.Email, language, text); err != nil {
		return nil, fmt.Errorf("save translation: %w", err)
	}
	return &TranslationResult{ContractReviewID: reviewID, Language: language, Text: text}, nil
}

// Download exports the revised contract, one of its translations or the AI
// review.
func (s *UpdateService) Download(ctx context.Context, user *models.User, reviewID, format, variant string) (*export.Result, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	session, err := loadSession(ctx, s.d.DB, user, reviewID)
	if err != nil {
		return nil, err
	}

	title := "Revised Contract - " + contractTitle(session)
	var content string
	switch variant {
	case "", VariantRevised:
		content = session.RevisedContractText
	case VariantReview:
		title = "Contract Review - " + contractTitle(session)
		content = session.AIReviewHTML
	case models.LanguageEnglish, models.LanguageIndonesian, models.LanguageBilingual:
		title += " (" + variant + ")"
		content = session.Translation(variant)
	default:
		return nil, validationError("variant must be revised, review, english, indonesian or bilingual", map[string]any{"variant": variant})
	}

	res, err := s.d.Exporter.Export(ctx, export.Request{
		Title:       title,
		Text:        content,
		Format:      f,
		GeneratedAt: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	s.d.archive(ctx, path.Join("exports", reviewID, res.Filename), res.Data, res.MimeType)
	return res, nil
}

// Tracking lists the user's reviews, newest first.
func (s *UpdateService) Tracking(ctx context.Context, user *models.User) ([]models.ReviewSession, error) {
	if err := checkUser(user); err != nil {
		return nil, err
	}
	sessions, err := s.d.DB.ListReviewSessions(ctx, user.Email)
	if err != nil {
		return nil, fmt.Errorf("list review sessions: %w", err)
	}
	return sessions, nil
}

// Changes returns the original and revised text side by side with a
// unified diff.
func (s *UpdateService) Changes(ctx context.Context, user *models.User, reviewID string) (*ChangesView, error) {
	session, err := loadSession(ctx, s.d.DB, user, reviewID)
	if err != nil {
		return nil, err
	}
	diff, err := UnifiedDiff(session.OriginalText, session.RevisedContractPlainText)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	return &ChangesView{
		ContractReviewID: session.ContractReviewID,
		ContractName:     session.ContractName,
		ReviewDate:       session.ReviewDate,
		OriginalText:     session.OriginalText,
		RevisedText:      session.RevisedContractPlainText,
		UpdatesText:      session.UpdatesText,
		Diff:             diff,
	}, nil
}

// UnifiedDiff is a line diff of original against revised, "" when either is
// missing.
func UnifiedDiff(original, revised string) (string, error) {
	if original == "" || revised == "" {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(revised),
		FromFile: "original",
		ToFile:   "revised",
		Context:  3,
	})
}

func plainText(s string) (string, error) {
	if !export.LooksLikeHTML(s) {
		return s, nil
	}
	text, err := export.HTMLToText(s)
	if err != nil {
		return "", fmt.Errorf("revised contract to text: %w", err)
	}
	return text, nil
}

func contractTitle(s *models.ReviewSession) string {
	name := strings.TrimSuffix(s.ContractName, path.Ext(s.ContractName))
	if name == "" {
		return "Contract"
	}
	return name
}
