package models

import (
	"time"
)

// Review statuses. They can be set freely; there are no transition rules.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusRejected   = "rejected"
)

// ValidStatus reports whether s is one of the known statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

// Translation targets for a revised contract.
const (
	LanguageEnglish    = "english"
	LanguageIndonesian = "indonesian"
	LanguageBilingual  = "bilingual"
)

// User is the identity a request runs as.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	SessionToken string `json:"-"`
}

// ReviewSession is one uploaded contract and everything generated from it.
type ReviewSession struct {
	ContractReviewID             string     `db:"contract_review_id" json:"contract_review_id"`
	UserEmail                    string     `db:"user_email" json:"user_email"`
	UserRole                     string     `db:"user_role" json:"user_role"`
	SessionToken                 string     `db:"session_token" json:"-"`
	ContractName                 string     `db:"contract_name" json:"contract_name"`
	OriginalText                 string     `db:"original_pdf_text" json:"original_text"`
	AIReviewHTML                 string     `db:"ai_review_html" json:"ai_review_html"`
	Status                       string     `db:"status" json:"status"`
	RevisedContractText          string     `db:"revised_contract_text" json:"revised_contract_text,omitempty"`
	RevisedContractPlainText     string     `db:"revised_contract_plain_text" json:"revised_contract_plain_text,omitempty"`
	RevisedContractTextEnglish   string     `db:"revised_contract_text_english" json:"revised_contract_text_english,omitempty"`
	RevisedContractTextIndonesia string     `db:"revised_contract_text_indonesian" json:"revised_contract_text_indonesian,omitempty"`
	RevisedContractTextBilingual string     `db:"revised_contract_text_bilingual" json:"revised_contract_text_bilingual,omitempty"`
	UpdatesText                  string     `db:"updates_text" json:"updates_text,omitempty"`
	StorageKey                   string     `db:"storage_key" json:"storage_key,omitempty"`
	ReviewDate                   *time.Time `db:"review_date" json:"review_date,omitempty"`
	CreatedAt                    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt                    time.Time  `db:"updated_at" json:"updated_at"`
}

// Translation returns the stored translation for language, or "".
func (s *ReviewSession) Translation(language string) string {
	switch language {
	case LanguageEnglish:
		return s.RevisedContractTextEnglish
	case LanguageIndonesian:
		return s.RevisedContractTextIndonesia
	case LanguageBilingual:
		return s.RevisedContractTextBilingual
	}
	return ""
}

// ContractUpdate is an accepted amendment, persisted at commit time.
type ContractUpdate struct {
	ID                            string    `db:"id" json:"id"`
	UserEmail                     string    `db:"user_email" json:"user_email"`
	ContractReviewID              string    `db:"contract_review_id" json:"contract_review_id"`
	ContractualReference          string    `db:"contractual_reference" json:"contractual_reference"`
	RecommendedLegalAmendment     string    `db:"recommended_legal_amendment" json:"recommended_legal_amendment"`
	OriginalClause                string    `db:"original_clause" json:"original_clause"`
	InputVerificationOfAmendments string    `db:"input_verification_of_amendments" json:"input_verification_of_amendments"`
	Status                        string    `db:"status" json:"status"`
	CreatedAt                     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt                     time.Time `db:"updated_at" json:"updated_at"`
}

// ReferenceDocument is a secondary document (regulation, policy, template)
// kept in the reference library.
type ReferenceDocument struct {
	ID          string    `db:"id" json:"id"`
	UserEmail   string    `db:"user_email" json:"user_email"`
	FileName    string    `db:"file_name" json:"file_name"`
	ContentType string    `db:"content_type" json:"content_type"`
	StorageKey  string    `db:"storage_key" json:"storage_key,omitempty"`
	Status      string    `db:"status" json:"status"` // uploaded | processing | ready | failed
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ReferenceChunk is one embedded text chunk of a ReferenceDocument.
type ReferenceChunk struct {
	ID          string    `db:"id" json:"id"`
	ReferenceID string    `db:"reference_id" json:"reference_id"`
	Position    int       `db:"position" json:"position"`
	Text        string    `db:"text" json:"text"`
	Embedding   []float32 `db:"embedding" json:"-"` // pgvector column
	TokenCount  int       `db:"token_count" json:"token_count"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Reference document statuses.
const (
	ReferenceUploaded   = "uploaded"
	ReferenceProcessing = "processing"
	ReferenceReady      = "ready"
	ReferenceFailed     = "failed"
)
