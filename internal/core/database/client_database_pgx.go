package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/Clausewise/internal/config"
	"github.com/markdave123-py/Clausewise/internal/core"
	"github.com/markdave123-py/Clausewise/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

var _ core.DbClient = (*DatabaseClient)(nil)

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	dsn, err := buildDSN(cfg.DatabaseURL, cfg.SslCertPath)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

// buildDSN appends CA verification to databaseURL when a certificate path is given.
func buildDSN(databaseURL, certPath string) (string, error) {
	if databaseURL == "" {
		return "", fmt.Errorf("DATABASE_URL is empty")
	}
	if certPath == "" {
		return databaseURL, nil
	}
	if _, err := os.Stat(certPath); err != nil {
		return "", fmt.Errorf("ssl cert not accessible at %q: %w", certPath, err)
	}

	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	q := u.Query()
	q.Set("sslmode", "verify-ca")
	q.Set("sslrootcert", certPath)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Ping checks that the database answers.
func (c *DatabaseClient) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Review sessions

const sessionColumns = `
	contract_review_id, user_email, user_role, session_token, contract_name,
	original_pdf_text, ai_review_html, status,
	revised_contract_text, revised_contract_plain_text,
	revised_contract_text_english, revised_contract_text_indonesian, revised_contract_text_bilingual,
	updates_text, storage_key, review_date, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (*models.ReviewSession, error) {
	var (
		s          models.ReviewSession
		reviewDate sql.NullTime
	)
	err := r.Scan(
		&s.ContractReviewID, &s.UserEmail, &s.UserRole, &s.SessionToken, &s.ContractName,
		&s.OriginalText, &s.AIReviewHTML, &s.Status,
		&s.RevisedContractText, &s.RevisedContractPlainText,
		&s.RevisedContractTextEnglish, &s.RevisedContractTextIndonesia, &s.RevisedContractTextBilingual,
		&s.UpdatesText, &s.StorageKey, &reviewDate, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if reviewDate.Valid {
		t := reviewDate.Time
		s.ReviewDate = &t
	}
	return &s, nil
}

func (c *DatabaseClient) CreateReviewSession(ctx context.Context, s *models.ReviewSession) error {
	if s == nil {
		return errors.New("nil review session")
	}
	const q = `
		INSERT INTO master_contract
			(contract_review_id, user_email, user_role, session_token, contract_name,
			 original_pdf_text, ai_review_html, status, storage_key, review_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING created_at, updated_at
	`
	err := c.db.QueryRowContext(ctx, q,
		s.ContractReviewID, s.UserEmail, s.UserRole, s.SessionToken, s.ContractName,
		s.OriginalText, s.AIReviewHTML, s.Status, s.StorageKey, s.ReviewDate,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	return wrapErr("create review session", err)
}

func (c *DatabaseClient) GetReviewSession(ctx context.Context, reviewID, email string) (*models.ReviewSession, error) {
	q := `SELECT ` + sessionColumns + `
		FROM master_contract
		WHERE contract_review_id = $1 AND user_email = $2
	`
	s, err := scanSession(c.db.QueryRowContext(ctx, q, reviewID, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("get review session", err)
	}
	return s, nil
}

func (c *DatabaseClient) ListReviewSessions(ctx context.Context, email string) ([]models.ReviewSession, error) {
	q := `SELECT ` + sessionColumns + `
		FROM master_contract
		WHERE user_email = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, email)
	if err != nil {
		return nil, wrapErr("list review sessions", err)
	}
	defer rows.Close()

	out := []models.ReviewSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, wrapErr("list review sessions", err)
		}
		out = append(out, *s)
	}
	return out, wrapErr("list review sessions", rows.Err())
}

func (c *DatabaseClient) UpdateReviewStatus(ctx context.Context, reviewID, email, status string) error {
	const q = `
		UPDATE master_contract
		SET status = $3, updated_at = now()
		WHERE contract_review_id = $1 AND user_email = $2
	`
	return c.execOne(ctx, "update review status", "review "+reviewID, q, reviewID, email, status)
}

// SaveRevisedContract overwrites the revised text and stamps the review date.
func (c *DatabaseClient) SaveRevisedContract(ctx context.Context, reviewID, email, html, plain, updatesText string) error {
	const q = `
		UPDATE master_contract
		SET revised_contract_text = $3,
		    revised_contract_plain_text = $4,
		    updates_text = $5,
		    review_date = now(),
		    updated_at = now()
		WHERE contract_review_id = $1 AND user_email = $2
	`
	return c.execOne(ctx, "save revised contract", "review "+reviewID, q, reviewID, email, html, plain, updatesText)
}

func (c *DatabaseClient) SaveTranslation(ctx context.Context, reviewID, email, language, text string) error {
	var column string
	switch language {
	case models.LanguageEnglish:
		column = "revised_contract_text_english"
	case models.LanguageIndonesian:
		column = "revised_contract_text_indonesian"
	case models.LanguageBilingual:
		column = "revised_contract_text_bilingual"
	default:
		return fmt.Errorf("unsupported translation language %q", language)
	}
	q := `
		UPDATE master_contract
		SET ` + column + ` = $3, updated_at = now()
		WHERE contract_review_id = $1 AND user_email = $2
	`
	return c.execOne(ctx, "save translation", "review "+reviewID, q, reviewID, email, text)
}

// Contract updates

// InsertContractUpdates inserts all updates in a single transaction.
func (c *DatabaseClient) InsertContractUpdates(ctx context.Context, updates []models.ContractUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return wrapErr("insert contract updates", err)
	}

	const q = `
		INSERT INTO contract_updates
			(id, user_email, contract_review_id, contractual_reference, recommended_legal_amendment,
			 original_clause, input_verification_of_amendments, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return wrapErr("insert contract updates", err)
	}
	defer stmt.Close()

	for i := range updates {
		u := &updates[i]
		if _, err := stmt.ExecContext(ctx,
			u.ID, u.UserEmail, u.ContractReviewID, u.ContractualReference, u.RecommendedLegalAmendment,
			u.OriginalClause, u.InputVerificationOfAmendments, u.Status,
		); err != nil {
			_ = tx.Rollback()
			return wrapErr("insert contract updates", err)
		}
	}
	return wrapErr("insert contract updates", tx.Commit())
}

func (c *DatabaseClient) ListContractUpdates(ctx context.Context, reviewID, email string) ([]models.ContractUpdate, error) {
	const q = `
		SELECT id, user_email, contract_review_id, contractual_reference, recommended_legal_amendment,
		       original_clause, input_verification_of_amendments, status, created_at, updated_at
		FROM contract_updates
		WHERE contract_review_id = $1 AND user_email = $2
		ORDER BY created_at ASC, id ASC
	`
	rows, err := c.db.QueryContext(ctx, q, reviewID, email)
	if err != nil {
		return nil, wrapErr("list contract updates", err)
	}
	defer rows.Close()

	out := []models.ContractUpdate{}
	for rows.Next() {
		var u models.ContractUpdate
		if err := rows.Scan(
			&u.ID, &u.UserEmail, &u.ContractReviewID, &u.ContractualReference, &u.RecommendedLegalAmendment,
			&u.OriginalClause, &u.InputVerificationOfAmendments, &u.Status, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, wrapErr("list contract updates", err)
		}
		out = append(out, u)
	}
	return out, wrapErr("list contract updates", rows.Err())
}

func (c *DatabaseClient) UpdateContractUpdateStatus(ctx context.Context, updateID, email, status string) error {
	const q = `
		UPDATE contract_updates
		SET status = $3, updated_at = now()
		WHERE id = $1 AND user_email = $2
	`
	return c.execOne(ctx, "update contract update status", "contract update "+updateID, q, updateID, email, status)
}

// Reference library

func (c *DatabaseClient) CreateReferenceDocument(ctx context.Context, doc *models.ReferenceDocument) error {
	if doc == nil {
		return errors.New("nil reference document")
	}
	const q = `
		INSERT INTO reference_documents
			(id, user_email, file_name, content_type, storage_key, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING created_at, updated_at
	`
	err := c.db.QueryRowContext(ctx, q,
		doc.ID, doc.UserEmail, doc.FileName, doc.ContentType, doc.StorageKey, doc.Status,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)
	return wrapErr("create reference document", err)
}

func (c *DatabaseClient) UpdateReferenceStatus(ctx context.Context, id, status string) error {
	const q = `
		UPDATE reference_documents
		SET status = $2, updated_at = now()
		WHERE id = $1
	`
	return c.execOne(ctx, "update reference status", "reference "+id, q, id, status)
}

func (c *DatabaseClient) ListReferenceDocuments(ctx context.Context, email string) ([]models.ReferenceDocument, error) {
	const q = `
		SELECT id, user_email, file_name, content_type, storage_key, status, created_at, updated_at
		FROM reference_documents
		WHERE user_email = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, email)
	if err != nil {
		return nil, wrapErr("list reference documents", err)
	}
	defer rows.Close()

	out := []models.ReferenceDocument{}
	for rows.Next() {
		var d models.ReferenceDocument
		if err := rows.Scan(
			&d.ID, &d.UserEmail, &d.FileName, &d.ContentType, &d.StorageKey, &d.Status, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, wrapErr("list reference documents", err)
		}
		out = append(out, d)
	}
	return out, wrapErr("list reference documents", rows.Err())
}

// InsertReferenceChunks inserts chunks in a single transaction.
func (c *DatabaseClient) InsertReferenceChunks(ctx context.Context, chunks []models.ReferenceChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return wrapErr("insert reference chunks", err)
	}

	const q = `
		INSERT INTO reference_chunks
			(id, reference_id, position, text, embedding, token_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return wrapErr("insert reference chunks", err)
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.ReferenceID, ch.Position, ch.Text, pgvector.NewVector(ch.Embedding), ch.TokenCount,
		); err != nil {
			_ = tx.Rollback()
			return wrapErr("insert reference chunks", err)
		}
	}
	return wrapErr("insert reference chunks", tx.Commit())
}

// SearchReferenceChunks finds the top-k chunks of the user's ready reference
// documents closest to queryVec.
func (c *DatabaseClient) SearchReferenceChunks(ctx context.Context, email string, queryVec []float32, limit int) ([]models.ReferenceChunk, error) {
	const q = `
		SELECT ch.id, ch.reference_id, ch.position, ch.text, ch.token_count
		FROM reference_chunks ch
		JOIN reference_documents d ON d.id = ch.reference_id
		WHERE d.user_email = $1 AND d.status = 'ready'
		ORDER BY ch.embedding <=> $2
		LIMIT $3
	`
	rows, err := c.db.QueryContext(ctx, q, email, pgvector.NewVector(queryVec), limit)
	if err != nil {
		return nil, wrapErr("search reference chunks", err)
	}
	defer rows.Close()

	var out []models.ReferenceChunk
	for rows.Next() {
		var ch models.ReferenceChunk
		if err := rows.Scan(&ch.ID, &ch.ReferenceID, &ch.Position, &ch.Text, &ch.TokenCount); err != nil {
			return nil, wrapErr("search reference chunks", err)
		}
		out = append(out, ch)
	}
	return out, wrapErr("search reference chunks", rows.Err())
}

// execOne runs an update that must touch exactly one row.
func (c *DatabaseClient) execOne(ctx context.Context, op, what, q string, args ...any) error {
	res, err := c.db.ExecContext(ctx, q, args...)
	if err != nil {
		return wrapErr(op, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return nil
}
