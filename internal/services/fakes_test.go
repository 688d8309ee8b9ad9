package services

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/Clausewise/internal/core"
	"github.com/markdave123-py/Clausewise/internal/models"
)

type memDB struct {
	mu       sync.Mutex
	sessions map[string]*models.ReviewSession
	updates  []models.ContractUpdate
	inserts  [][]models.ContractUpdate
	refs     []models.ReferenceDocument
	failOn   map[string]error
}

var _ core.DbClient = (*memDB)(nil)

func newMemDB() *memDB {
	return &memDB{sessions: map[string]*models.ReviewSession{}, failOn: map[string]error{}}
}

func (m *memDB) CreateReviewSession(_ context.Context, s *models.ReviewSession) error {
	if err := m.failOn["CreateReviewSession"]; err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ContractReviewID] = &cp
	return nil
}

func (m *memDB) GetReviewSession(_ context.Context, id, email string) (*models.ReviewSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.UserEmail != email {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memDB) ListReviewSessions(_ context.Context, email string) ([]models.ReviewSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ReviewSession
	for _, s := range m.sessions {
		if s.UserEmail == email {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContractReviewID < out[j].ContractReviewID })
	return out, nil
}

func (m *memDB) mutate(id, email string, fn func(*models.ReviewSession)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.UserEmail != email {
		return core.ErrNotFound
	}
	fn(s)
	return nil
}

func (m *memDB) UpdateReviewStatus(_ context.Context, id, email, status string) error {
	return m.mutate(id, email, func(s *models.ReviewSession) { s.Status = status })
}

func (m *memDB) SaveRevisedContract(_ context.Context, id, email, html, plain, updatesText string) error {
	return m.mutate(id, email, func(s *models.ReviewSession) {
		s.RevisedContractText, s.RevisedContractPlainText, s.UpdatesText = html, plain, updatesText
	})
}

func (m *memDB) SaveTranslation(_ context.Context, id, email, language, text string) error {
	return m.mutate(id, email, func(s *models.ReviewSession) {
		switch language {
		case models.LanguageEnglish:
			s.RevisedContractTextEnglish = text
		case models.LanguageIndonesian:
			s.RevisedContractTextIndonesia = text
		case models.LanguageBilingual:
			s.RevisedContractTextBilingual = text
		}
	})
}

func (m *memDB) InsertContractUpdates(_ context.Context, updates []models.ContractUpdate) error {
	if err := m.failOn["InsertContractUpdates"]; err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts = append(m.inserts, updates)
	m.updates = append(m.updates, updates...)
	return nil
}

func (m *memDB) ListContractUpdates(_ context.Context, id, email string) ([]models.ContractUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ContractUpdate{}
	for _, u := range m.updates {
		if u.ContractReviewID == id && u.UserEmail == email {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memDB) UpdateContractUpdateStatus(_ context.Context, updateID, email, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.updates {
		if m.updates[i].ID == updateID && m.updates[i].UserEmail == email {
			m.updates[i].Status = status
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memDB) CreateReferenceDocument(_ context.Context, doc *models.ReferenceDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs = append(m.refs, *doc)
	return nil
}

func (m *memDB) UpdateReferenceStatus(context.Context, string, string) error { return nil }

func (m *memDB) ListReferenceDocuments(_ context.Context, email string) ([]models.ReferenceDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ReferenceDocument
	for _, r := range m.refs {
		if r.UserEmail == email {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memDB) InsertReferenceChunks(context.Context, []models.ReferenceChunk) error { return nil }

func (m *memDB) SearchReferenceChunks(context.Context, string, []float32, int) ([]models.ReferenceChunk, error) {
	return nil, nil
}

func (m *memDB) Close() error { return nil }

// fakeAgent answers every flow with a fixed reply and records requests.
type fakeAgent struct {
	mu      sync.Mutex
	answers map[core.Flow]string
	err     error
	calls   []core.AgentRequest
}

func (a *fakeAgent) Ask(_ context.Context, req core.AgentRequest) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, req)
	if a.err != nil {
		return "", a.err
	}
	return a.answers[req.Flow], nil
}

// textExtractor treats every upload as UTF-8 text.
type textExtractor struct{}

func (textExtractor) ExtractText(ctx context.Context, g *errgroup.Group, r []byte, _ string) (<-chan string, error) {
	out := make(chan string)
	g.Go(func() error {
		defer close(out)
		for _, l := range strings.Split(string(r), "\n") {
			if l = strings.TrimSpace(l); l == "" {
				continue
			}
			select {
			case out <- l:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	return out, nil
}

type memObjects struct {
	mu   sync.Mutex
	keys []string
}

func (o *memObjects) UploadFile(_ context.Context, bucket, key string, _ []byte, _ string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.keys = append(o.keys, key)
	return "mem://" + bucket + "/" + key, nil
}

func (o *memObjects) DeleteFile(context.Context, string, string) error { return nil }

func (o *memObjects) GetFile(context.Context, string, string) ([]byte, error) { return nil, nil }

func (o *memObjects) GetObjectReader(context.Context, string, string) (io.ReadCloser, error) {
	return nil, nil
}

var _ core.ObjectClient = (*memObjects)(nil)
