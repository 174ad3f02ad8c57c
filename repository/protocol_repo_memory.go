package repository

import (
	"context"
	"sync"

	"uebergabe/models"
)

// MemoryProtocolRepo keeps everything in process. Used for DB_TYPE=memory
// and in tests.
type MemoryProtocolRepo struct {
	Clock Clock

	mu      sync.RWMutex
	draft   *models.Document
	history map[string]*models.HistoryEntry
}

func NewMemoryProtocolRepo() *MemoryProtocolRepo {
	return &MemoryProtocolRepo{history: make(map[string]*models.HistoryEntry)}
}

func (r *MemoryProtocolRepo) SaveDraft(ctx context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draft = doc.Clone()
	return nil
}

func (r *MemoryProtocolRepo) LoadDraft(ctx context.Context) (*models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.draft.Clone(), nil
}

func (r *MemoryProtocolRepo) DeleteDraft(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draft = nil
	return nil
}

func (r *MemoryProtocolRepo) UpsertHistoryEntry(ctx context.Context, doc *models.Document, status models.Status, artifactRef *string) (*models.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := models.MergeHistoryEntry(r.history[doc.ID], doc, status, artifactRef, r.Clock.now())
	r.history[e.ID] = e
	return copyEntry(e), nil
}

func (r *MemoryProtocolRepo) ListHistory(ctx context.Context) ([]*models.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]*models.HistoryEntry, 0, len(r.history))
	for _, e := range r.history {
		entries = append(entries, copyEntry(e))
	}
	sortByRecency(entries)
	return entries, nil
}

func (r *MemoryProtocolRepo) GetHistoryEntry(ctx context.Context, id string) (*models.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.history[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyEntry(e), nil
}

func (r *MemoryProtocolRepo) DeleteHistoryEntry(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.history[id]; !ok {
		return ErrNotFound
	}
	delete(r.history, id)
	return nil
}

func copyEntry(e *models.HistoryEntry) *models.HistoryEntry {
	c := *e
	c.Document = *e.Document.Clone()
	return &c
}
