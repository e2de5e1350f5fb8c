package repository

import (
	"context"
	"sync"
	"time"

	"rentacar/internal/models"
)

// MemoryDraftRepository is the in-process fallback store. Entries expire
// lazily on read once their TTL passes.
type MemoryDraftRepository struct {
	queries sync.Map
	drafts  sync.Map
	ttl     time.Duration
}

type memoryEntry struct {
	value     interface{}
	expiresAt time.Time
}

func NewMemoryDraftRepository(ttl time.Duration) *MemoryDraftRepository {
	return &MemoryDraftRepository{
		ttl: ttl,
	}
}

func (r *MemoryDraftRepository) SaveQuery(ctx context.Context, sessionID string, query *models.BookingQuery) error {
	r.queries.Store(sessionID, r.entry(query))
	return nil
}

func (r *MemoryDraftRepository) LoadQuery(ctx context.Context, sessionID string) (*models.BookingQuery, error) {
	value, ok := r.load(&r.queries, sessionID)
	if !ok {
		return nil, nil
	}
	return value.(*models.BookingQuery), nil
}

func (r *MemoryDraftRepository) SaveDraft(ctx context.Context, sessionID string, draft *models.BookingDraft) error {
	r.drafts.Store(sessionID, r.entry(draft))
	return nil
}

func (r *MemoryDraftRepository) LoadDraft(ctx context.Context, sessionID string) (*models.BookingDraft, error) {
	value, ok := r.load(&r.drafts, sessionID)
	if !ok {
		return nil, nil
	}
	return value.(*models.BookingDraft), nil
}

func (r *MemoryDraftRepository) Clear(ctx context.Context, sessionID string) error {
	r.queries.Delete(sessionID)
	r.drafts.Delete(sessionID)
	return nil
}

func (r *MemoryDraftRepository) entry(value interface{}) *memoryEntry {
	e := &memoryEntry{value: value}
	if r.ttl > 0 {
		e.expiresAt = time.Now().Add(r.ttl)
	}
	return e
}

func (r *MemoryDraftRepository) load(m *sync.Map, sessionID string) (interface{}, bool) {
	raw, ok := m.Load(sessionID)
	if !ok {
		return nil, false
	}
	entry := raw.(*memoryEntry)
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		m.Delete(sessionID)
		return nil, false
	}
	return entry.value, true
}
