package repository

import (
	"context"
	"sync/atomic"
	"time"

	"rentacar/internal/domain"
	"rentacar/internal/models"

	"github.com/rs/zerolog"
)

// FailoverDraftRepository serves drafts from the primary store (Redis) and
// falls back to the in-memory store when the primary errors. The primary is
// retried after a cool-down.
type FailoverDraftRepository struct {
	primary   domain.DraftRepository
	fallback  domain.DraftRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

const recoveryInterval = time.Minute

func NewFailoverDraftRepository(primary, fallback domain.DraftRepository, logger *zerolog.Logger) *FailoverDraftRepository {
	return &FailoverDraftRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverDraftRepository) SaveQuery(ctx context.Context, sessionID string, query *models.BookingQuery) error {
	return r.write(func(repo domain.DraftRepository) error {
		return repo.SaveQuery(ctx, sessionID, query)
	})
}

func (r *FailoverDraftRepository) LoadQuery(ctx context.Context, sessionID string) (*models.BookingQuery, error) {
	if repo, primary := r.pick(); primary {
		query, err := repo.LoadQuery(ctx, sessionID)
		if err == nil {
			return query, nil
		}
		r.markDown(err)
	}
	return r.fallback.LoadQuery(ctx, sessionID)
}

func (r *FailoverDraftRepository) SaveDraft(ctx context.Context, sessionID string, draft *models.BookingDraft) error {
	return r.write(func(repo domain.DraftRepository) error {
		return repo.SaveDraft(ctx, sessionID, draft)
	})
}

func (r *FailoverDraftRepository) LoadDraft(ctx context.Context, sessionID string) (*models.BookingDraft, error) {
	if repo, primary := r.pick(); primary {
		draft, err := repo.LoadDraft(ctx, sessionID)
		if err == nil {
			return draft, nil
		}
		r.markDown(err)
	}
	return r.fallback.LoadDraft(ctx, sessionID)
}

func (r *FailoverDraftRepository) Clear(ctx context.Context, sessionID string) error {
	// Clear both stores so a recovered primary cannot resurrect state the
	// user already abandoned.
	var primaryErr error
	if repo, primary := r.pick(); primary {
		if primaryErr = repo.Clear(ctx, sessionID); primaryErr != nil {
			r.markDown(primaryErr)
		}
	}
	if err := r.fallback.Clear(ctx, sessionID); err != nil {
		return err
	}
	if primaryErr != nil && r.isDown.Load() {
		// Fallback cleared; treat as success, primary entry will expire
		// by TTL.
		return nil
	}
	return primaryErr
}

func (r *FailoverDraftRepository) write(op func(domain.DraftRepository) error) error {
	if repo, primary := r.pick(); primary {
		if err := op(repo); err == nil {
			return nil
		} else {
			r.markDown(err)
		}
	}
	return op(r.fallback)
}

// pick returns the repository to try first and whether it is the primary.
func (r *FailoverDraftRepository) pick() (domain.DraftRepository, bool) {
	if !r.isDown.Load() {
		return r.primary, true
	}
	// Retry the primary after the cool-down.
	last := time.Unix(0, r.lastCheck.Load())
	if time.Since(last) > recoveryInterval {
		r.isDown.Store(false)
		return r.primary, true
	}
	return r.fallback, false
}

func (r *FailoverDraftRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary draft repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}
