package service

import (
	"context"
	"fmt"
	"time"

	"rentacar/internal/availability"
	"rentacar/internal/domain"
	"rentacar/internal/metrics"
	"rentacar/internal/models"

	"github.com/rs/zerolog"
)

// DraftService carries the booking flow's session state: the validated date
// and location query, then the priced draft once a car is selected.
type DraftService struct {
	drafts      domain.DraftRepository
	catalog     domain.CatalogRepository
	horizonDays int
	logger      *zerolog.Logger
}

func NewDraftService(drafts domain.DraftRepository, catalog domain.CatalogRepository, horizonDays int, logger *zerolog.Logger) *DraftService {
	if horizonDays <= 0 {
		horizonDays = models.DefaultHorizonDays
	}
	return &DraftService{
		drafts:      drafts,
		catalog:     catalog,
		horizonDays: horizonDays,
		logger:      logger,
	}
}

// SaveQuery validates the query against today's booking horizon and stores
// it. Validation failures come back as *models.ValidationError naming the
// first bad field.
func (s *DraftService) SaveQuery(ctx context.Context, sessionID string, query *models.BookingQuery) error {
	if err := query.Validate(models.Today(), s.horizonDays); err != nil {
		return err
	}

	if err := s.drafts.SaveQuery(ctx, sessionID, query); err != nil {
		return fmt.Errorf("failed to save booking query: %w", err)
	}

	metrics.IncDraftSaved("query")
	return nil
}

// LoadQuery returns the stored query, or nil when the session has none.
func (s *DraftService) LoadQuery(ctx context.Context, sessionID string) (*models.BookingQuery, error) {
	return s.drafts.LoadQuery(ctx, sessionID)
}

// SaveDraft selects a car for the session's stored query, re-checks its
// availability for the whole range, prices it and stores the draft. A later
// SaveDraft replaces the previous selection.
func (s *DraftService) SaveDraft(ctx context.Context, sessionID, delegationID, operation string) (*models.BookingDraft, error) {
	query, err := s.drafts.LoadQuery(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking query: %w", err)
	}
	if query == nil {
		return nil, ErrMissingQuery
	}

	car, err := s.catalog.GetCar(ctx, delegationID, operation)
	if err != nil {
		return nil, err
	}

	if len(availability.FilterAvailable([]models.Car{*car}, *query)) == 0 {
		return nil, ErrCarUnavailable
	}

	total, err := availability.ComputeTotal(*car, *query)
	if err != nil {
		return nil, err
	}

	draft := &models.BookingDraft{
		Car:            *car,
		TotalPrice:     total,
		StartDate:      query.StartDate,
		EndDate:        query.EndDate,
		PickupLocation: query.PickupLocation,
		ReturnLocation: query.EffectiveReturnLocation(),
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.drafts.SaveDraft(ctx, sessionID, draft); err != nil {
		return nil, fmt.Errorf("failed to save booking draft: %w", err)
	}

	metrics.IncDraftSaved("draft")
	return draft, nil
}

// LoadDraft returns the stored draft, or nil when the session has none.
func (s *DraftService) LoadDraft(ctx context.Context, sessionID string) (*models.BookingDraft, error) {
	return s.drafts.LoadDraft(ctx, sessionID)
}

// Clear drops both the query and the draft for the session.
func (s *DraftService) Clear(ctx context.Context, sessionID string) error {
	return s.drafts.Clear(ctx, sessionID)
}
