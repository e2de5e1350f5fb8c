package service

import (
	"context"
	"fmt"

	"rentacar/internal/availability"
	"rentacar/internal/domain"
	"rentacar/internal/metrics"
	"rentacar/internal/models"

	"github.com/rs/zerolog"
)

// CatalogService exposes the car and delegation catalog plus the
// availability search and pricing built on top of it.
type CatalogService struct {
	catalog domain.CatalogRepository
	logger  *zerolog.Logger
}

func NewCatalogService(catalog domain.CatalogRepository, logger *zerolog.Logger) *CatalogService {
	return &CatalogService{
		catalog: catalog,
		logger:  logger,
	}
}

func (s *CatalogService) ListCars(ctx context.Context) ([]models.Car, error) {
	return s.catalog.GetAllCars(ctx)
}

func (s *CatalogService) ListDelegations(ctx context.Context) ([]models.Delegation, error) {
	return s.catalog.GetAllDelegations(ctx)
}

func (s *CatalogService) GetCar(ctx context.Context, delegationID, operation string) (*models.Car, error) {
	return s.catalog.GetCar(ctx, delegationID, operation)
}

// SearchAvailable returns the cars of the pickup delegation that are free on
// every day of the query's range, in catalog order.
func (s *CatalogService) SearchAvailable(ctx context.Context, query models.BookingQuery) ([]models.Car, error) {
	cars, err := s.catalog.GetCarsByDelegation(ctx, query.PickupLocation)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	metrics.IncAvailabilitySearch()
	return availability.FilterAvailable(cars, query), nil
}

// Quote prices a specific car for the query's range without touching any
// session state.
func (s *CatalogService) Quote(ctx context.Context, delegationID, operation string, query models.BookingQuery) (float64, error) {
	car, err := s.catalog.GetCar(ctx, delegationID, operation)
	if err != nil {
		return 0, err
	}
	return availability.ComputeTotal(*car, query)
}
