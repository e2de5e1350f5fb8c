package service

import (
	"context"
	"testing"
	"time"

	"rentacar/internal/models"
	"rentacar/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func validQuery() *models.BookingQuery {
	today := models.Today()
	return &models.BookingQuery{
		StartDate:      today.AddDays(7),
		EndDate:        today.AddDays(9),
		PickupLocation: "DELEG#001",
		ReturnLocation: "DELEG#002",
	}
}

func newDraftService(catalog *mockCatalog) (*DraftService, *repository.MemoryDraftRepository) {
	drafts := repository.NewMemoryDraftRepository(time.Hour)
	return NewDraftService(drafts, catalog, models.DefaultHorizonDays, testLogger()), drafts
}

func TestSaveQueryValid(t *testing.T) {
	svc, drafts := newDraftService(&mockCatalog{})
	ctx := context.Background()

	query := validQuery()
	require.NoError(t, svc.SaveQuery(ctx, "session-1", query))

	stored, err := drafts.LoadQuery(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, query, stored)
}

func TestSaveQueryInvalidNotStored(t *testing.T) {
	svc, drafts := newDraftService(&mockCatalog{})
	ctx := context.Background()

	query := validQuery()
	query.StartDate = models.Today().AddDays(-1)

	err := svc.SaveQuery(ctx, "session-1", query)
	require.Error(t, err)

	var vErr *models.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "start_date", vErr.Field)

	stored, err := drafts.LoadQuery(ctx, "session-1")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestSaveQueryBeyondHorizon(t *testing.T) {
	svc, _ := newDraftService(&mockCatalog{})

	query := validQuery()
	query.StartDate = models.Today().AddDays(models.DefaultHorizonDays + 1)
	query.EndDate = query.StartDate.AddDays(1)

	var vErr *models.ValidationError
	err := svc.SaveQuery(context.Background(), "session-1", query)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "start_date", vErr.Field)
}

func TestSaveDraftWithoutQuery(t *testing.T) {
	svc, _ := newDraftService(&mockCatalog{})

	_, err := svc.SaveDraft(context.Background(), "session-1", "DELEG#001", "car#1")
	assert.ErrorIs(t, err, ErrMissingQuery)
}

func TestSaveDraftPricesAndStores(t *testing.T) {
	catalog := &mockCatalog{}
	svc, drafts := newDraftService(catalog)
	ctx := context.Background()

	query := validQuery()
	require.NoError(t, svc.SaveQuery(ctx, "session-1", query))

	car := testCar("DELEG#001")
	catalog.On("GetCar", mock.Anything, "DELEG#001", "car#1").Return(car, nil)

	draft, err := svc.SaveDraft(ctx, "session-1", "DELEG#001", "car#1")
	require.NoError(t, err)

	// Three inclusive days at 45/day.
	assert.Equal(t, 135.0, draft.TotalPrice)
	assert.Equal(t, query.StartDate, draft.StartDate)
	assert.Equal(t, query.EndDate, draft.EndDate)
	assert.Equal(t, "DELEG#002", draft.ReturnLocation)

	stored, err := drafts.LoadDraft(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, draft, stored)
}

func TestSaveDraftSameLocationReturn(t *testing.T) {
	catalog := &mockCatalog{}
	svc, _ := newDraftService(catalog)
	ctx := context.Background()

	query := validQuery()
	query.ReturnLocation = ""
	query.SameLocation = true
	require.NoError(t, svc.SaveQuery(ctx, "session-1", query))

	catalog.On("GetCar", mock.Anything, "DELEG#001", "car#1").Return(testCar("DELEG#001"), nil)

	draft, err := svc.SaveDraft(ctx, "session-1", "DELEG#001", "car#1")
	require.NoError(t, err)
	assert.Equal(t, "DELEG#001", draft.ReturnLocation)
}

func TestSaveDraftBlockedDay(t *testing.T) {
	catalog := &mockCatalog{}
	svc, drafts := newDraftService(catalog)
	ctx := context.Background()

	query := validQuery()
	require.NoError(t, svc.SaveQuery(ctx, "session-1", query))

	car := testCar("DELEG#001")
	car.BookingDates[query.StartDate.AddDays(1).String()] = string(models.CarRented)
	catalog.On("GetCar", mock.Anything, "DELEG#001", "car#1").Return(car, nil)

	_, err := svc.SaveDraft(ctx, "session-1", "DELEG#001", "car#1")
	assert.ErrorIs(t, err, ErrCarUnavailable)

	stored, err := drafts.LoadDraft(ctx, "session-1")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestSaveDraftWrongDelegation(t *testing.T) {
	catalog := &mockCatalog{}
	svc, _ := newDraftService(catalog)
	ctx := context.Background()

	require.NoError(t, svc.SaveQuery(ctx, "session-1", validQuery()))

	catalog.On("GetCar", mock.Anything, "DELEG#005", "car#1").Return(testCar("DELEG#005"), nil)

	_, err := svc.SaveDraft(ctx, "session-1", "DELEG#005", "car#1")
	assert.ErrorIs(t, err, ErrCarUnavailable)
}

func TestSaveDraftReplacesPrevious(t *testing.T) {
	catalog := &mockCatalog{}
	svc, _ := newDraftService(catalog)
	ctx := context.Background()

	require.NoError(t, svc.SaveQuery(ctx, "session-1", validQuery()))

	first := testCar("DELEG#001")
	second := testCar("DELEG#001")
	second.Operation = "car#2"
	second.CarID = "CAR#200"
	second.PricePerDay = 60

	catalog.On("GetCar", mock.Anything, "DELEG#001", "car#1").Return(first, nil)
	catalog.On("GetCar", mock.Anything, "DELEG#001", "car#2").Return(second, nil)

	_, err := svc.SaveDraft(ctx, "session-1", "DELEG#001", "car#1")
	require.NoError(t, err)

	draft, err := svc.SaveDraft(ctx, "session-1", "DELEG#001", "car#2")
	require.NoError(t, err)
	assert.Equal(t, "CAR#200", draft.Car.CarID)
	assert.Equal(t, 180.0, draft.TotalPrice)

	stored, err := svc.LoadDraft(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, "CAR#200", stored.Car.CarID)
}

func TestClearDropsQueryAndDraft(t *testing.T) {
	catalog := &mockCatalog{}
	svc, _ := newDraftService(catalog)
	ctx := context.Background()

	require.NoError(t, svc.SaveQuery(ctx, "session-1", validQuery()))
	catalog.On("GetCar", mock.Anything, "DELEG#001", "car#1").Return(testCar("DELEG#001"), nil)
	_, err := svc.SaveDraft(ctx, "session-1", "DELEG#001", "car#1")
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, "session-1"))

	query, err := svc.LoadQuery(ctx, "session-1")
	require.NoError(t, err)
	assert.Nil(t, query)

	draft, err := svc.LoadDraft(ctx, "session-1")
	require.NoError(t, err)
	assert.Nil(t, draft)
}
