package service

import (
	"context"
	"os"
	"time"

	"rentacar/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
)

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) GetAllCars(ctx context.Context) ([]models.Car, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Car), args.Error(1)
}

func (m *mockCatalog) GetCarsByDelegation(ctx context.Context, delegationID string) ([]models.Car, error) {
	args := m.Called(ctx, delegationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Car), args.Error(1)
}

func (m *mockCatalog) GetCar(ctx context.Context, delegationID, operation string) (*models.Car, error) {
	args := m.Called(ctx, delegationID, operation)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Car), args.Error(1)
}

func (m *mockCatalog) SaveCar(ctx context.Context, car *models.Car) error {
	return m.Called(ctx, car).Error(0)
}

func (m *mockCatalog) SetCalendarStatus(ctx context.Context, delegationID, operation string, date models.Date, status string) error {
	return m.Called(ctx, delegationID, operation, date, status).Error(0)
}

func (m *mockCatalog) ClearCalendarStatus(ctx context.Context, delegationID, operation string, date models.Date) error {
	return m.Called(ctx, delegationID, operation, date).Error(0)
}

func (m *mockCatalog) GetAllDelegations(ctx context.Context) ([]models.Delegation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Delegation), args.Error(1)
}

func (m *mockCatalog) GetDelegation(ctx context.Context, delegationID string) (*models.Delegation, error) {
	args := m.Called(ctx, delegationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Delegation), args.Error(1)
}

func (m *mockCatalog) SaveDelegation(ctx context.Context, delegation *models.Delegation) error {
	return m.Called(ctx, delegation).Error(0)
}

type mockBookings struct {
	mock.Mock
}

func (m *mockBookings) CreateBooking(ctx context.Context, booking *models.Booking) error {
	args := m.Called(ctx, booking)
	if args.Error(0) == nil && booking.ID == "" {
		booking.ID = "booking-1"
	}
	return args.Error(0)
}

func (m *mockBookings) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockBookings) GetUserBookings(ctx context.Context, userID string) ([]*models.Booking, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}

func (m *mockBookings) GetBookingsByDateRange(ctx context.Context, start, end models.Date) ([]*models.Booking, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}

func (m *mockBookings) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockBookings) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

type mockSyncWorker struct {
	mock.Mock
}

func (m *mockSyncWorker) EnqueueAppend(ctx context.Context, booking *models.Booking) error {
	return m.Called(ctx, booking).Error(0)
}

func (m *mockSyncWorker) EnqueueStatusUpdate(ctx context.Context, bookingID string, status string) error {
	return m.Called(ctx, bookingID, status).Error(0)
}

func (m *mockSyncWorker) EnqueueExport(ctx context.Context, start, end models.Date) error {
	return m.Called(ctx, start, end).Error(0)
}

func (m *mockSyncWorker) EnqueueResync(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyBookingReserved(ctx context.Context, booking *models.Booking) error {
	return m.Called(ctx, booking).Error(0)
}

func (m *mockNotifier) NotifyBookingCancelled(ctx context.Context, booking *models.Booking) error {
	return m.Called(ctx, booking).Error(0)
}

func testLogger() *zerolog.Logger {
	logger := zerolog.New(os.Stdout)
	return &logger
}

func testCar(delegationID string) *models.Car {
	return &models.Car{
		DelegationID: delegationID,
		Operation:    "car#1",
		CarID:        "CAR#100",
		Make:         "Seat",
		Model:        "Ibiza",
		Year:         "2021",
		Color:        "red",
		PricePerDay:  45,
		Status:       models.CarAvailable,
		BookingDates: map[string]string{},
	}
}

func testDraft() *models.BookingDraft {
	return &models.BookingDraft{
		Car:            *testCar("DELEG#001"),
		TotalPrice:     135,
		StartDate:      models.NewDate(2024, time.June, 1),
		EndDate:        models.NewDate(2024, time.June, 3),
		PickupLocation: "DELEG#001",
		ReturnLocation: "DELEG#002",
		CreatedAt:      time.Now().UTC(),
	}
}
