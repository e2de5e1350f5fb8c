package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"rentacar/internal/config"
	"rentacar/internal/database"
	"rentacar/internal/events"
	"rentacar/internal/identity"
	"rentacar/internal/models"
	"rentacar/internal/repository"
	"rentacar/internal/service"
	"rentacar/internal/worker"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret"

type testServer struct {
	srv *HTTPServer
	db  *database.DB
}

func newTestServer(t *testing.T, cfg config.APIConfig) *testServer {
	t.Helper()
	logger := zerolog.New(os.Stdout)

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	seedCatalog(t, db)

	drafts := repository.NewMemoryDraftRepository(time.Hour)
	bus := events.NewEventBus()

	syncWorker := worker.NewSyncWorker(db, nil, nil, nil, worker.RetryPolicy{}, &logger)

	catalogSvc := service.NewCatalogService(db, &logger)
	draftSvc := service.NewDraftService(drafts, db, models.DefaultHorizonDays, &logger)
	confirmation := service.NewConfirmation(drafts, db, db, bus, syncWorker, nil, &logger)
	bookingSvc := service.NewBookingService(db, db, bus, syncWorker, nil, &logger)
	resolver := identity.NewResolver(testJWTSecret)

	srv := NewHTTPServer(cfg, catalogSvc, draftSvc, confirmation, bookingSvc, resolver, &logger)
	return &testServer{srv: srv, db: db}
}

func openConfig() config.APIConfig {
	return config.APIConfig{
		Enabled: true,
		HTTP:    config.APIHTTPConfig{Enabled: true, Port: 0},
	}
}

func seedCatalog(t *testing.T, db *database.DB) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, db.SaveDelegation(ctx, &models.Delegation{
		DelegationID: "DELEG#001",
		Name:         "Madrid Centro",
		City:         "Madrid",
	}))

	free := &models.Car{
		DelegationID: "DELEG#001",
		Operation:    "car#1",
		CarID:        "CAR#100",
		Make:         "Seat",
		Model:        "Ibiza",
		PricePerDay:  45,
		Status:       models.CarAvailable,
	}
	require.NoError(t, db.SaveCar(ctx, free))

	blocked := &models.Car{
		DelegationID: "DELEG#001",
		Operation:    "car#2",
		CarID:        "CAR#200",
		Make:         "Renault",
		Model:        "Clio",
		PricePerDay:  50,
		Status:       models.CarAvailable,
		BookingDates: map[string]string{
			searchStart().AddDays(1).String(): string(models.CarRented),
		},
	}
	require.NoError(t, db.SaveCar(ctx, blocked))
}

// searchStart is a date safely inside the booking horizon.
func searchStart() models.Date {
	return models.Today().AddDays(7)
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func sessionHeaders(sessionID string) map[string]string {
	return map[string]string{sessionHeader: sessionID}
}

func userToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, openConfig())

	rec := ts.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListCars(t *testing.T) {
	ts := newTestServer(t, openConfig())

	rec := ts.do(t, http.MethodGet, "/api/v1/cars", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[map[string][]models.Car](t, rec)
	assert.Len(t, body["cars"], 2)
}

func TestListDelegations(t *testing.T) {
	ts := newTestServer(t, openConfig())

	rec := ts.do(t, http.MethodGet, "/api/v1/delegations", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[map[string][]models.Delegation](t, rec)
	require.Len(t, body["delegations"], 1)
	assert.Equal(t, "DELEG#001", body["delegations"][0].DelegationID)
}

func TestCarsAvailable(t *testing.T) {
	ts := newTestServer(t, openConfig())

	start := searchStart()
	end := start.AddDays(2)

	path := fmt.Sprintf("/api/v1/cars/available?start_date=%s&end_date=%s&pickup_location=DELEG%%23001", start, end)
	rec := ts.do(t, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The blocked car has a RENTED day inside the range.
	body := decodeBody[map[string][]models.Car](t, rec)
	require.Len(t, body["cars"], 1)
	assert.Equal(t, "CAR#100", body["cars"][0].CarID)
}

func TestCarsAvailableBadParams(t *testing.T) {
	ts := newTestServer(t, openConfig())

	rec := ts.do(t, http.MethodGet, "/api/v1/cars/available", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	start := searchStart()
	path := fmt.Sprintf("/api/v1/cars/available?start_date=%s&end_date=%s&pickup_location=DELEG%%23001", start.AddDays(3), start)
	rec = ts.do(t, http.MethodGet, path, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	path = fmt.Sprintf("/api/v1/cars/available?start_date=junk&end_date=%s&pickup_location=DELEG%%23001", start)
	rec = ts.do(t, http.MethodGet, path, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuote(t *testing.T) {
	ts := newTestServer(t, openConfig())

	start := searchStart()
	rec := ts.do(t, http.MethodPost, "/api/v1/quote", map[string]any{
		"delegation_id": "DELEG#001",
		"operation":     "car#1",
		"start_date":    start.String(),
		"end_date":      start.AddDays(4).String(),
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[map[string]float64](t, rec)
	assert.Equal(t, 225.0, body["total_price"])
	assert.Equal(t, 5.0, body["days"])
}

func TestQuoteUnknownCar(t *testing.T) {
	ts := newTestServer(t, openConfig())

	start := searchStart()
	rec := ts.do(t, http.MethodPost, "/api/v1/quote", map[string]any{
		"delegation_id": "DELEG#009",
		"operation":     "car#1",
		"start_date":    start.String(),
		"end_date":      start.String(),
	}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQuoteInvertedRange(t *testing.T) {
	ts := newTestServer(t, openConfig())

	start := searchStart()
	rec := ts.do(t, http.MethodPost, "/api/v1/quote", map[string]any{
		"delegation_id": "DELEG#001",
		"operation":     "car#1",
		"start_date":    start.AddDays(3).String(),
		"end_date":      start.String(),
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingQueryRequiresSession(t *testing.T) {
	ts := newTestServer(t, openConfig())

	rec := ts.do(t, http.MethodPost, "/api/v1/booking/query", map[string]any{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingQueryValidation(t *testing.T) {
	ts := newTestServer(t, openConfig())

	rec := ts.do(t, http.MethodPost, "/api/v1/booking/query", map[string]any{
		"start_date":      models.Today().AddDays(-1).String(),
		"end_date":        models.Today().String(),
		"pickup_location": "DELEG#001",
		"return_location": "DELEG#001",
	}, sessionHeaders("session-1"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "start_date", body["field"])
}

func TestBookingFlow(t *testing.T) {
	ts := newTestServer(t, openConfig())
	headers := sessionHeaders("session-1")

	start := searchStart()
	end := start.AddDays(2)

	// Nothing stored yet.
	rec := ts.do(t, http.MethodGet, "/api/v1/booking/query", nil, headers)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/v1/booking/draft", nil, headers)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Save the search.
	rec = ts.do(t, http.MethodPost, "/api/v1/booking/query", map[string]any{
		"start_date":      start.String(),
		"end_date":        end.String(),
		"pickup_location": "DELEG#001",
		"return_location": "DELEG#002",
	}, headers)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/booking/query", nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	query := decodeBody[models.BookingQuery](t, rec)
	assert.Equal(t, "DELEG#001", query.PickupLocation)

	// Select the free car.
	rec = ts.do(t, http.MethodPost, "/api/v1/booking/draft", map[string]any{
		"delegation_id": "DELEG#001",
		"operation":     "car#1",
	}, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	draft := decodeBody[models.BookingDraft](t, rec)
	assert.Equal(t, 135.0, draft.TotalPrice)

	// Confirm.
	rec = ts.do(t, http.MethodPost, "/api/v1/booking/confirm", nil, headers)
	require.Equal(t, http.StatusCreated, rec.Code)
	booking := decodeBody[models.Booking](t, rec)
	assert.NotEmpty(t, booking.ID)
	assert.Equal(t, models.BookingReserved, booking.Status)
	assert.Equal(t, models.PaymentPending, booking.PaymentStatus)

	// Session state is gone; confirming again has nothing to work with.
	rec = ts.do(t, http.MethodGet, "/api/v1/booking/draft", nil, headers)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodPost, "/api/v1/booking/confirm", nil, headers)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The booked days are now blocked for the same car.
	path := fmt.Sprintf("/api/v1/cars/available?start_date=%s&end_date=%s&pickup_location=DELEG%%23001", start, end)
	rec = ts.do(t, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cars := decodeBody[map[string][]models.Car](t, rec)
	assert.Empty(t, cars["cars"])
}

func TestBookingDraftUnavailableCar(t *testing.T) {
	ts := newTestServer(t, openConfig())
	headers := sessionHeaders("session-1")

	start := searchStart()
	rec := ts.do(t, http.MethodPost, "/api/v1/booking/query", map[string]any{
		"start_date":      start.String(),
		"end_date":        start.AddDays(2).String(),
		"pickup_location": "DELEG#001",
		"same_location":   true,
	}, headers)
	require.Equal(t, http.StatusOK, rec.Code)

	// car#2 has a RENTED day inside the range.
	rec = ts.do(t, http.MethodPost, "/api/v1/booking/draft", map[string]any{
		"delegation_id": "DELEG#001",
		"operation":     "car#2",
	}, headers)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBookingCancel(t *testing.T) {
	ts := newTestServer(t, openConfig())
	headers := sessionHeaders("session-1")

	start := searchStart()
	rec := ts.do(t, http.MethodPost, "/api/v1/booking/query", map[string]any{
		"start_date":      start.String(),
		"end_date":        start.String(),
		"pickup_location": "DELEG#001",
		"same_location":   true,
	}, headers)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/booking/cancel", nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/booking/query", nil, headers)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUserBookings(t *testing.T) {
	ts := newTestServer(t, openConfig())

	rec := ts.do(t, http.MethodGet, "/api/v1/bookings", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Book as an authenticated user.
	headers := sessionHeaders("session-1")
	headers["Authorization"] = "Bearer " + userToken(t, "user-1")

	start := searchStart()
	rec = ts.do(t, http.MethodPost, "/api/v1/booking/query", map[string]any{
		"start_date":      start.String(),
		"end_date":        start.String(),
		"pickup_location": "DELEG#001",
		"same_location":   true,
	}, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodPost, "/api/v1/booking/draft", map[string]any{
		"delegation_id": "DELEG#001",
		"operation":     "car#1",
	}, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodPost, "/api/v1/booking/confirm", nil, headers)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/bookings", nil, map[string]string{
		"Authorization": "Bearer " + userToken(t, "user-1"),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string][]models.Booking](t, rec)
	require.Len(t, body["bookings"], 1)
	assert.Equal(t, "user-1", body["bookings"][0].UserID)
}

func TestBookingStatusTransitions(t *testing.T) {
	ts := newTestServer(t, openConfig())

	booking := &models.Booking{
		UserID: "user-1",
		Car: models.Car{
			DelegationID: "DELEG#001",
			Operation:    "car#1",
			CarID:        "CAR#100",
		},
		StartDate:      searchStart(),
		EndDate:        searchStart().AddDays(1),
		PickupLocation: "DELEG#001",
		ReturnLocation: "DELEG#001",
		TotalPrice:     90,
	}
	require.NoError(t, ts.db.CreateBooking(context.Background(), booking))

	path := "/api/v1/bookings/" + booking.ID + "/status"

	rec := ts.do(t, http.MethodPost, path, map[string]string{"status": "CONFIRMED"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeBody[models.Booking](t, rec)
	assert.Equal(t, models.BookingConfirmed, updated.Status)

	// CONFIRMED cannot go back through RESERVED.
	rec = ts.do(t, http.MethodPost, path, map[string]string{"status": "RESERVED"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, path, map[string]string{"payment_status": "PAID"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/bookings/missing-id/status", map[string]string{"status": "CONFIRMED"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/status", map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingsExport(t *testing.T) {
	ts := newTestServer(t, openConfig())

	start := searchStart()
	rec := ts.do(t, http.MethodPost, "/api/v1/bookings/export", map[string]string{
		"start_date": start.String(),
		"end_date":   start.AddDays(30).String(),
	}, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	tasks, err := ts.db.GetPendingSyncTasks(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, worker.TaskExport, tasks[0].TaskType)
}

func TestBookingsExportInvertedRange(t *testing.T) {
	ts := newTestServer(t, openConfig())

	start := searchStart()
	rec := ts.do(t, http.MethodPost, "/api/v1/bookings/export", map[string]string{
		"start_date": start.AddDays(5).String(),
		"end_date":   start.String(),
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingsResync(t *testing.T) {
	ts := newTestServer(t, openConfig())

	rec := ts.do(t, http.MethodPost, "/api/v1/bookings/resync", nil, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	tasks, err := ts.db.GetPendingSyncTasks(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, worker.TaskResyncSheet, tasks[0].TaskType)
}
