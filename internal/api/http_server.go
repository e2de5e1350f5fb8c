// Package api exposes the booking flow over HTTP for the rental UI.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"rentacar/internal/availability"
	"rentacar/internal/config"
	"rentacar/internal/database"
	"rentacar/internal/identity"
	"rentacar/internal/metrics"
	"rentacar/internal/models"
	"rentacar/internal/service"

	"github.com/rs/zerolog"
)

const sessionHeader = "x-session-id"

// HTTPServer wires the booking services to their HTTP endpoints.
type HTTPServer struct {
	cfg          config.APIConfig
	catalog      *service.CatalogService
	drafts       *service.DraftService
	confirmation *service.Confirmation
	bookings     *service.BookingService
	identity     *identity.Resolver
	logger       *zerolog.Logger
	server       *http.Server
	auth         *HTTPAuth
}

func NewHTTPServer(
	cfg config.APIConfig,
	catalog *service.CatalogService,
	drafts *service.DraftService,
	confirmation *service.Confirmation,
	bookings *service.BookingService,
	resolver *identity.Resolver,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:          cfg,
		catalog:      catalog,
		drafts:       drafts,
		confirmation: confirmation,
		bookings:     bookings,
		identity:     resolver,
		logger:       logger,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/cars/available", srv.handleCarsAvailable)
	mux.HandleFunc("/api/v1/cars", srv.handleCars)
	mux.HandleFunc("/api/v1/delegations", srv.handleDelegations)
	mux.HandleFunc("/api/v1/quote", srv.handleQuote)
	mux.HandleFunc("/api/v1/booking/query", srv.handleBookingQuery)
	mux.HandleFunc("/api/v1/booking/draft", srv.handleBookingDraft)
	mux.HandleFunc("/api/v1/booking/confirm", srv.handleBookingConfirm)
	mux.HandleFunc("/api/v1/booking/cancel", srv.handleBookingCancel)
	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/bookings/export", srv.handleBookingsExport)
	mux.HandleFunc("/api/v1/bookings/resync", srv.handleBookingsResync)
	mux.HandleFunc("/api/v1/bookings/", srv.handleBookingStatus)
	mux.HandleFunc("/health", srv.handleHealth)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the full middleware chain, used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleCars(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	cars, err := s.catalog.ListCars(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cars": cars})
}

func (s *HTTPServer) handleDelegations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	delegations, err := s.catalog.ListDelegations(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"delegations": delegations})
}

func (s *HTTPServer) handleCarsAvailable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query, err := searchQueryFromParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cars, err := s.catalog.SearchAvailable(r.Context(), query)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cars": cars})
}

func searchQueryFromParams(r *http.Request) (models.BookingQuery, error) {
	var query models.BookingQuery

	startStr := strings.TrimSpace(r.URL.Query().Get("start_date"))
	endStr := strings.TrimSpace(r.URL.Query().Get("end_date"))
	pickup := strings.TrimSpace(r.URL.Query().Get("pickup_location"))
	if startStr == "" || endStr == "" || pickup == "" {
		return query, errors.New("start_date, end_date and pickup_location are required")
	}

	start, err := models.ParseDate(startStr)
	if err != nil {
		return query, errors.New("invalid start_date; expected YYYY-MM-DD")
	}
	end, err := models.ParseDate(endStr)
	if err != nil {
		return query, errors.New("invalid end_date; expected YYYY-MM-DD")
	}
	if end.Before(start) {
		return query, errors.New("end_date must be on or after start_date")
	}

	query.StartDate = start
	query.EndDate = end
	query.PickupLocation = pickup
	query.ReturnLocation = strings.TrimSpace(r.URL.Query().Get("return_location"))
	return query, nil
}

func (s *HTTPServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		DelegationID string      `json:"delegation_id"`
		Operation    string      `json:"operation"`
		StartDate    models.Date `json:"start_date"`
		EndDate      models.Date `json:"end_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.DelegationID == "" || body.Operation == "" {
		writeError(w, http.StatusBadRequest, "delegation_id and operation are required")
		return
	}
	if body.StartDate.IsZero() || body.EndDate.IsZero() {
		writeError(w, http.StatusBadRequest, "start_date and end_date are required")
		return
	}

	query := models.BookingQuery{StartDate: body.StartDate, EndDate: body.EndDate}
	total, err := s.catalog.Quote(r.Context(), body.DelegationID, body.Operation, query)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_price": total,
		"days":        query.Days(),
	})
}

func (s *HTTPServer) handleBookingQuery(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDFrom(r)
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session header is required")
		return
	}

	switch r.Method {
	case http.MethodPost:
		var query models.BookingQuery
		if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.drafts.SaveQuery(r.Context(), sessionID, &query); err != nil {
			s.serviceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, query)
	case http.MethodGet:
		query, err := s.drafts.LoadQuery(r.Context(), sessionID)
		if err != nil {
			s.serviceError(w, err)
			return
		}
		if query == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, query)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleBookingDraft(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDFrom(r)
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session header is required")
		return
	}

	switch r.Method {
	case http.MethodPost:
		var body struct {
			DelegationID string `json:"delegation_id"`
			Operation    string `json:"operation"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if body.DelegationID == "" || body.Operation == "" {
			writeError(w, http.StatusBadRequest, "delegation_id and operation are required")
			return
		}

		draft, err := s.drafts.SaveDraft(r.Context(), sessionID, body.DelegationID, body.Operation)
		if err != nil {
			s.serviceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, draft)
	case http.MethodGet:
		draft, err := s.drafts.LoadDraft(r.Context(), sessionID)
		if err != nil {
			s.serviceError(w, err)
			return
		}
		if draft == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, draft)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleBookingConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sessionID := sessionIDFrom(r)
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session header is required")
		return
	}

	// An anonymous session still books; the session id stands in for the
	// user until accounts exist everywhere.
	userID := sessionID
	if session := s.session(r); session.Authenticated {
		userID = session.Profile.UserID
	}

	if _, err := s.confirmation.Begin(r.Context(), sessionID); err != nil {
		s.serviceError(w, err)
		return
	}
	booking, err := s.confirmation.Confirm(r.Context(), sessionID, userID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleBookingCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sessionID := sessionIDFrom(r)
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session header is required")
		return
	}

	if err := s.confirmation.Cancel(r.Context(), sessionID); err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	session := s.session(r)
	if !session.Authenticated {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	bookings, err := s.bookings.GetUserBookings(r.Context(), session.Profile.UserID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

// handleBookingsExport schedules an xlsx report; the sync worker writes the
// file asynchronously.
func (s *HTTPServer) handleBookingsExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		StartDate models.Date `json:"start_date"`
		EndDate   models.Date `json:"end_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.StartDate.IsZero() || body.EndDate.IsZero() {
		writeError(w, http.StatusBadRequest, "start_date and end_date are required")
		return
	}
	if body.EndDate.Before(body.StartDate) {
		writeError(w, http.StatusBadRequest, "end_date must be on or after start_date")
		return
	}

	if err := s.bookings.RequestExport(r.Context(), body.StartDate, body.EndDate); err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

// handleBookingsResync schedules a full rebuild of the manager spreadsheet.
func (s *HTTPServer) handleBookingsResync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := s.bookings.RequestSheetResync(r.Context()); err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

// handleBookingStatus serves POST /api/v1/bookings/{id}/status.
func (s *HTTPServer) handleBookingStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "status" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	bookingID := parts[0]

	var body struct {
		Status        string `json:"status"`
		PaymentStatus string `json:"payment_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Status == "" && body.PaymentStatus == "" {
		writeError(w, http.StatusBadRequest, "status or payment_status is required")
		return
	}

	if body.Status != "" {
		if err := s.bookings.UpdateBookingStatus(r.Context(), bookingID, models.BookingStatus(body.Status)); err != nil {
			s.serviceError(w, err)
			return
		}
	}
	if body.PaymentStatus != "" {
		if err := s.bookings.UpdatePaymentStatus(r.Context(), bookingID, models.PaymentStatus(body.PaymentStatus)); err != nil {
			s.serviceError(w, err)
			return
		}
	}

	booking, err := s.bookings.GetBooking(r.Context(), bookingID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) session(r *http.Request) identity.Session {
	if s.identity == nil {
		return identity.Anonymous()
	}
	return s.identity.FromAuthorizationHeader(r.Header.Get("Authorization"))
}

func sessionIDFrom(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(sessionHeader))
}

// serviceError translates service and storage errors to HTTP statuses.
func (s *HTTPServer) serviceError(w http.ResponseWriter, err error) {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": vErr.Reason,
			"field": vErr.Field,
		})
	case errors.Is(err, availability.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrMissingDraft),
		errors.Is(err, service.ErrMissingQuery),
		errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrCarUnavailable),
		errors.Is(err, database.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.URL.Path)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
