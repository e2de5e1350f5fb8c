package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentacar",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	availabilitySearches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rentacar",
			Name:      "availability_searches_total",
			Help:      "Availability searches over the catalog.",
		},
	)

	draftsSaved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentacar",
			Name:      "drafts_saved_total",
			Help:      "Booking queries and drafts written to the session store.",
		},
		[]string{"kind"},
	)

	bookings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentacar",
			Name:      "bookings_total",
			Help:      "Booking outcomes by result.",
		},
		[]string{"result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, availabilitySearches, draftsSaved, bookings)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncAvailabilitySearch counts one availability search.
func IncAvailabilitySearch() {
	availabilitySearches.Inc()
}

// IncDraftSaved counts a saved query ("query") or draft ("draft").
func IncDraftSaved(kind string) {
	draftsSaved.WithLabelValues(kind).Inc()
}

// IncBooking counts a booking outcome ("reserved", "cancelled", "failed").
func IncBooking(result string) {
	bookings.WithLabelValues(result).Inc()
}
