package models

const (
	// DefaultHorizonDays is the booking horizon: dates may be picked from
	// today through today + 180 days.
	DefaultHorizonDays = 180

	// DefaultDraftTTL lifetime of a draft in the store, in seconds.
	DefaultDraftTTL = 24 * 60 * 60

	// WorkerQueueSize size of the sync worker's in-memory queue.
	WorkerQueueSize = 128

	// RateLimitRPS default per-client API rate.
	RateLimitRPS = 10

	// DefaultExportRangeMonthsBefore/After default window for booking exports.
	DefaultExportRangeMonthsBefore = 1
	DefaultExportRangeMonthsAfter  = 2
)
