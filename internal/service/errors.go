package service

import "errors"

var (
	// ErrMissingDraft is returned when the confirmation flow is entered
	// without a stored draft. Callers redirect the user back to the search
	// step; a draft is never fabricated.
	ErrMissingDraft = errors.New("no booking draft for session")

	// ErrMissingQuery is returned when a car is selected before the date
	// and location query was saved.
	ErrMissingQuery = errors.New("no booking query for session")

	// ErrCarUnavailable is returned when the selected car is not free for
	// every day of the requested range.
	ErrCarUnavailable = errors.New("car is not available for the requested dates")
)
