package services

import "errors"

// Service-level errors, grouped by how the HTTP layer maps them. All of
// them are raised by precondition checks before any mutation.
var (
	// Validation
	ErrTournamentNameRequired = errors.New("tournament name is required")
	ErrInvalidMaxPlayers      = errors.New("max players must be 4, 8, 16 or 32")
	ErrNotEnoughParticipants  = errors.New("at least 2 participants are required to start")
	ErrWinnerRequired         = errors.New("winner id is required")
	ErrWinnerNotInMatch       = errors.New("winner must be one of the match players")
	ErrInvalidScore           = errors.New("scores must be non-negative")
	ErrUnsupportedLogoType    = errors.New("logo must be a png, jpeg or webp image")

	// Authorization
	ErrNotCreator = errors.New("only the tournament creator can perform this action")

	// State
	ErrTournamentNotActive = errors.New("tournament not active")
	ErrAlreadyStarted      = errors.New("tournament has already started")
	ErrRegistrationClosed  = errors.New("tournament registration is closed")

	// Conflict
	ErrAlreadyJoined         = errors.New("user already registered for this tournament")
	ErrAliasTaken            = errors.New("alias already taken in this tournament")
	ErrTournamentFull        = errors.New("tournament registration is full")
	ErrMatchAlreadyCompleted = errors.New("match already completed")

	// Not found
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrUserNotFound        = errors.New("user not found")

	// Infrastructure
	ErrLogoStorageUnavailable = errors.New("logo storage is not configured")
)
