package services

import "errors"

// Shared business errors, mapped to stable HTTP error codes in handlers.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business rules
	ErrValidationFailed          = errors.New("validation failed")
	ErrInvalidAmount             = errors.New("amount must be a positive integer")
	ErrPasswordTooShort          = errors.New("password is too short")
	ErrTournamentNameRequired    = errors.New("tournament name is required")
	ErrTournamentInvalidCapacity = errors.New("tournament capacity must be positive")
	ErrTournamentInvalidFee      = errors.New("tournament entry fee cannot be negative")
	ErrTournamentInvalidStart    = errors.New("tournament start time must be in the future")

	// Admission rejections (expected conditions, not faults)
	ErrTournamentFull    = errors.New("tournament is full")
	ErrAlreadyJoined     = errors.New("player is already joined to this tournament")
	ErrTournamentClosed  = errors.New("tournament is closed")
	ErrInsufficientFunds = errors.New("insufficient wallet balance")

	// Ledger
	ErrUnknownAccount  = errors.New("unknown player account")
	ErrAlreadyReversed = errors.New("transaction is already reversed")
	ErrAlreadySettled  = errors.New("transaction is already settled")
	ErrNotReversible   = errors.New("transaction cannot be reversed")

	// Authentication
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email address is already in use")
	ErrAccountDisabled    = errors.New("player account is deactivated")
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")

	// Entity lookups
	ErrPlayerNotFound      = errors.New("player not found")
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrEntrantNotFound     = errors.New("entrant not found")
	ErrTransactionNotFound = errors.New("transaction not found")

	// Transient infrastructure fault surfaced after bounded retries.
	ErrRetryable = errors.New("temporary storage failure, retry the request")
)
