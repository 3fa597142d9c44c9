package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrUnsupportedChain   = errors.New("unsupported chain")
	ErrIntentExpired      = errors.New("payment intent expired")
	ErrIntentNotPending   = errors.New("payment intent is not pending")
	ErrAlreadyProcessed   = errors.New("payment intent already processed")
	ErrVerificationFailed = errors.New("transaction verification failed")
	ErrNoPayoutAddress    = errors.New("merchant has no payout address configured")

	// Infrastructure errors surfaced by repositories
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
)
