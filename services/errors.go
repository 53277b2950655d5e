package services

import "errors"

// Engine error taxonomy. Calculation-layer code (strength, battle resolution)
// never returns these; it sanitizes bad input instead. Only operations that
// touch persisted state raise them.
var (
	// ErrInsufficientResources: a deduct would take a balance negative.
	// Recoverable: the caller decides whether to reject the player action.
	ErrInsufficientResources = errors.New("insufficient resources")

	// ErrInsufficientTroops: a movement asked for more troops than are
	// garrisoned at home. Recoverable, same handling as resources.
	ErrInsufficientTroops = errors.New("insufficient troops in village")

	// ErrQueueFull: the village already has an active queue entry of the
	// relevant kind (one build slot, one training run).
	ErrQueueFull = errors.New("queue full")

	// ErrInvalidMovement: malformed village reference or a movement touched
	// in an unexpected status. A programming-contract violation: fatal to
	// the call, but never corrupts state (status checks are atomic).
	ErrInvalidMovement = errors.New("invalid movement")

	// ErrStaleReference: a referenced unit or building type no longer exists
	// in the catalog. Historical movements still resolve (stale units count
	// as zero strength); only new player actions are rejected with this.
	ErrStaleReference = errors.New("stale catalog reference")
)
