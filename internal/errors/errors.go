package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a game error code.
type ErrorCode string

const (
	ErrInvalidInput         ErrorCode = "INVALID_INPUT"          // 400
	ErrIndexOutOfRange      ErrorCode = "INDEX_OUT_OF_RANGE"     // 400
	ErrNotFound             ErrorCode = "NOT_FOUND"              // 404
	ErrInsufficientResource ErrorCode = "INSUFFICIENT_RESOURCE"  // 409
	ErrCapacityReached      ErrorCode = "CAPACITY_REACHED"       // 409
	ErrNoEvolution          ErrorCode = "NO_EVOLUTION_AVAILABLE" // 422
	ErrVariantUnavailable   ErrorCode = "VARIANT_UNAVAILABLE"    // 422
	ErrEggNotReady          ErrorCode = "EGG_NOT_READY"          // 409
	ErrCooldownActive       ErrorCode = "BREEDING_COOLDOWN"      // 409
	ErrCatalogNotFound      ErrorCode = "CATALOG_NOT_FOUND"      // 502
	ErrCatalogUnavailable   ErrorCode = "CATALOG_UNAVAILABLE"    // 503
	ErrTimeout              ErrorCode = "TIMEOUT"                // 504
	ErrStorageWrite         ErrorCode = "STORAGE_WRITE"          // 500
	ErrInternal             ErrorCode = "INTERNAL"               // 500
)

// GameError represents a structured error with code, status, and details.
type GameError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *GameError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *GameError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the failure came from an external dependency
// and the same call may succeed later.
func (e *GameError) Retryable() bool {
	switch e.Code {
	case ErrCatalogUnavailable, ErrCatalogNotFound, ErrTimeout, ErrStorageWrite:
		return true
	}
	return false
}

// NewInvalidInput creates a 400 error for malformed candidates or parameters.
func NewInvalidInput(msg string) *GameError {
	return &GameError{
		Code:    ErrInvalidInput,
		Status:  400,
		Message: msg,
	}
}

// NewIndexOutOfRange creates a 400 error for an egg index outside the collection.
func NewIndexOutOfRange(index, length int) *GameError {
	return &GameError{
		Code:    ErrIndexOutOfRange,
		Status:  400,
		Message: fmt.Sprintf("index %d out of range [0, %d)", index, length),
		Details: map[string]any{"index": index, "length": length},
	}
}

// NewNotFound creates a 404 error for a missing creature, egg or photo.
func NewNotFound(kind, identifier string) *GameError {
	return &GameError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewInsufficientResource creates a 409 error when a balance cannot cover a cost.
func NewInsufficientResource(resource string, have, need int64) *GameError {
	return &GameError{
		Code:    ErrInsufficientResource,
		Status:  409,
		Message: fmt.Sprintf("not enough %s: have %d, need %d", resource, have, need),
		Details: map[string]any{"resource": resource, "have": have, "need": need},
	}
}

// NewCapacityReached creates a 409 error when a bounded balance is already full.
func NewCapacityReached(resource string, max int) *GameError {
	return &GameError{
		Code:    ErrCapacityReached,
		Status:  409,
		Message: fmt.Sprintf("%s already at maximum (%d)", resource, max),
		Details: map[string]any{"resource": resource, "max": max},
	}
}

// NewNoEvolution creates a 422 error when a species has no further evolution.
func NewNoEvolution(speciesID int, name string) *GameError {
	return &GameError{
		Code:    ErrNoEvolution,
		Status:  422,
		Message: fmt.Sprintf("%s cannot evolve any further", name),
		Details: map[string]any{"species_id": speciesID, "name": name},
	}
}

// NewVariantUnavailable creates a 422 error when a species has no rare-variant sprite.
func NewVariantUnavailable(speciesID int, name string) *GameError {
	return &GameError{
		Code:    ErrVariantUnavailable,
		Status:  422,
		Message: fmt.Sprintf("%s has no rare variant", name),
		Details: map[string]any{"species_id": speciesID, "name": name},
	}
}

// NewEggNotReady creates a 409 error for hatching an egg that is still incubating.
func NewEggNotReady(instanceID string, percent float64) *GameError {
	return &GameError{
		Code:    ErrEggNotReady,
		Status:  409,
		Message: fmt.Sprintf("egg %s is not ready to hatch (%.0f%%)", instanceID, percent),
		Details: map[string]any{"instance_id": instanceID, "percent": percent},
	}
}

// NewCooldownActive creates a 409 error when a creature is still recovering from breeding.
func NewCooldownActive(instanceID string, secondsLeft int64) *GameError {
	return &GameError{
		Code:    ErrCooldownActive,
		Status:  409,
		Message: fmt.Sprintf("creature %s cannot breed for another %ds", instanceID, secondsLeft),
		Details: map[string]any{"instance_id": instanceID, "seconds_left": secondsLeft},
	}
}

// NewCatalogNotFound creates a 502 error for a catalog entry that does not exist.
func NewCatalogNotFound(resource string) *GameError {
	return &GameError{
		Code:    ErrCatalogNotFound,
		Status:  502,
		Message: fmt.Sprintf("catalog entry not found: %s", resource),
		Details: map[string]any{"resource": resource},
	}
}

// NewCatalogUnavailable creates a 503 error for a failed catalog request.
func NewCatalogUnavailable(resource string, cause error) *GameError {
	msg := fmt.Sprintf("catalog unavailable: %s", resource)
	if cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, cause)
	}
	return &GameError{
		Code:    ErrCatalogUnavailable,
		Status:  503,
		Message: msg,
		Details: map[string]any{"resource": resource},
		Cause:   cause,
	}
}

// NewTimeout creates a 504 error when a catalog request exceeded its deadline.
func NewTimeout(resource string, cause error) *GameError {
	return &GameError{
		Code:    ErrTimeout,
		Status:  504,
		Message: fmt.Sprintf("catalog request timed out: %s", resource),
		Details: map[string]any{"resource": resource},
		Cause:   cause,
	}
}

// NewStorageWrite creates a 500 error for a failed state write.
func NewStorageWrite(cause error) *GameError {
	msg := "failed to write game state"
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &GameError{
		Code:    ErrStorageWrite,
		Status:  500,
		Message: msg,
		Cause:   cause,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *GameError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &GameError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Cause:   err,
	}
}

// Is checks if an error is (or wraps) a GameError with the given code.
func Is(err error, code ErrorCode) bool {
	var gErr *GameError
	if stderrors.As(err, &gErr) {
		return gErr.Code == code
	}
	return false
}

// As returns the GameError in err's chain, if any.
func As(err error) (*GameError, bool) {
	var gErr *GameError
	if stderrors.As(err, &gErr) {
		return gErr, true
	}
	return nil, false
}
