package errors

import (
	"fmt"

	"github.com/merchanthub/omsapi/internal/domain"
)

// ErrNotFound indicates a resource was not found
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnauthorized indicates an authentication failure
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	return e.Message
}

// ErrInvalidStateTransition indicates an invalid order status transition
type ErrInvalidStateTransition struct {
	From domain.OrderStatus
	To   domain.OrderStatus
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// ErrCredential indicates a connection credential is missing or malformed.
// Surfaced to the caller before anything is persisted or any network call is made.
type ErrCredential struct {
	Platform domain.PlatformType
	Field    string
	Reason   string
}

func (e *ErrCredential) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid credentials for %s: field %q %s", e.Platform, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid credentials for %s: %s", e.Platform, e.Reason)
}

// ErrAdapterAuth indicates the marketplace rejected the connection's credentials.
// Message carries the provider-supplied error text when available.
type ErrAdapterAuth struct {
	Platform domain.PlatformType
	Message  string
}

func (e *ErrAdapterAuth) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: authentication rejected", e.Platform)
	}
	return fmt.Sprintf("%s: authentication rejected: %s", e.Platform, e.Message)
}

// ErrAdapterTransport indicates a network failure or a 5xx from the marketplace.
// Retryable by the caller via a manual re-sync.
type ErrAdapterTransport struct {
	Platform domain.PlatformType
	Err      error
}

func (e *ErrAdapterTransport) Error() string {
	return fmt.Sprintf("%s: request failed: %v", e.Platform, e.Err)
}

func (e *ErrAdapterTransport) Unwrap() error {
	return e.Err
}

// ErrNormalization indicates a single raw order could not be mapped to the
// canonical model. Recorded per record, never fatal to a sync batch.
type ErrNormalization struct {
	Platform        domain.PlatformType
	PlatformOrderID string
	Reason          string
}

func (e *ErrNormalization) Error() string {
	return fmt.Sprintf("%s order %s: %s", e.Platform, e.PlatformOrderID, e.Reason)
}

// ErrSyncInProgress indicates a sync is already running for the connection
type ErrSyncInProgress struct {
	ConnectionID string
}

func (e *ErrSyncInProgress) Error() string {
	return fmt.Sprintf("sync already running for connection %s", e.ConnectionID)
}

// ErrValidation indicates a request payload failed validation
type ErrValidation struct {
	Message string
}

func (e *ErrValidation) Error() string {
	return e.Message
}
