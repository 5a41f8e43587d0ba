package errs

import (
	"fmt"
)

type ErrorMessage struct {
	Message string
}

func (e *ErrorMessage) Error() string { return e.Message }

type NotFoundError struct {
	ErrorMessage
}

type AlreadyExistsError struct {
	ErrorMessage
}

type ValidationError struct {
	ErrorMessage
}

type ForbiddenError struct {
	ErrorMessage
}

// ConnectionNotFoundError is returned before any sync log row can be written.
type ConnectionNotFoundError struct {
	ErrorMessage
	ConnectionID string
}

// UnsupportedProviderError means the registry has no adapter for a connection type.
type UnsupportedProviderError struct {
	ErrorMessage
	ConnectionType string
}

// CryptoError covers malformed ciphertext, failed authentication and a missing key.
type CryptoError struct {
	ErrorMessage
	Err error
}

func (e *CryptoError) Unwrap() error { return e.Err }

// NotConnectedError signals use of a provider session that was never opened
// or has already been closed.
type NotConnectedError struct {
	ErrorMessage
	Provider string
}

// BankOperationError wraps every provider-side failure. Callers branch on
// this type only, never on provider specific errors.
type BankOperationError struct {
	Operation string
	Provider  string
	Err       error
}

func (e *BankOperationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Operation, e.Err)
}

func (e *BankOperationError) Unwrap() error { return e.Err }

type SyncInProgressError struct {
	ErrorMessage
	ConnectionID string
}

type DatabaseError struct {
	ErrorMessage
	Operation string
	Err       error
}

func (e *DatabaseError) Unwrap() error { return e.Err }

type ExternalServiceError struct {
	ErrorMessage
	Service   string
	Transient bool
	Err       error
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewAlreadyExistsError(message string) *AlreadyExistsError {
	return &AlreadyExistsError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewForbiddenError(message string) *ForbiddenError {
	return &ForbiddenError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewConnectionNotFoundError(connectionID string) *ConnectionNotFoundError {
	return &ConnectionNotFoundError{
		ErrorMessage: ErrorMessage{Message: fmt.Sprintf("connection %s not found", connectionID)},
		ConnectionID: connectionID,
	}
}

func NewUnsupportedProviderError(connectionType string) *UnsupportedProviderError {
	return &UnsupportedProviderError{
		ErrorMessage:   ErrorMessage{Message: fmt.Sprintf("unsupported provider type %q", connectionType)},
		ConnectionType: connectionType,
	}
}

func NewCryptoError(message string, err error) *CryptoError {
	return &CryptoError{
		ErrorMessage: ErrorMessage{Message: message},
		Err:          err,
	}
}

func NewNotConnectedError(provider string) *NotConnectedError {
	return &NotConnectedError{
		ErrorMessage: ErrorMessage{Message: provider + ": not connected"},
		Provider:     provider,
	}
}

func NewBankOperationError(operation, provider string, err error) *BankOperationError {
	return &BankOperationError{Operation: operation, Provider: provider, Err: err}
}

func NewSyncInProgressError(connectionID string) *SyncInProgressError {
	return &SyncInProgressError{
		ErrorMessage: ErrorMessage{Message: fmt.Sprintf("sync already in progress for connection %s", connectionID)},
		ConnectionID: connectionID,
	}
}

func NewDatabaseError(operation, message string, err error) *DatabaseError {
	return &DatabaseError{
		ErrorMessage: ErrorMessage{Message: message},
		Operation:    operation,
		Err:          err,
	}
}

func NewExternalServiceError(service, message string, transient bool, err error) *ExternalServiceError {
	return &ExternalServiceError{
		ErrorMessage: ErrorMessage{Message: message},
		Service:      service,
		Transient:    transient,
		Err:          err,
	}
}
