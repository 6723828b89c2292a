package domain

import "fmt"

// MissingAuthArtifactsError indicates the required session markers were
// absent from the request. This is the only fatal extraction failure.
type MissingAuthArtifactsError struct {
	Message string
}

func (e *MissingAuthArtifactsError) Error() string { return e.Message }

// MissingServiceParameterError indicates the service query parameter was empty.
type MissingServiceParameterError struct {
	Message string
}

func (e *MissingServiceParameterError) Error() string { return e.Message }

// UnknownServiceError indicates the requested service has no registration.
type UnknownServiceError struct {
	Message string
}

func (e *UnknownServiceError) Error() string { return e.Message }

// NotAuthorizedError indicates the caller is not on the service's allow-list.
type NotAuthorizedError struct {
	Message string
}

func (e *NotAuthorizedError) Error() string { return e.Message }

// DeniedError indicates the caller is on the global deny-list.
type DeniedError struct {
	Message string
}

func (e *DeniedError) Error() string { return e.Message }

// ExchangeError indicates the provider-side role exchange failed. Message
// carries upstream diagnostic text but never credential material.
type ExchangeError struct {
	Status  int
	Message string
}

func (e *ExchangeError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("credential exchange failed with status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("credential exchange failed: %s", e.Message)
}

// ErrMissingAuthArtifacts creates a MissingAuthArtifactsError with a formatted message.
func ErrMissingAuthArtifacts(format string, args ...interface{}) *MissingAuthArtifactsError {
	return &MissingAuthArtifactsError{Message: fmt.Sprintf(format, args...)}
}

// ErrMissingServiceParameter creates a MissingServiceParameterError with a formatted message.
func ErrMissingServiceParameter(format string, args ...interface{}) *MissingServiceParameterError {
	return &MissingServiceParameterError{Message: fmt.Sprintf(format, args...)}
}

// ErrUnknownService creates an UnknownServiceError with a formatted message.
func ErrUnknownService(format string, args ...interface{}) *UnknownServiceError {
	return &UnknownServiceError{Message: fmt.Sprintf(format, args...)}
}

// ErrNotAuthorized creates a NotAuthorizedError with a formatted message.
func ErrNotAuthorized(format string, args ...interface{}) *NotAuthorizedError {
	return &NotAuthorizedError{Message: fmt.Sprintf(format, args...)}
}

// ErrDenied creates a DeniedError with a formatted message.
func ErrDenied(format string, args ...interface{}) *DeniedError {
	return &DeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrExchange creates an ExchangeError carrying the upstream status.
func ErrExchange(status int, format string, args ...interface{}) *ExchangeError {
	return &ExchangeError{Status: status, Message: fmt.Sprintf(format, args...)}
}
