package errors

import (
	"errors"
	"net/http"
)

// Domain errors
var (
	ErrNotFound            = errors.New("resource not found")
	ErrAlreadyExists       = errors.New("resource already exists")
	ErrInvalidInput        = errors.New("invalid input")
	ErrBadRequest          = errors.New("bad request")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidAddress      = errors.New("invalid account address")
	ErrInvalidAmount       = errors.New("amount must be a positive decimal")
	ErrUnsupportedChain    = errors.New("unsupported chain")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrJobNotRetryable     = errors.New("job is not in a retryable state")
	ErrJobNotConfirmable   = errors.New("job is not awaiting confirmation")
	ErrInvalidTransition   = errors.New("invalid job status transition")
	ErrSlugTaken           = errors.New("slug already claimed")
	ErrSubscriptionClosed  = errors.New("subscription already cancelled")
	ErrCredentialMissing   = errors.New("subscription has no authorized session credential")
	ErrSigningFailed       = errors.New("custodial signing failed")
	ErrBridgeRejected      = errors.New("bridge rejected the transfer")
	ErrAttestationFailed   = errors.New("attestation service reported failure")
	ErrAttestationPending  = errors.New("attestation still pending")
	ErrTransactionReverted = errors.New("transaction reverted on-chain")
)

// Error codes used in API responses
const (
	CodeNotFound      = "ERR_NOT_FOUND"
	CodeConflict      = "ERR_CONFLICT"
	CodeInvalidInput  = "ERR_INVALID_INPUT"
	CodeBadRequest    = "ERR_BAD_REQUEST"
	CodeUnauthorized  = "ERR_UNAUTHORIZED"
	CodeForbidden     = "ERR_FORBIDDEN"
	CodeInternalError = "ERR_INTERNAL"
)

// AppError represents application error with HTTP status
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new app error
func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, message, ErrNotFound)
}

func Conflict(message string) *AppError {
	return NewAppError(http.StatusConflict, CodeConflict, message, ErrAlreadyExists)
}

func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeInvalidInput, message, ErrInvalidInput)
}

func Unauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, message, ErrUnauthorized)
}

func Forbidden(message string) *AppError {
	return NewAppError(http.StatusForbidden, CodeForbidden, message, ErrForbidden)
}

func InternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, "internal server error", err)
}

func InternalServerError(message string) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, message, nil)
}

// NewError creates a new error with a custom message wrapping an existing error
func NewError(message string, err error) error {
	return &AppError{
		Status:  http.StatusBadRequest,
		Code:    CodeBadRequest,
		Message: message,
		Err:     err,
	}
}
