// Package errors defines the typed application errors shared by every bounded
// context. Only the HTTP layer turns them into status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents the category of an error.
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation_error"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeRateLimit    ErrorType = "rate_limited"
	ErrorTypeUnavailable  ErrorType = "service_unavailable"
	ErrorTypeInternal     ErrorType = "internal_error"
)

// Domain reason codes carried in AppError.Reason.
const (
	ReasonIllegalMove         = "illegal-move"
	ReasonNotInProgress       = "not-in-progress"
	ReasonNotYourTurn         = "not-your-turn"
	ReasonNotAPlayer          = "not-a-player"
	ReasonTakebackNotAllowed  = "takeback-not-allowed"
	ReasonBoardEditNotAllowed = "board-edit-not-allowed"
	ReasonRatedLocked         = "rated-locked"
	ReasonAlreadyInQueue      = "already-in-queue"
	ReasonStale               = "stale"
	ReasonTicketNotActive     = "ticket-not-active"
	ReasonInFlight            = "in-flight"
	ReasonCircuitOpen         = "circuit-open"
	ReasonReplay              = "replay"
	ReasonBotNotConfigured    = "bot-not-configured"
	ReasonRateLimited         = "rate-limited"
	ReasonInvalidFEN          = "invalid-fen"
	ReasonGameFull            = "game-full"
	ReasonProposalNotFound    = "proposal-not-found"
	ReasonRatingLocked        = "rating-locked"
	ReasonChallengeExpired    = "challenge-expired"
	ReasonNotPending          = "challenge-not-pending"
	ReasonNotRecipient        = "not-challenge-recipient"
)

// AppError is an error with a category, an HTTP status and an optional reason code.
type AppError struct {
	Type    ErrorType `json:"type"`
	Reason  string    `json:"reason,omitempty"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details string    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// WithReason returns a copy of e tagged with a domain reason code.
func (e *AppError) WithReason(reason string) *AppError {
	cp := *e
	cp.Reason = reason
	return &cp
}

// Is matches on Type and Reason so sentinel AppErrors work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Reason == t.Reason
}

func newAppError(t ErrorType, status int, message string, details []string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{Type: t, Message: message, Code: status, Details: detail}
}

func NewValidationError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, message, details)
}

func NewNotFoundError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeNotFound, http.StatusNotFound, message, details)
}

func NewConflictError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeConflict, http.StatusConflict, message, details)
}

func NewUnauthorizedError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeUnauthorized, http.StatusUnauthorized, message, details)
}

func NewForbiddenError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeForbidden, http.StatusForbidden, message, details)
}

func NewRateLimitError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeRateLimit, http.StatusTooManyRequests, message, details)
}

func NewUnavailableError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeUnavailable, http.StatusServiceUnavailable, message, details)
}

func NewInternalError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeInternal, http.StatusInternalServerError, message, details)
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func hasType(err error, t ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == t
}

func IsConflictError(err error) bool    { return hasType(err, ErrorTypeConflict) }
func IsNotFoundError(err error) bool    { return hasType(err, ErrorTypeNotFound) }
func IsValidationError(err error) bool  { return hasType(err, ErrorTypeValidation) }
func IsForbiddenError(err error) bool   { return hasType(err, ErrorTypeForbidden) }
func IsUnavailableError(err error) bool { return hasType(err, ErrorTypeUnavailable) }

// HasReason reports whether err is an AppError carrying reason.
func HasReason(err error, reason string) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Reason == reason
}

// IsDuplicateError checks for a unique-constraint violation from any supported driver.
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || // mysql
		strings.Contains(msg, "duplicate key") || // postgres
		strings.Contains(msg, "violates unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed") // sqlite
}
