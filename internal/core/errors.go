package core

import (
	"errors"
	"fmt"

	"github.com/vovakirdan/wirechat-channels/internal/store"
)

// Error codes sent to clients.
const (
	ErrCodeInvalidName     = "invalid_name"
	ErrCodeChannelExists   = "channel_exists"
	ErrCodeChannelNotFound = "channel_not_found"
	ErrCodeNotIdentified   = "not_identified"
	ErrCodeAccessDenied    = "access_denied"
	ErrCodeNotInChannel    = "not_in_channel"
	ErrCodeBadRequest      = "bad_request"
	ErrCodeIOFailure       = "io_failure"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeInternal        = "internal"
)

var (
	ErrInvalidName     = errors.New("invalid channel name")
	ErrChannelExists   = errors.New("channel already exists")
	ErrChannelNotFound = errors.New("channel not found")
	ErrNotIdentified   = errors.New("connection has not identified")
	ErrAccessDenied    = errors.New("access denied")
	ErrNotMember       = errors.New("not in channel")
	ErrBadRequest      = errors.New("bad request")
	ErrIOFailure       = errors.New("storage failure")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// ToCoreError maps a domain error onto its wire code. Storage details are
// never leaked to clients.
func ToCoreError(err error) *CoreError {
	var ce *CoreError
	switch {
	case errors.As(err, &ce):
		return ce
	case errors.Is(err, ErrInvalidName):
		return coreError(ErrCodeInvalidName, ErrInvalidName.Error())
	case errors.Is(err, ErrChannelExists):
		return coreError(ErrCodeChannelExists, ErrChannelExists.Error())
	case errors.Is(err, ErrChannelNotFound):
		return coreError(ErrCodeChannelNotFound, ErrChannelNotFound.Error())
	case errors.Is(err, ErrNotIdentified):
		return coreError(ErrCodeNotIdentified, ErrNotIdentified.Error())
	case errors.Is(err, ErrAccessDenied):
		return coreError(ErrCodeAccessDenied, ErrAccessDenied.Error())
	case errors.Is(err, ErrNotMember):
		return coreError(ErrCodeNotInChannel, ErrNotMember.Error())
	case errors.Is(err, ErrBadRequest):
		return coreError(ErrCodeBadRequest, ErrBadRequest.Error())
	case errors.Is(err, ErrIOFailure):
		return coreError(ErrCodeIOFailure, "message could not be stored")
	default:
		return coreError(ErrCodeInternal, "internal error")
	}
}

// fromStoreError translates backend errors into domain errors. Anything the
// store does not name is an I/O failure.
func fromStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrChannelExists):
		return ErrChannelExists
	case errors.Is(err, store.ErrChannelNotFound):
		return ErrChannelNotFound
	case errors.Is(err, store.ErrInvalidName):
		return ErrInvalidName
	default:
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
}
