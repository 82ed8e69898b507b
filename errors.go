// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package pixstream

import (
	"errors"
	"fmt"
)

// ErrorCode represents specific error categories for stream decoding.
type ErrorCode int

const (
	// ErrInvalidMagic indicates a progressive stream whose header magic does not match.
	ErrInvalidMagic ErrorCode = iota
	// ErrInvalidLayerMarker indicates a corrupt layer-start byte.
	ErrInvalidLayerMarker
	// ErrDegenerateDimensions indicates a header with a zero width or height.
	ErrDegenerateDimensions
	// ErrTruncated indicates the source ended before the image was complete.
	ErrTruncated
	// ErrCanceled indicates the read loop was torn down by its context.
	ErrCanceled
	// ErrSource indicates the chunk source failed.
	ErrSource
	// ErrConfiguration indicates a configuration error.
	ErrConfiguration
	// ErrValidation indicates input validation failure.
	ErrValidation
	// ErrImageTooLarge indicates a header whose layers would exceed MaxLayerPixels.
	ErrImageTooLarge
)

// String returns the string representation of the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrInvalidMagic:
		return "invalid magic"
	case ErrInvalidLayerMarker:
		return "invalid layer marker"
	case ErrDegenerateDimensions:
		return "degenerate dimensions"
	case ErrTruncated:
		return "truncated"
	case ErrCanceled:
		return "canceled"
	case ErrSource:
		return "source"
	case ErrConfiguration:
		return "configuration"
	case ErrValidation:
		return "validation"
	case ErrImageTooLarge:
		return "image too large"
	default:
		return "unknown"
	}
}

// IsFormatError reports whether the code describes malformed stream content.
func (e ErrorCode) IsFormatError() bool {
	return e == ErrInvalidMagic || e == ErrInvalidLayerMarker || e == ErrDegenerateDimensions
}

// DecodeError provides structured error information with operation context,
// error codes, and message wrapping.
type DecodeError struct {
	Op      string
	Code    ErrorCode
	Message string
	Err     error
}

// Error returns the formatted error message.
func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pixstream %s: %s: %s: %v", e.Code.String(), e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("pixstream %s: %s: %s", e.Code.String(), e.Op, e.Message)
}

// Unwrap returns the underlying error for error chain unwrapping.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is reports whether this error matches the target error.
// A target with an empty Op matches on Code alone.
func (e *DecodeError) Is(target error) bool {
	var decErr *DecodeError
	if errors.As(target, &decErr) {
		return e.Code == decErr.Code && (decErr.Op == "" || e.Op == decErr.Op)
	}
	return false
}

// NewDecodeError creates a new DecodeError with the specified parameters.
func NewDecodeError(op string, code ErrorCode, message string, err error) *DecodeError {
	return &DecodeError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WrapError wraps an existing error with decoder context.
// Returns nil if the input error is nil.
func WrapError(op string, code ErrorCode, message string, err error) error {
	if err == nil {
		return nil
	}
	return NewDecodeError(op, code, message, err)
}

// IsDecodeError checks if an error is a DecodeError and optionally matches specific error codes.
// If no codes are provided, returns true for any DecodeError.
func IsDecodeError(err error, code ...ErrorCode) bool {
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		return false
	}

	if len(code) == 0 {
		return true
	}

	for _, c := range code {
		if decErr.Code == c {
			return true
		}
	}
	return false
}

// GetErrorCode extracts the error code from a DecodeError.
// Returns -1 if the error is not a DecodeError.
func GetErrorCode(err error) ErrorCode {
	var decErr *DecodeError
	if errors.As(err, &decErr) {
		return decErr.Code
	}
	return ErrorCode(-1)
}

func invalidMagicError(op, message string) error {
	return NewDecodeError(op, ErrInvalidMagic, message, nil)
}

func invalidLayerMarkerError(op, message string) error {
	return NewDecodeError(op, ErrInvalidLayerMarker, message, nil)
}

func degenerateDimensionsError(op, message string) error {
	return NewDecodeError(op, ErrDegenerateDimensions, message, nil)
}

func imageTooLargeError(op, message string) error {
	return NewDecodeError(op, ErrImageTooLarge, message, nil)
}

func truncatedError(op, message string) error {
	return NewDecodeError(op, ErrTruncated, message, nil)
}

func canceledError(op string, err error) error {
	return NewDecodeError(op, ErrCanceled, "read loop canceled", err)
}

func sourceError(op, message string, err error) error {
	return NewDecodeError(op, ErrSource, message, err)
}

func configurationError(op, message string, err error) error {
	return NewDecodeError(op, ErrConfiguration, message, err)
}

func validationError(op, message string, err error) error {
	return NewDecodeError(op, ErrValidation, message, err)
}
