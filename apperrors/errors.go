package apperrors

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures so callers can branch without matching strings
type ErrorType string

const (
	TypeUnavailable ErrorType = "unavailable"
	TypeFatalStage  ErrorType = "fatal_stage"
	TypeValidation  ErrorType = "validation"
	TypeNotFound    ErrorType = "not_found"
	TypeInternal    ErrorType = "internal"
)

// AppError carries a type, a human-readable message and an optional cause
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(t ErrorType, message string, err error) *AppError {
	return &AppError{Type: t, Message: message, Err: err}
}

// NewFatalStage marks an error that halts the pipeline at the current stage.
func NewFatalStage(message string, err error) *AppError {
	return New(TypeFatalStage, message, err)
}

func NewUnavailable(message string) *AppError {
	return New(TypeUnavailable, message, nil)
}

func NewValidation(message string, err error) *AppError {
	return New(TypeValidation, message, err)
}

func NewNotFound(message string) *AppError {
	return New(TypeNotFound, message, nil)
}

// Wrap returns err unchanged if it is already an AppError, otherwise wraps it as internal.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return New(TypeInternal, message, err)
}

// TypeOf returns the type of the first AppError in err's chain, or TypeInternal.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return TypeInternal
}

func IsFatalStage(err error) bool {
	return err != nil && TypeOf(err) == TypeFatalStage
}

func IsUnavailable(err error) bool {
	return err != nil && TypeOf(err) == TypeUnavailable
}

func IsValidation(err error) bool {
	return err != nil && TypeOf(err) == TypeValidation
}

func IsNotFound(err error) bool {
	return err != nil && TypeOf(err) == TypeNotFound
}
