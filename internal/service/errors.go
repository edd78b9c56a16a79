package service

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("already exists")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrExtractionEmpty = errors.New("no foods detected in image")
	ErrModelCall       = errors.New("model call failed")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrValidation) true for every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func notFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}

func conflict(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}

func modelFailure(err error) error {
	return fmt.Errorf("%w: %v", ErrModelCall, err)
}

func requireUser(userID string) error {
	if userID == "" {
		return ErrUnauthorized
	}
	return nil
}

func isTyped(err error) bool {
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrUnauthorized, ErrExtractionEmpty, ErrModelCall} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// storeFault logs an unexpected store error and wraps it. Typed errors pass through.
func storeFault(log logrus.FieldLogger, op, userID string, err error) error {
	if err == nil || isTyped(err) {
		return err
	}
	log.WithFields(logrus.Fields{"user_id": userID, "op": op}).WithError(err).Error("store operation failed")
	return fmt.Errorf("%s failed: %w", op, err)
}
