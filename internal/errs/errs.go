package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying every failure the services surface.
// Handlers map these to HTTP statuses with errors.Is.
var (
	// ErrNotFound covers missing templates, report files/rows and log files.
	ErrNotFound = errors.New("not found")

	// ErrConflict covers duplicate template names.
	ErrConflict = errors.New("conflict")

	// ErrValidation covers malformed or inconsistent requests.
	ErrValidation = errors.New("validation error")

	// ErrGeneration covers fetch/render/write failures during report
	// generation. Terminal for the request, never retried.
	ErrGeneration = errors.New("generation failure")

	// ErrStorage covers row insert/delete failures in the report store.
	ErrStorage = errors.New("storage failure")
)

// NotFoundf wraps ErrNotFound with a descriptive message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// Conflictf wraps ErrConflict with a descriptive message.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrConflict)...)
}

// Validationf wraps ErrValidation with a descriptive message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}

// Generationf wraps ErrGeneration with a descriptive message and cause.
func Generationf(err error, format string, args ...any) error {
	return fmt.Errorf(format+": %v: %w", append(args, err, ErrGeneration)...)
}

// Storagef wraps ErrStorage with a descriptive message and cause.
func Storagef(err error, format string, args ...any) error {
	return fmt.Errorf(format+": %v: %w", append(args, err, ErrStorage)...)
}
