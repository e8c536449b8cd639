// Package service implements court reservations: the reservation
// lifecycle, slot availability, invite and short-URL access, participant
// status and reservation messages.  Every failure returned to callers wraps
// exactly one of the sentinel errors below so the HTTP layer can map it to
// a status code with errors.Is.
package service

import (
	"errors"
	"fmt"

	"github.com/courtshare/courtshare/internal/repository"
)

var (
	// ErrUnauthorized: no or invalid caller identity, or a wrong shared password.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden: valid identity without permission for the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound: the entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExpired: the invite is past its expiry.
	ErrExpired = errors.New("expired")
	// ErrConflict: duplicate join, double booking or an already-used invite.
	ErrConflict = errors.New("conflict")
	// ErrValidation: malformed or missing input.
	ErrValidation = errors.New("validation failed")
)

func validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func forbidden(msg string) error { return fmt.Errorf("%w: %s", ErrForbidden, msg) }

func conflict(msg string) error { return fmt.Errorf("%w: %s", ErrConflict, msg) }

func notFound(what string) error { return fmt.Errorf("%w: %s not found", ErrNotFound, what) }

// storageErr maps repository sentinels onto the service taxonomy so that
// raw driver errors never reach callers.  what names the entity for
// not-found messages.
func storageErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return notFound(what)
	case errors.Is(err, repository.ErrConflict):
		return conflict(what + " already exists")
	case errors.Is(err, repository.ErrInvalid):
		return validation("%s rejected by storage constraints", what)
	}
	return err
}
