// Package common defines shared constants and sentinel errors used across
// client and server layers of Keepsafe. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound           = errors.New("not found")
	ErrStorageUnavailable = errors.New("local storage unavailable")

	// Remote service errors. An unavailable remote means the request never
	// reached a healthy server (network failure, timeout, 5xx); a rejected
	// request reached the server and was refused.
	ErrRemoteUnavailable = errors.New("remote service unavailable")
	ErrRemoteRejected    = errors.New("remote service rejected request")

	// Auth errors.
	ErrUnauthenticated  = errors.New("no authenticated user")
	ErrDuplicateAccount = errors.New("account already exists")
	ErrInvalidToken     = errors.New("invalid token")

	// Validation errors.
	ErrUnknownTable = errors.New("unknown table")
)

// StorageError tags a driver error as a local-storage failure so callers can
// match it with errors.Is(err, ErrStorageUnavailable). Sentinels that already
// carry a meaning of their own (e.g. ErrNotFound) pass through untouched.
func StorageError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorageUnavailable) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateAccount) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}
