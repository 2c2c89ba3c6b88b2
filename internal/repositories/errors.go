package repositories

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrStaleState is returned by conditional updates that matched no row
	ErrStaleState = errors.New("record changed since it was read")

	ErrInvalidToken  = errors.New("invalid or expired session token")
	ErrAccountExists = errors.New("account already exists")
	ErrIdentity      = errors.New("identity provider request failed")
)

// IsNotFoundError reports whether err means the requested row does not exist
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError reports a unique constraint violation. The connection must be
// opened with TranslateError enabled.
func IsDuplicateError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func IsStaleStateError(err error) bool {
	return errors.Is(err, ErrStaleState)
}
