package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid database execution context")

	// Feature registry
	ErrInvalidFeatureName = fmt.Errorf("%w: feature name must be snake_case (a-z, 0-9, _), start with a letter and be 2-64 characters", ErrInvalidArgument)
	ErrDuplicateFeature   = errors.New("feature already exists")
	ErrUnknownFeature     = errors.New("unknown feature")
	ErrActivationRequired = errors.New("feature requires an activation key")

	// Businesses
	ErrUnknownBusiness = errors.New("unknown business")

	// Redemption outcomes. ErrInvalidKey covers missing, malformed and
	// foreign keys alike so callers cannot probe for other tenants' keys.
	ErrInvalidKey           = errors.New("invalid activation key")
	ErrKeyAlreadyUsed       = errors.New("activation key already used")
	ErrKeyExpired           = errors.New("activation key expired")
	ErrFeatureDisabled      = errors.New("feature is disabled")
	ErrConcurrentRedemption = errors.New("concurrent redemption conflict")
	ErrTooManyAttempts      = errors.New("too many redemption attempts")
)
