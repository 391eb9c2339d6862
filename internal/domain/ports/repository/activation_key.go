package repository

import (
	"context"
	"time"

	"pos-activation/internal/domain/model"
)

// ActivationKeyRepository is the port for issued activation keys.
type ActivationKeyRepository interface {
	// Create persists a freshly issued key. A digest collision yields domain.ErrAlreadyExists.
	Create(ctx context.Context, tx Tx, key *model.ActivationKey) error
	// FindByDigest returns the key with the given digest, used or not, or domain.ErrNotFound.
	FindByDigest(ctx context.Context, tx Tx, digest string) (*model.ActivationKey, error)
	// MarkUsed flips used=false to true for the key. It reports false when the key
	// was already used (or missing), which is how concurrent redemptions lose.
	MarkUsed(ctx context.Context, tx Tx, id string, usedAt time.Time) (bool, error)
	// ListByBusiness returns a business's keys, newest first.
	ListByBusiness(ctx context.Context, tx Tx, businessID string) ([]*model.ActivationKey, error)
	// ListAll returns every key, newest first.
	ListAll(ctx context.Context, tx Tx) ([]*model.ActivationKey, error)
}
