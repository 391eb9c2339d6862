package repository

import (
	"context"

	"pos-activation/internal/domain/model"
)

// BusinessFeatureRepository is the port for the per-business feature ledger.
type BusinessFeatureRepository interface {
	// Upsert inserts or overwrites the single row for (BusinessID, FeatureID).
	Upsert(ctx context.Context, tx Tx, bf *model.BusinessFeature) error
	// Find returns the row for the pair or domain.ErrNotFound.
	Find(ctx context.Context, tx Tx, businessID, featureID string) (*model.BusinessFeature, error)
	// SetActive flips the active flag of an existing row; domain.ErrNotFound when there is none.
	SetActive(ctx context.Context, tx Tx, businessID, featureID string, active bool) error
	ListByBusiness(ctx context.Context, tx Tx, businessID string) ([]*model.BusinessFeature, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.BusinessFeature, error)
}
