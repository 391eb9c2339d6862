package repository

import (
	"context"

	"pos-activation/internal/domain/model"
)

// FeatureRepository is the port for the feature registry.
type FeatureRepository interface {
	// Create inserts a feature; a taken name yields domain.ErrDuplicateFeature.
	Create(ctx context.Context, tx Tx, f *model.Feature) error
	FindByName(ctx context.Context, tx Tx, name string) (*model.Feature, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.Feature, error)
	// SetEnabled toggles the global flag; domain.ErrNotFound when the name is unknown.
	SetEnabled(ctx context.Context, tx Tx, name string, enabled bool) error
	// ListAll returns features in creation order.
	ListAll(ctx context.Context, tx Tx) ([]*model.Feature, error)
}
