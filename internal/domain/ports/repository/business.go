package repository

import (
	"context"

	"pos-activation/internal/domain/model"
)

// BusinessRepository resolves business identities owned by the POS application.
type BusinessRepository interface {
	Exists(ctx context.Context, tx Tx, id string) (bool, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.Business, error)
	List(ctx context.Context, tx Tx) ([]*model.Business, error)
	// Save creates or renames a business (seeding and tests).
	Save(ctx context.Context, tx Tx, b *model.Business) error
}
