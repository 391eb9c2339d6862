package sqlite

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"pos-activation/internal/domain"
	"pos-activation/internal/domain/model"
	"pos-activation/internal/domain/ports/repository"
)

var _ repository.FeatureRepository = (*FeatureRepo)(nil)

type FeatureRepo struct {
	db *sqlx.DB
}

func NewFeatureRepo(s *Store) *FeatureRepo {
	return &FeatureRepo{db: s.db}
}

const featureColumns = `id, name, description, is_enabled, requires_activation, created_at`

func (r *FeatureRepo) Create(ctx context.Context, tx repository.Tx, f *model.Feature) error {
	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx,
		`INSERT INTO features (id, name, description, is_enabled, requires_activation, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, f.Description, f.Enabled, f.RequiresActivation, f.CreatedAt.UTC(),
	)
	if err = mapSQLiteError(err); errors.Is(err, domain.ErrAlreadyExists) {
		return domain.ErrDuplicateFeature
	}
	return err
}

func (r *FeatureRepo) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.Feature, error) {
	return r.get(ctx, tx, `SELECT `+featureColumns+` FROM features WHERE name = ?`, name)
}

func (r *FeatureRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Feature, error) {
	return r.get(ctx, tx, `SELECT `+featureColumns+` FROM features WHERE id = ?`, id)
}

func (r *FeatureRepo) SetEnabled(ctx context.Context, tx repository.Tx, name string, enabled bool) error {
	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	res, err := ex.ExecContext(ctx, `UPDATE features SET is_enabled = ? WHERE name = ?`, enabled, name)
	if err != nil {
		return mapSQLiteError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListAll orders by rowid, which grows with every insert and is never reused
// because features are never deleted.
func (r *FeatureRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Feature, error) {
	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	var out []*model.Feature
	if err := sqlx.SelectContext(ctx, ex, &out, `SELECT `+featureColumns+` FROM features ORDER BY rowid`); err != nil {
		return nil, mapSQLiteError(err)
	}
	return out, nil
}

func (r *FeatureRepo) get(ctx context.Context, tx repository.Tx, q string, arg string) (*model.Feature, error) {
	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	var f model.Feature
	if err := sqlx.GetContext(ctx, ex, &f, q, arg); err != nil {
		return nil, scanErr(err)
	}
	return &f, nil
}
