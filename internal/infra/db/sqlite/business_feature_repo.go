package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"

	"pos-activation/internal/domain"
	"pos-activation/internal/domain/model"
	"pos-activation/internal/domain/ports/repository"
)

var _ repository.BusinessFeatureRepository = (*BusinessFeatureRepo)(nil)

type BusinessFeatureRepo struct {
	db *sqlx.DB
}

func NewBusinessFeatureRepo(s *Store) *BusinessFeatureRepo {
	return &BusinessFeatureRepo{db: s.db}
}

const businessFeatureColumns = `id, business_id, feature_id, is_active, activated_at, activation_key_id`

func (r *BusinessFeatureRepo) Upsert(ctx context.Context, tx repository.Tx, bf *model.BusinessFeature) error {
	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `
INSERT INTO business_features (`+businessFeatureColumns+`)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (business_id, feature_id) DO UPDATE SET
  is_active = excluded.is_active,
  activated_at = excluded.activated_at,
  activation_key_id = excluded.activation_key_id`,
		bf.ID, bf.BusinessID, bf.FeatureID, bf.Active, bf.ActivatedAt.UTC(), bf.ActivationKeyID,
	)
	return mapSQLiteError(err)
}

func (r *BusinessFeatureRepo) Find(ctx context.Context, tx repository.Tx, businessID, featureID string) (*model.BusinessFeature, error) {
	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	var bf model.BusinessFeature
	err = sqlx.GetContext(ctx, ex, &bf,
		`SELECT `+businessFeatureColumns+` FROM business_features WHERE business_id = ? AND feature_id = ?`,
		businessID, featureID)
	if err != nil {
		return nil, scanErr(err)
	}
	return &bf, nil
}

func (r *BusinessFeatureRepo) SetActive(ctx context.Context, tx repository.Tx, businessID, featureID string, active bool) error {
	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	res, err := ex.ExecContext(ctx,
		`UPDATE business_features SET is_active = ? WHERE business_id = ? AND feature_id = ?`,
		active, businessID, featureID)
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

func (r *BusinessFeatureRepo) ListByBusiness(ctx context.Context, tx repository.Tx, businessID string) ([]*model.BusinessFeature, error) {
	return r.list(ctx, tx, `SELECT `+businessFeatureColumns+` FROM business_features WHERE business_id = ? ORDER BY activated_at`, businessID)
}

func (r *BusinessFeatureRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.BusinessFeature, error) {
	return r.list(ctx, tx, `SELECT `+businessFeatureColumns+` FROM business_features ORDER BY business_id, activated_at`)
}

func (r *BusinessFeatureRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.BusinessFeature, error) {
	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	var out []*model.BusinessFeature
	if err := sqlx.SelectContext(ctx, ex, &out, q, args...); err != nil {
		return nil, mapSQLiteError(err)
	}
	return out, nil
}
