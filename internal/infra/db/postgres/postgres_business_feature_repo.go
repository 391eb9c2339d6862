package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pos-activation/internal/domain"
	"pos-activation/internal/domain/model"
	"pos-activation/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.BusinessFeatureRepository = (*businessFeatureRepo)(nil)

type businessFeatureRepo struct {
	pool *pgxpool.Pool
}

func NewBusinessFeatureRepo(pool *pgxpool.Pool) *businessFeatureRepo {
	return &businessFeatureRepo{pool: pool}
}

const businessFeatureColumns = `id, business_id, feature_id, is_active, activated_at, activation_key_id`

// Upsert keeps one row per (business, feature); a re-activation overwrites it
// in place and the original row id survives.
func (r *businessFeatureRepo) Upsert(ctx context.Context, tx repository.Tx, bf *model.BusinessFeature) error {
	const q = `
INSERT INTO business_features (id, business_id, feature_id, is_active, activated_at, activation_key_id)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (business_id, feature_id) DO UPDATE SET
  is_active = EXCLUDED.is_active,
  activated_at = EXCLUDED.activated_at,
  activation_key_id = EXCLUDED.activation_key_id;
`
	_, err := execSQL(ctx, r.pool, tx, q, bf.ID, bf.BusinessID, bf.FeatureID, bf.Active, bf.ActivatedAt, bf.ActivationKeyID)
	return err
}

func (r *businessFeatureRepo) Find(ctx context.Context, tx repository.Tx, businessID, featureID string) (*model.BusinessFeature, error) {
	const q = `SELECT ` + businessFeatureColumns + ` FROM business_features WHERE business_id = $1 AND feature_id = $2;`
	row, err := pickRow(ctx, r.pool, tx, q, businessID, featureID)
	if err != nil {
		return nil, err
	}
	return scanBusinessFeature(row)
}

func (r *businessFeatureRepo) SetActive(ctx context.Context, tx repository.Tx, businessID, featureID string, active bool) error {
	const q = `UPDATE business_features SET is_active = $3 WHERE business_id = $1 AND feature_id = $2;`
	tag, err := execSQL(ctx, r.pool, tx, q, businessID, featureID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *businessFeatureRepo) ListByBusiness(ctx context.Context, tx repository.Tx, businessID string) ([]*model.BusinessFeature, error) {
	return r.list(ctx, tx, `SELECT `+businessFeatureColumns+` FROM business_features WHERE business_id = $1 ORDER BY activated_at;`, businessID)
}

func (r *businessFeatureRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.BusinessFeature, error) {
	return r.list(ctx, tx, `SELECT `+businessFeatureColumns+` FROM business_features ORDER BY business_id, activated_at;`)
}

func (r *businessFeatureRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.BusinessFeature, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.BusinessFeature
	for rows.Next() {
		bf, err := scanBusinessFeature(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, bf)
	}
	return out, rows.Err()
}

func scanBusinessFeature(row pgx.Row) (*model.BusinessFeature, error) {
	var bf model.BusinessFeature
	if err := row.Scan(&bf.ID, &bf.BusinessID, &bf.FeatureID, &bf.Active, &bf.ActivatedAt, &bf.ActivationKeyID); err != nil {
		return nil, scanErr(err)
	}
	return &bf, nil
}
