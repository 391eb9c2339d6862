package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pos-activation/internal/domain/model"
	"pos-activation/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.ActivationKeyRepository = (*activationKeyRepo)(nil)

type activationKeyRepo struct {
	pool *pgxpool.Pool
}

func NewActivationKeyRepo(pool *pgxpool.Pool) *activationKeyRepo {
	return &activationKeyRepo{pool: pool}
}

const activationKeyColumns = `id, key_digest, key_prefix, business_id, feature_id, expires_at, is_used, used_at, created_at`

func (r *activationKeyRepo) Create(ctx context.Context, tx repository.Tx, k *model.ActivationKey) error {
	const q = `
INSERT INTO activation_keys (id, key_digest, key_prefix, business_id, feature_id, expires_at, is_used, used_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`
	_, err := execSQL(ctx, r.pool, tx, q,
		k.ID, k.KeyDigest, k.KeyPrefix, k.BusinessID, k.FeatureID, k.ExpiresAt, k.Used, k.UsedAt, k.CreatedAt,
	)
	return err
}

// FindByDigest returns the key regardless of its used flag; callers decide.
func (r *activationKeyRepo) FindByDigest(ctx context.Context, tx repository.Tx, digest string) (*model.ActivationKey, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+activationKeyColumns+` FROM activation_keys WHERE key_digest = $1;`, digest)
	if err != nil {
		return nil, err
	}
	return scanActivationKey(row)
}

// MarkUsed is the compare-and-set that decides concurrent redemptions:
// only the statement that still sees is_used = FALSE updates a row.
func (r *activationKeyRepo) MarkUsed(ctx context.Context, tx repository.Tx, id string, usedAt time.Time) (bool, error) {
	const q = `
UPDATE activation_keys
   SET is_used = TRUE, used_at = $2
 WHERE id = $1 AND is_used = FALSE;
`
	tag, err := execSQL(ctx, r.pool, tx, q, id, usedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *activationKeyRepo) ListByBusiness(ctx context.Context, tx repository.Tx, businessID string) ([]*model.ActivationKey, error) {
	return r.list(ctx, tx, `SELECT `+activationKeyColumns+` FROM activation_keys WHERE business_id = $1 ORDER BY created_at DESC, id DESC;`, businessID)
}

func (r *activationKeyRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.ActivationKey, error) {
	return r.list(ctx, tx, `SELECT `+activationKeyColumns+` FROM activation_keys ORDER BY created_at DESC, id DESC;`)
}

func (r *activationKeyRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.ActivationKey, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ActivationKey
	for rows.Next() {
		k, err := scanActivationKey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func scanActivationKey(row pgx.Row) (*model.ActivationKey, error) {
	var k model.ActivationKey
	err := row.Scan(&k.ID, &k.KeyDigest, &k.KeyPrefix, &k.BusinessID, &k.FeatureID, &k.ExpiresAt, &k.Used, &k.UsedAt, &k.CreatedAt)
	if err != nil {
		return nil, scanErr(err)
	}
	return &k, nil
}
