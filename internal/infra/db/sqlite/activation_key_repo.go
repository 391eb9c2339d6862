package sqlite

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"pos-activation/internal/domain/model"
	"pos-activation/internal/domain/ports/repository"
)

var _ repository.ActivationKeyRepository = (*ActivationKeyRepo)(nil)

type ActivationKeyRepo struct {
	db *sqlx.DB
}

func NewActivationKeyRepo(s *Store) *ActivationKeyRepo {
	return &ActivationKeyRepo{db: s.db}
}

const activationKeyColumns = `id, key_digest, key_prefix, business_id, feature_id, expires_at, is_used, used_at, created_at`

func (r *ActivationKeyRepo) Create(ctx context.Context, tx repository.Tx, k *model.ActivationKey) error {
	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx,
		`INSERT INTO activation_keys (`+activationKeyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		k.ID, k.KeyDigest, k.KeyPrefix, k.BusinessID, k.FeatureID, utcPtr(k.ExpiresAt), k.Used, utcPtr(k.UsedAt), k.CreatedAt.UTC(),
	)
	return mapSQLiteError(err)
}

func (r *ActivationKeyRepo) FindByDigest(ctx context.Context, tx repository.Tx, digest string) (*model.ActivationKey, error) {
	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	var k model.ActivationKey
	if err := sqlx.GetContext(ctx, ex, &k, `SELECT `+activationKeyColumns+` FROM activation_keys WHERE key_digest = ?`, digest); err != nil {
		return nil, scanErr(err)
	}
	return &k, nil
}

// MarkUsed flips is_used only while it is still false; the affected row count
// tells the caller whether it won.
func (r *ActivationKeyRepo) MarkUsed(ctx context.Context, tx repository.Tx, id string, usedAt time.Time) (bool, error) {
	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return false, err
	}
	res, err := ex.ExecContext(ctx, `UPDATE activation_keys SET is_used = 1, used_at = ? WHERE id = ? AND is_used = 0`, usedAt.UTC(), id)
	if err != nil {
		return false, mapSQLiteError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *ActivationKeyRepo) ListByBusiness(ctx context.Context, tx repository.Tx, businessID string) ([]*model.ActivationKey, error) {
	return r.list(ctx, tx, `SELECT `+activationKeyColumns+` FROM activation_keys WHERE business_id = ? ORDER BY created_at DESC, id DESC`, businessID)
}

func (r *ActivationKeyRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.ActivationKey, error) {
	return r.list(ctx, tx, `SELECT `+activationKeyColumns+` FROM activation_keys ORDER BY created_at DESC, id DESC`)
}

func (r *ActivationKeyRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.ActivationKey, error) {
	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	var out []*model.ActivationKey
	if err := sqlx.SelectContext(ctx, ex, &out, q, args...); err != nil {
		return nil, mapSQLiteError(err)
	}
	return out, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
