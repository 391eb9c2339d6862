package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pos-activation/internal/domain"
	"pos-activation/internal/domain/model"
	"pos-activation/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.FeatureRepository = (*featureRepo)(nil)

type featureRepo struct {
	pool *pgxpool.Pool
}

func NewFeatureRepo(pool *pgxpool.Pool) *featureRepo {
	return &featureRepo{pool: pool}
}

const featureColumns = `id, name, description, is_enabled, requires_activation, created_at`

func (r *featureRepo) Create(ctx context.Context, tx repository.Tx, f *model.Feature) error {
	const q = `
INSERT INTO features (id, name, description, is_enabled, requires_activation, created_at)
VALUES ($1, $2, $3, $4, $5, $6);
`
	_, err := execSQL(ctx, r.pool, tx, q, f.ID, f.Name, f.Description, f.Enabled, f.RequiresActivation, f.CreatedAt)
	if errors.Is(err, domain.ErrAlreadyExists) {
		return domain.ErrDuplicateFeature
	}
	return err
}

func (r *featureRepo) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.Feature, error) {
	return r.findOne(ctx, tx, `SELECT `+featureColumns+` FROM features WHERE name = $1;`, name)
}

func (r *featureRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Feature, error) {
	return r.findOne(ctx, tx, `SELECT `+featureColumns+` FROM features WHERE id = $1;`, id)
}

func (r *featureRepo) SetEnabled(ctx context.Context, tx repository.Tx, name string, enabled bool) error {
	tag, err := execSQL(ctx, r.pool, tx, `UPDATE features SET is_enabled = $2 WHERE name = $1;`, name, enabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *featureRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Feature, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+featureColumns+` FROM features ORDER BY seq;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Feature
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *featureRepo) findOne(ctx context.Context, tx repository.Tx, q string, arg string) (*model.Feature, error) {
	row, err := pickRow(ctx, r.pool, tx, q, arg)
	if err != nil {
		return nil, err
	}
	return scanFeature(row)
}

func scanFeature(row pgx.Row) (*model.Feature, error) {
	var f model.Feature
	if err := row.Scan(&f.ID, &f.Name, &f.Description, &f.Enabled, &f.RequiresActivation, &f.CreatedAt); err != nil {
		return nil, scanErr(err)
	}
	return &f, nil
}
