package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"pos-activation/internal/domain/model"
	"pos-activation/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.BusinessRepository = (*businessRepo)(nil)

type businessRepo struct {
	pool *pgxpool.Pool
}

func NewBusinessRepo(pool *pgxpool.Pool) *businessRepo {
	return &businessRepo{pool: pool}
}

func (r *businessRepo) Exists(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT EXISTS (SELECT 1 FROM businesses WHERE id = $1);`, id)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, scanErr(err)
	}
	return ok, nil
}

func (r *businessRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Business, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT id, name, created_at FROM businesses WHERE id = $1;`, id)
	if err != nil {
		return nil, err
	}
	var b model.Business
	if err := row.Scan(&b.ID, &b.Name, &b.CreatedAt); err != nil {
		return nil, scanErr(err)
	}
	return &b, nil
}

func (r *businessRepo) List(ctx context.Context, tx repository.Tx) ([]*model.Business, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT id, name, created_at FROM businesses ORDER BY name, id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Business
	for rows.Next() {
		var b model.Business
		if err := rows.Scan(&b.ID, &b.Name, &b.CreatedAt); err != nil {
			return nil, scanErr(err)
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

func (r *businessRepo) Save(ctx context.Context, tx repository.Tx, b *model.Business) error {
	const q = `
INSERT INTO businesses (id, name, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name;
`
	_, err := execSQL(ctx, r.pool, tx, q, b.ID, b.Name, b.CreatedAt)
	return err
}
