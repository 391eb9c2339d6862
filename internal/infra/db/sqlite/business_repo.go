package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"

	"pos-activation/internal/domain/model"
	"pos-activation/internal/domain/ports/repository"
)

var _ repository.BusinessRepository = (*BusinessRepo)(nil)

type BusinessRepo struct {
	db *sqlx.DB
}

func NewBusinessRepo(s *Store) *BusinessRepo {
	return &BusinessRepo{db: s.db}
}

func (r *BusinessRepo) Exists(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := sqlx.GetContext(ctx, ex, &ok, `SELECT EXISTS (SELECT 1 FROM businesses WHERE id = ?)`, id); err != nil {
		return false, scanErr(err)
	}
	return ok, nil
}

func (r *BusinessRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Business, error) {
	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	var b model.Business
	if err := sqlx.GetContext(ctx, ex, &b, `SELECT id, name, created_at FROM businesses WHERE id = ?`, id); err != nil {
		return nil, scanErr(err)
	}
	return &b, nil
}

func (r *BusinessRepo) List(ctx context.Context, tx repository.Tx) ([]*model.Business, error) {
	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	var out []*model.Business
	if err := sqlx.SelectContext(ctx, ex, &out, `SELECT id, name, created_at FROM businesses ORDER BY name, id`); err != nil {
		return nil, mapSQLiteError(err)
	}
	return out, nil
}

func (r *BusinessRepo) Save(ctx context.Context, tx repository.Tx, b *model.Business) error {
	ex, err := getExecutor(r.db, tx)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx,
		`INSERT INTO businesses (id, name, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name`,
		b.ID, b.Name, b.CreatedAt.UTC())
	return mapSQLiteError(err)
}
