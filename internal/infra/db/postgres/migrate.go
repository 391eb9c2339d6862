package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pos-activation/internal/domain/ports/repository"
)

//go:embed schema.sql
var schemaSQL string

// migrateLockID serializes concurrent Migrate calls from several replicas.
const migrateLockID int64 = 0x706f735f6b6579

// Migrate applies the idempotent schema under a transaction-scoped advisory lock.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	return NewTxManager(pool).WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, qx repository.Tx) error {
		tx := qx.(pgx.Tx)
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrateLockID); err != nil {
			return fmt.Errorf("acquire migration lock: %w", err)
		}
		if _, err := tx.Exec(ctx, schemaSQL); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		return nil
	})
}
