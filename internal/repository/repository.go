package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ncnews/ncnews-backend/internal/db"
)

// Repository issues one parameterized statement per entity operation. The
// same methods run against the pool or, inside InTx, against a transaction.
type Repository struct {
	db     *sqlx.DB
	ext    sqlx.ExtContext
	inTx   bool
	logger *zap.SugaredLogger
}

func NewRepository(conn *sqlx.DB, logger *zap.SugaredLogger) *Repository {
	return &Repository{
		db:     conn,
		ext:    conn,
		logger: logger,
	}
}

// InTx runs fn against a repository bound to a single transaction. It commits
// when fn returns nil and rolls back otherwise. Nested calls reuse the outer
// transaction.
func (r *Repository) InTx(ctx context.Context, fn func(tx *Repository) error) error {
	if r.inTx {
		return fn(r)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Repository{db: r.db, ext: tx, inTx: true, logger: r.logger}); err != nil {
		r.logger.Debugw("Transaction rolled back", "error", err)
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) get(ctx context.Context, op string, dest any, query string, args ...any) error {
	if err := sqlx.GetContext(ctx, r.ext, dest, r.ext.Rebind(query), args...); err != nil {
		return db.Classify(op, err)
	}
	return nil
}

func (r *Repository) selectAll(ctx context.Context, op string, dest any, query string, args ...any) error {
	if err := sqlx.SelectContext(ctx, r.ext, dest, r.ext.Rebind(query), args...); err != nil {
		return db.Classify(op, err)
	}
	return nil
}

func (r *Repository) exec(ctx context.Context, op string, query string, args ...any) (int64, error) {
	res, err := r.ext.ExecContext(ctx, r.ext.Rebind(query), args...)
	if err != nil {
		return 0, db.Classify(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, db.Classify(op, err)
	}
	return n, nil
}

func (r *Repository) exists(ctx context.Context, op string, query string, args ...any) (bool, error) {
	var found bool
	if err := r.get(ctx, op, &found, "SELECT EXISTS ("+query+")", args...); err != nil {
		return false, err
	}
	return found, nil
}
