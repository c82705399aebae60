package repository

import (
	"context"

	"github.com/ncnews/ncnews-backend/internal/db/entities"
)

func (r *Repository) ListUsers(ctx context.Context) ([]entities.User, error) {
	users := []entities.User{}
	err := r.selectAll(ctx, "list users", &users,
		`SELECT username, name, avatar_url FROM users ORDER BY username`)
	return users, err
}

// GetUser returns db.ErrNotFound (wrapped) for an unknown username.
func (r *Repository) GetUser(ctx context.Context, username string) (entities.User, error) {
	var user entities.User
	err := r.get(ctx, "get user", &user,
		`SELECT username, name, avatar_url FROM users WHERE username = ?`, username)
	return user, err
}

func (r *Repository) UserExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "user exists", `SELECT 1 FROM users WHERE username = ?`, username)
}
