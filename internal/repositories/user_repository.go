package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

// UserRepository reads the display projection maintained by the external
// profile service. Only the fields the chat read side needs.
type UserRepository interface {
	BulkUsers(ctx context.Context, ids []int) ([]models.UserInfo, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// BulkUsers fetches display info for a set of ids in one query.
func (r *UserRepo) BulkUsers(ctx context.Context, ids []int) ([]models.UserInfo, error) {
	if len(ids) == 0 {
		return []models.UserInfo{}, nil
	}
	query, args, err := sqlx.In(`SELECT id, username, avatar_url FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var users []models.UserInfo
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, err
	}
	return users, nil
}
