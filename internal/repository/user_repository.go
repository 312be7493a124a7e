package repository

import (
	"context"

	"sketch_club/internal/models"
)

type userRepository struct {
	*baseRepository
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.insert(ctx, user)
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.selectOne(ctx, &user, Filter{"username": username}); err != nil {
		return nil, err
	}
	return &user, nil
}
