package repository

import (
	"context"
	"time"

	"sketch_club/internal/models"
)

type roundRepository struct {
	*baseRepository
}

func (r *roundRepository) Create(ctx context.Context, round *models.Round) error {
	return r.insert(ctx, round)
}

func (r *roundRepository) FindByID(ctx context.Context, id string) (*models.Round, error) {
	var round models.Round
	if err := r.selectOne(ctx, &round, Filter{"id": id}); err != nil {
		return nil, err
	}
	return &round, nil
}

func (r *roundRepository) FindOpenByRoom(ctx context.Context, roomID string) (*models.Round, error) {
	var round models.Round
	if err := r.selectOne(ctx, &round, Filter{"room_id": roomID, "ended_at": nil}); err != nil {
		return nil, err
	}
	return &round, nil
}

func (r *roundRepository) Close(ctx context.Context, id string, guesserID *string, at time.Time) (bool, error) {
	rows, err := r.update(ctx, &models.Round{}, Filter{"id": id, "ended_at": nil}, map[string]interface{}{
		"ended_at":           at,
		"correct_guesser_id": guesserID,
	})
	return rows == 1, err
}

func (r *roundRepository) DeleteByRoom(ctx context.Context, roomID string) error {
	return r.delete(ctx, &models.Round{}, Filter{"room_id": roomID})
}

func (r *roundRepository) ListOpen(ctx context.Context) ([]models.Round, error) {
	var rounds []models.Round
	if err := r.selectMany(ctx, &rounds, Filter{"ended_at": nil}, "started_at"); err != nil {
		return nil, err
	}
	return rounds, nil
}
