package repository

import (
	"context"
	"time"

	"sketch_club/internal/models"
)

type roomRepository struct {
	*baseRepository
}

func (r *roomRepository) Create(ctx context.Context, room *models.Room) error {
	return r.insert(ctx, room)
}

func (r *roomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	if err := r.selectOne(ctx, &room, Filter{"id": id}); err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) FindByCode(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	if err := r.selectOne(ctx, &room, Filter{"code": code}); err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) UpdateGameState(ctx context.Context, id string, guard models.GameStateGuard, state models.GameState, at time.Time) (bool, error) {
	filter := Filter{"id": id}
	if guard.Status != "" {
		filter["game_status"] = string(guard.Status)
	}
	if guard.CurrentRound != nil {
		filter["game_current_round"] = *guard.CurrentRound
	}

	rows, err := r.update(ctx, &models.Room{}, filter, map[string]interface{}{
		"game_status":        string(state.Status),
		"game_current_round": state.CurrentRound,
		"game_total_rounds":  state.TotalRounds,
		"game_category":      state.Category,
		"game_artist_id":     state.ArtistID,
		"last_activity":      at,
	})
	return rows > 0, err
}

func (r *roomRepository) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := r.update(ctx, &models.Room{}, Filter{"id": id}, map[string]interface{}{"last_activity": at})
	return err
}

func (r *roomRepository) ListByStatus(ctx context.Context, status models.RoomStatus) ([]models.Room, error) {
	var rooms []models.Room
	if err := r.selectMany(ctx, &rooms, Filter{"game_status": string(status)}, "created_at"); err != nil {
		return nil, err
	}
	return rooms, nil
}
