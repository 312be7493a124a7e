package repository

import (
	"context"

	"gorm.io/gorm"

	"sketch_club/internal/models"
)

type playerRepository struct {
	*baseRepository
}

func (r *playerRepository) Create(ctx context.Context, player *models.Player) error {
	return r.insert(ctx, player)
}

func (r *playerRepository) FindByID(ctx context.Context, id string) (*models.Player, error) {
	var player models.Player
	if err := r.selectOne(ctx, &player, Filter{"id": id}); err != nil {
		return nil, err
	}
	return &player, nil
}

func (r *playerRepository) FindByIDUnscoped(ctx context.Context, id string) (*models.Player, error) {
	var player models.Player
	if err := r.db.WithContext(ctx).Unscoped().First(&player, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &player, nil
}

func (r *playerRepository) FindByRoomAndUser(ctx context.Context, roomID, userID string) (*models.Player, error) {
	var player models.Player
	if err := r.selectOne(ctx, &player, Filter{"room_id": roomID, "user_id": userID}); err != nil {
		return nil, err
	}
	return &player, nil
}

// ListByRoom 依加入順序列出仍在房間內的玩家
func (r *playerRepository) ListByRoom(ctx context.Context, roomID string) ([]models.Player, error) {
	var players []models.Player
	err := r.selectMany(ctx, &players, Filter{"room_id": roomID}, "joined_at asc, id asc")
	return players, err
}

// IncrementScore 以 score = score + delta 原地累加，避免讀改寫競態
func (r *playerRepository) IncrementScore(ctx context.Context, id string, delta int) error {
	_, err := r.update(ctx, &models.Player{}, Filter{"id": id}, map[string]interface{}{
		"score": gorm.Expr("score + ?", delta),
	})
	return err
}

func (r *playerRepository) ResetScores(ctx context.Context, roomID string) error {
	_, err := r.update(ctx, &models.Player{}, Filter{"room_id": roomID}, map[string]interface{}{"score": 0})
	return err
}

func (r *playerRepository) Delete(ctx context.Context, id string) error {
	return r.delete(ctx, &models.Player{}, Filter{"id": id})
}
