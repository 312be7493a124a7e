package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"sketch_club/internal/models"
	"sketch_club/internal/storage"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	ErrDatabase  = errors.New("database error")
)

type RoomRepository interface {
	Create(ctx context.Context, room *models.Room) error
	FindByID(ctx context.Context, id string) (*models.Room, error)
	FindByCode(ctx context.Context, code string) (*models.Room, error)
	// UpdateGameState 只在目前狀態符合 guard 時寫入，回傳是否真的更新
	UpdateGameState(ctx context.Context, id string, guard models.GameStateGuard, state models.GameState, at time.Time) (bool, error)
	Touch(ctx context.Context, id string, at time.Time) error
	ListByStatus(ctx context.Context, status models.RoomStatus) ([]models.Room, error)
}

type PlayerRepository interface {
	Create(ctx context.Context, player *models.Player) error
	FindByID(ctx context.Context, id string) (*models.Player, error)
	// FindByIDUnscoped 也會找到已離開的玩家
	FindByIDUnscoped(ctx context.Context, id string) (*models.Player, error)
	FindByRoomAndUser(ctx context.Context, roomID, userID string) (*models.Player, error)
	ListByRoom(ctx context.Context, roomID string) ([]models.Player, error)
	IncrementScore(ctx context.Context, id string, delta int) error
	ResetScores(ctx context.Context, roomID string) error
	Delete(ctx context.Context, id string) error
}

type RoundRepository interface {
	Create(ctx context.Context, round *models.Round) error
	FindByID(ctx context.Context, id string) (*models.Round, error)
	FindOpenByRoom(ctx context.Context, roomID string) (*models.Round, error)
	// Close 只關閉仍開啟的回合，先寫入者勝出
	Close(ctx context.Context, id string, guesserID *string, at time.Time) (bool, error)
	DeleteByRoom(ctx context.Context, roomID string) error
	// ListOpen 列出所有尚未結束的回合，啟動時用來重新掛上看門狗
	ListOpen(ctx context.Context) ([]models.Round, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

type TxFunc func(ctx context.Context, fn func(repos *Repositories) error) error

type Repositories struct {
	User   UserRepository
	Room   RoomRepository
	Player PlayerRepository
	Round  RoundRepository

	tx TxFunc
}

// Transaction 在同一個交易中執行 fn；fn 內必須使用傳入的 repos
func (r *Repositories) Transaction(ctx context.Context, fn func(repos *Repositories) error) error {
	if r.tx == nil {
		return fn(r)
	}
	return r.tx(ctx, fn)
}

func NewRepositories(db *storage.PostgresDB) *Repositories {
	return newGormRepositories(db.DB)
}

func newGormRepositories(db *gorm.DB) *Repositories {
	base := &baseRepository{db: db}
	repos := &Repositories{
		User:   &userRepository{base},
		Room:   &roomRepository{base},
		Player: &playerRepository{base},
		Round:  &roundRepository{base},
	}
	repos.tx = func(ctx context.Context, fn func(*Repositories) error) error {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(newGormRepositories(tx))
		})
	}
	return repos
}

// Models 回傳需要自動遷移的資料表
func Models() []interface{} {
	return []interface{}{&models.User{}, &models.Room{}, &models.Player{}, &models.Round{}}
}
