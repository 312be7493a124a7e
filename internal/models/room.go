package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoomStatus 定義房間狀態的類型
type RoomStatus string

const (
	RoomStatusLobby    RoomStatus = "lobby"
	RoomStatusPlaying  RoomStatus = "playing"
	RoomStatusRoundEnd RoomStatus = "round_end" // 只存在於客戶端畫面，不會寫入資料庫
	RoomStatusGameOver RoomStatus = "game_over"
)

// GameState 以 game_ 前綴嵌入 rooms 資料表
type GameState struct {
	Status       RoomStatus `gorm:"type:varchar(16);not null;default:lobby" json:"status"`
	CurrentRound int        `gorm:"not null;default:0" json:"current_round"`
	TotalRounds  int        `gorm:"not null;default:5" json:"total_rounds"`
	Category     string     `gorm:"type:varchar(32);not null;default:all" json:"category"`
	ArtistID     *string    `gorm:"type:uuid" json:"artist_id,omitempty"`
}

// Room 表示一場遊戲，以六位數代碼加入
type Room struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	Code         string    `gorm:"type:char(6);uniqueIndex;not null" json:"code"`
	HostID       string    `gorm:"not null" json:"host_id"`
	GameState    GameState `gorm:"embedded;embeddedPrefix:game_" json:"game_state"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `gorm:"not null" json:"last_activity"`
}

func (r *Room) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// GameStateGuard 是條件式更新的前提；CurrentRound 為 nil 時不比對回合
type GameStateGuard struct {
	Status       RoomStatus
	CurrentRound *int
}

func (g GameStateGuard) Matches(state GameState) bool {
	if g.Status != "" && state.Status != g.Status {
		return false
	}
	return g.CurrentRound == nil || *g.CurrentRound == state.CurrentRound
}
