package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Player 是房間內的參與者；離開時軟刪除，同一身分在同一房間只會有一筆存活紀錄
type Player struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	RoomID    string         `gorm:"type:uuid;not null;index;uniqueIndex:idx_players_room_user,where:deleted_at IS NULL" json:"room_id"`
	UserID    string         `gorm:"not null;uniqueIndex:idx_players_room_user,where:deleted_at IS NULL" json:"user_id"`
	Username  string         `gorm:"type:varchar(20);not null" json:"username"`
	Score     int            `gorm:"not null;default:0" json:"score"`
	IsHost    bool           `gorm:"not null;default:false" json:"is_host"`
	JoinedAt  time.Time      `gorm:"not null" json:"joined_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Player) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// SeatsBefore 以加入時間排序，時間相同時以 ID 決定先後
func (p Player) SeatsBefore(other Player) bool {
	if p.JoinedAt.Equal(other.JoinedAt) {
		return p.ID < other.ID
	}
	return p.JoinedAt.Before(other.JoinedAt)
}
