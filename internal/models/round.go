package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Round 代表一位畫家的一個回合。
// 每個房間同時最多只有一個 ended_at 為 NULL 的回合，由部分唯一索引保證。
type Round struct {
	ID               string     `gorm:"type:uuid;primaryKey" json:"id"`
	RoomID           string     `gorm:"type:uuid;not null;index;uniqueIndex:idx_rounds_one_open,where:ended_at IS NULL" json:"room_id"`
	Number           int        `gorm:"not null" json:"number"`
	ArtistID         string     `gorm:"type:uuid;not null" json:"artist_id"`
	SecretWord       string     `gorm:"not null" json:"-"`
	StartedAt        time.Time  `gorm:"not null" json:"started_at"`
	EndedAt          *time.Time `json:"ended_at"`
	CorrectGuesserID *string    `gorm:"type:uuid" json:"correct_guesser_id"`
}

func (r *Round) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func (r *Round) Open() bool {
	return r.EndedAt == nil
}
