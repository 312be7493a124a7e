package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User 是註冊帳號；匿名身分不會寫入這張表
type User struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"` // 用戶名，必須唯一
	Password  string    `gorm:"not null" json:"-"`                    // 密碼，json 序列化時會被忽略
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
