package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the authenticated account resolved from a bearer token. Account
// management itself lives in a separate admin service; this table only backs
// identity resolution and access grants.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `json:"username"`
	Email     string         `gorm:"uniqueIndex" json:"email"`
	IsBlocked bool           `json:"is_blocked"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
