package model

import "time"

// User represents a studio account. Only the seeded demo user exists in practice.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:100;not null;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"column:password;size:255;not null"` // Not exposed in API responses
	CreatedAt    time.Time `json:"createdAt"`
}

// TableName overrides the table name used by GORM.
func (User) TableName() string {
	return "users"
}
