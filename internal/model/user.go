package model

import "time"

// User - серверная модель аккаунта получателя (профиль).
// Username выдаётся при регистрации и после этого не меняется.
type User struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username    string    `gorm:"uniqueIndex;not null;size:32" json:"username"`
	DisplayName string    `gorm:"not null;default:''" json:"display_name"`
	Password    string    `gorm:"not null" json:"-"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
