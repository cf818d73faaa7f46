package user

import "time"

type User struct {
	ID           int64     `gorm:"primaryKey"`
	Email        string    `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	FullName     string    `gorm:"column:full_name"`
	Phone        string    `gorm:"column:phone"`
	Balance      int64     `gorm:"column:balance;not null"`
	IsActive     bool      `gorm:"column:is_active;not null"`
	IsAdmin      bool      `gorm:"column:is_admin;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
