package models

import (
	"time"
)

const (
	StatusPending  = "pending"
	StatusVerified = "verified"
)

// User is an admin-entered record of a person going through the
// invite/activation workflow. TelegramID stays zero until the person
// verifies through the bot or the web app.
type User struct {
	ID             uint   `gorm:"primaryKey"`
	UserID         string `gorm:"size:64;uniqueIndex;not null"`
	TelegramID     int64  `gorm:"index"`
	FirstName      string `gorm:"size:255;not null"`
	LastName       string `gorm:"size:255"`
	UserName       string `gorm:"size:255"`
	Email          string `gorm:"size:255"`
	Status         string `gorm:"size:32;default:'pending'"`
	ActivationCode string `gorm:"size:32"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
