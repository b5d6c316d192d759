package models

import (
	"time"
)

const (
	MemberPending = "pending"
	MemberInvited = "invited"
	MemberActive  = "active"
)

// ChatMembership links a user to a chat. A row exists only when an invite
// was issued (or queued at user creation) or the person is an active
// member; absence means "never invited".
type ChatMembership struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;uniqueIndex:idx_user_chat"`
	ChatID    int64  `gorm:"not null;uniqueIndex:idx_user_chat"`
	State     string `gorm:"size:32;default:'pending'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
