package models

import (
	"time"
)

// BotChat is a chat the bot has been added to. Rows are maintained by the
// watcher from my_chat_member updates; SeenMembers is recounted by the
// reconciliation worker.
type BotChat struct {
	ID          uint   `gorm:"primaryKey"`
	ChatID      int64  `gorm:"uniqueIndex;not null"`
	ChatName    string `gorm:"size:255"`
	SeenMembers int64  `gorm:"default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
