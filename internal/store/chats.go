package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"invitedesk/internal/models"
)

// ChatStore maintains the catalog of chats the bot can manage.
type ChatStore struct {
	db *gorm.DB
}

func NewChatStore(db *gorm.DB) *ChatStore {
	return &ChatStore{db: db}
}

func (s *ChatStore) List(ctx context.Context) ([]models.BotChat, error) {
	var chats []models.BotChat
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return chats, nil
}

// Upsert records the chat when the bot joins, or refreshes its title.
func (s *ChatStore) Upsert(ctx context.Context, chatID int64, name string) error {
	db := s.db.WithContext(ctx)

	var chat models.BotChat
	err := db.Where("chat_id = ?", chatID).First(&chat).Error
	switch {
	case err == nil:
		if chat.ChatName == name {
			return nil
		}
		if err := db.Model(&chat).Update("chat_name", name).Error; err != nil {
			return fmt.Errorf("update chat %d: %w", chatID, err)
		}
		return nil
	case err == gorm.ErrRecordNotFound:
		chat = models.BotChat{ChatID: chatID, ChatName: name}
		if err := db.Create(&chat).Error; err != nil {
			return fmt.Errorf("create chat %d: %w", chatID, err)
		}
		return nil
	default:
		return fmt.Errorf("find chat %d: %w", chatID, err)
	}
}

// Remove drops the chat when the bot leaves it.
func (s *ChatStore) Remove(ctx context.Context, chatID int64) error {
	if err := s.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&models.BotChat{}).Error; err != nil {
		return fmt.Errorf("remove chat %d: %w", chatID, err)
	}
	return nil
}

func (s *ChatStore) SetSeenMembers(ctx context.Context, chatID, n int64) error {
	err := s.db.WithContext(ctx).
		Model(&models.BotChat{}).
		Where("chat_id = ?", chatID).
		Update("seen_members", n).Error
	if err != nil {
		return fmt.Errorf("set seen members for chat %d: %w", chatID, err)
	}
	return nil
}
