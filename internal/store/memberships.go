package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"invitedesk/internal/models"
)

// MembershipStore handles the user-to-chat join rows.
type MembershipStore struct {
	db *gorm.DB
}

func NewMembershipStore(db *gorm.DB) *MembershipStore {
	return &MembershipStore{db: db}
}

func (s *MembershipStore) ForUser(ctx context.Context, userID uint) ([]models.ChatMembership, error) {
	var rows []models.ChatMembership
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list memberships for user %d: %w", userID, err)
	}
	return rows, nil
}

// Put creates the membership row or moves an existing one to the given
// state.
func (s *MembershipStore) Put(ctx context.Context, userID uint, chatID int64, state string) error {
	db := s.db.WithContext(ctx)

	var row models.ChatMembership
	err := db.Where("user_id = ? AND chat_id = ?", userID, chatID).First(&row).Error
	switch {
	case err == nil:
		if row.State == state {
			return nil
		}
		// Active is terminal for writes through here. Only the watcher's
		// delete path ends an active membership.
		if row.State == models.MemberActive {
			return nil
		}
		if err := db.Model(&row).Update("state", state).Error; err != nil {
			return fmt.Errorf("update membership (%d,%d): %w", userID, chatID, err)
		}
		return nil
	case err == gorm.ErrRecordNotFound:
		row = models.ChatMembership{UserID: userID, ChatID: chatID, State: state}
		if err := db.Create(&row).Error; err != nil {
			return fmt.Errorf("create membership (%d,%d): %w", userID, chatID, err)
		}
		return nil
	default:
		return fmt.Errorf("find membership (%d,%d): %w", userID, chatID, err)
	}
}

// MarkActive flips the row to active once the platform confirms the join.
// The bot watcher is authoritative here; the console only reads it back.
func (s *MembershipStore) MarkActive(ctx context.Context, chatID, telegramID int64) error {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return fmt.Errorf("find member by telegram id %d: %w", telegramID, err)
	}

	err := db.Model(&models.ChatMembership{}).
		Where("user_id = ? AND chat_id = ?", user.ID, chatID).
		Update("state", models.MemberActive).Error
	if err != nil {
		return fmt.Errorf("mark membership (%d,%d) active: %w", user.ID, chatID, err)
	}
	return nil
}

func (s *MembershipStore) Delete(ctx context.Context, userID uint, chatID int64) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND chat_id = ?", userID, chatID).
		Delete(&models.ChatMembership{}).Error
	if err != nil {
		return fmt.Errorf("delete membership (%d,%d): %w", userID, chatID, err)
	}
	return nil
}

func (s *MembershipStore) CountActive(ctx context.Context, chatID int64) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.ChatMembership{}).
		Where("chat_id = ? AND state = ?", chatID, models.MemberActive).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count active members of chat %d: %w", chatID, err)
	}
	return n, nil
}

// StalePending returns invite rows that never became active before the
// given cutoff.
func (s *MembershipStore) StalePending(ctx context.Context, cutoff time.Time) ([]models.ChatMembership, error) {
	var rows []models.ChatMembership
	err := s.db.WithContext(ctx).
		Where("state IN ? AND created_at < ?", []string{models.MemberPending, models.MemberInvited}, cutoff).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list stale invites: %w", err)
	}
	return rows, nil
}
