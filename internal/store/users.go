package store

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"gorm.io/gorm"

	"invitedesk/internal/models"
)

var (
	ErrMissingFirstName = errors.New("first name is required")
	ErrMissingUserID    = errors.New("user id is required")
	ErrInvalidEmail     = errors.New("email address is malformed")
)

// UserStore handles reads and writes for admin-managed user records.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// ValidateNew rejects records missing required fields before anything is
// written. Malformed rows are refused at the boundary instead of being
// stored and rendered blank.
func ValidateNew(u *models.User) error {
	if strings.TrimSpace(u.FirstName) == "" {
		return ErrMissingFirstName
	}
	if strings.TrimSpace(u.UserID) == "" {
		return ErrMissingUserID
	}
	if u.Email != "" {
		if _, err := mail.ParseAddress(u.Email); err != nil {
			return ErrInvalidEmail
		}
	}
	return nil
}

// Page returns one zero-based page of users ordered by creation time.
func (s *UserStore) Page(ctx context.Context, page, size int) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Order("created_at ASC").
		Offset(page * size).
		Limit(size).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list users page %d: %w", page, err)
	}
	return users, nil
}

// Create inserts a user together with one pending membership row per
// target chat. Both writes happen in a single transaction.
func (s *UserStore) Create(ctx context.Context, u *models.User, chatIDs []int64) error {
	if err := ValidateNew(u); err != nil {
		return err
	}
	if u.Status == "" {
		u.Status = models.StatusPending
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		for _, chatID := range chatIDs {
			row := models.ChatMembership{
				UserID: u.ID,
				ChatID: chatID,
				State:  models.MemberPending,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *UserStore) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &user, nil
}

func (s *UserStore) FindByUserID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error; err != nil {
		return nil, fmt.Errorf("find user %q: %w", userID, err)
	}
	return &user, nil
}

func (s *UserStore) FindByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, fmt.Errorf("find user by telegram id %d: %w", telegramID, err)
	}
	return &user, nil
}

func (s *UserStore) FindByActivationCode(ctx context.Context, code string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("activation_code = ?", code).First(&user).Error; err != nil {
		return nil, fmt.Errorf("find user by activation code: %w", err)
	}
	return &user, nil
}

// ListSignups returns pending and verified signups, newest first, for the
// invites review screen.
func (s *UserStore) ListSignups(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("status IN ?", []string{models.StatusPending, models.StatusVerified}).
		Order("created_at DESC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list signups: %w", err)
	}
	return users, nil
}

// MarkVerified flips the record to verified and captures the platform
// identity learned during verification. The status transition is owned by
// the verification flow alone.
func (s *UserStore) MarkVerified(ctx context.Context, id uint, telegramID int64, userName string) error {
	updates := map[string]interface{}{
		"status":      models.StatusVerified,
		"telegram_id": telegramID,
	}
	if userName != "" {
		updates["user_name"] = userName
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("mark user %d verified: %w", id, err)
	}
	return nil
}

// Delete removes the user and every membership row referencing it.
func (s *UserStore) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.ChatMembership{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return nil
}
