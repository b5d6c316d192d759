// Package membership keeps a user's chat-membership state consistent
// between the record store and the messaging bot backend.
package membership

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"invitedesk/internal/models"
	"invitedesk/internal/store"
)

var (
	// ErrNotVerified rejects invite attempts for users that have not
	// completed activation. No backend call is made.
	ErrNotVerified = errors.New("user is not verified")
	// ErrNotActiveMember rejects removal of a chat the user is not an
	// active member of.
	ErrNotActiveMember = errors.New("user is not an active member of this chat")
	// ErrAlreadyMember rejects inviting to a chat the user is already an
	// active member of. There is no path back from active to invited.
	ErrAlreadyMember = errors.New("user is already an active member of this chat")
)

// ChatAPI is the slice of the backend the synchronizer drives.
type ChatAPI interface {
	SendInvitation(ctx context.Context, chatID, telegramUserID int64) error
	RemoveUser(ctx context.Context, chatID, telegramUserID int64) error
}

// MemberChat is a chat the user has a membership row for, with its state.
type MemberChat struct {
	Chat  models.BotChat
	State string
}

// View partitions the chat catalog for one user: chats with a membership
// row versus chats never invited to. Invites are only offered against
// NonMember, removal only against Member rows in the active state.
type View struct {
	Member    []MemberChat
	NonMember []models.BotChat
}

// InviteResult is the per-chat outcome of a bulk invite.
type InviteResult struct {
	ChatID int64
	Err    error
}

// Syncer computes membership views from the store and drives invite and
// removal calls against the backend. It never caches membership state;
// every view is recomputed from the store.
type Syncer struct {
	chats   *store.ChatStore
	members *store.MembershipStore
	api     ChatAPI
}

func NewSyncer(chats *store.ChatStore, members *store.MembershipStore, api ChatAPI) *Syncer {
	return &Syncer{chats: chats, members: members, api: api}
}

// Partition splits the full chat catalog into member and non-member sets
// for the user, read straight from the store.
func (s *Syncer) Partition(ctx context.Context, userID uint) (*View, error) {
	chats, err := s.chats.List(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.members.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	stateByChat := make(map[int64]string, len(rows))
	for _, row := range rows {
		stateByChat[row.ChatID] = row.State
	}

	view := &View{}
	for _, chat := range chats {
		if state, ok := stateByChat[chat.ChatID]; ok {
			view.Member = append(view.Member, MemberChat{Chat: chat, State: state})
		} else {
			view.NonMember = append(view.NonMember, chat)
		}
	}
	return view, nil
}

// Invite fans out one invitation call per chat, best-effort: a failed chat
// neither blocks nor rolls back the others. Each call is all-or-nothing on
// its own — the membership row is written only after the backend accepted
// the invite, never before. The aggregated per-chat outcomes are returned
// in the order the chats were given. Chats the user is already an active
// member of are reported as ErrAlreadyMember without a backend call.
func (s *Syncer) Invite(ctx context.Context, user *models.User, chatIDs []int64) ([]InviteResult, error) {
	if user.Status != models.StatusVerified {
		return nil, ErrNotVerified
	}

	rows, err := s.members.ForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	activeIn := make(map[int64]bool, len(rows))
	for _, row := range rows {
		if row.State == models.MemberActive {
			activeIn[row.ChatID] = true
		}
	}

	results := make([]InviteResult, len(chatIDs))
	g, ctx := errgroup.WithContext(ctx)
	for i, chatID := range chatIDs {
		results[i].ChatID = chatID
		if activeIn[chatID] {
			results[i].Err = ErrAlreadyMember
			continue
		}
		g.Go(func() error {
			if err := s.api.SendInvitation(ctx, chatID, user.TelegramID); err != nil {
				results[i].Err = err
				return nil
			}
			if err := s.members.Put(ctx, user.ID, chatID, models.MemberInvited); err != nil {
				results[i].Err = fmt.Errorf("record invite: %w", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// Remove bans the user from the chat through the backend and, only on an
// explicit success, deletes the membership row. Transport failures and
// ok=false responses both leave state untouched.
func (s *Syncer) Remove(ctx context.Context, user *models.User, chatID int64) error {
	rows, err := s.members.ForUser(ctx, user.ID)
	if err != nil {
		return err
	}
	active := false
	for _, row := range rows {
		if row.ChatID == chatID && row.State == models.MemberActive {
			active = true
			break
		}
	}
	if !active {
		return ErrNotActiveMember
	}

	if err := s.api.RemoveUser(ctx, chatID, user.TelegramID); err != nil {
		return err
	}
	return s.members.Delete(ctx, user.ID, chatID)
}
