package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"

	"invitedesk/internal/models"
	"invitedesk/internal/store"
)

const (
	stateWaitingUserID = "WAITING_USER_ID"
	stateWaitingPIN    = "WAITING_PIN"
)

// Watcher is the live end of the membership state machine: it keeps the
// chat catalog in step with where the bot is added, confirms joins,
// evicts unverified joiners, and runs the user-id/PIN verification
// conversation.
type Watcher struct {
	Instance *telego.Bot
	Users    *store.UserStore
	Chats    *store.ChatStore
	Members  *store.MembershipStore

	UserStates map[int64]string
	PendingIDs map[int64]string
	StatesMu   sync.RWMutex
}

func NewWatcher(token string, users *store.UserStore, chats *store.ChatStore, members *store.MembershipStore) (*Watcher, error) {
	tgBot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Watcher{
		Instance:   tgBot,
		Users:      users,
		Chats:      chats,
		Members:    members,
		UserStates: make(map[int64]string),
		PendingIDs: make(map[int64]string),
	}, nil
}

func (w *Watcher) Start() {
	ctx := context.Background()
	updates, _ := w.Instance.UpdatesViaLongPolling(ctx, nil)

	handler, _ := th.NewBotHandler(w.Instance, updates)

	botID := int64(0)
	if me, err := w.Instance.GetMe(ctx); err == nil {
		botID = me.ID
	}

	// /start command opens the verification conversation
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		telegramID := update.Message.From.ID

		w.StatesMu.Lock()
		w.UserStates[telegramID] = stateWaitingUserID
		delete(w.PendingIDs, telegramID)
		w.StatesMu.Unlock()

		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(telegramID), "Please provide your user ID:"))
		return nil
	}, th.CommandEqual("start"))

	// /cancel aborts the conversation
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		telegramID := update.Message.From.ID

		w.StatesMu.Lock()
		delete(w.UserStates, telegramID)
		delete(w.PendingIDs, telegramID)
		w.StatesMu.Unlock()

		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(telegramID), "❌ Verification cancelled."))
		return nil
	}, th.CommandEqual("cancel"))

	// Conversation steps
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		telegramID := update.Message.From.ID
		text := strings.TrimSpace(update.Message.Text)

		w.StatesMu.RLock()
		state, ok := w.UserStates[telegramID]
		w.StatesMu.RUnlock()
		if !ok {
			return nil
		}

		switch state {
		case stateWaitingUserID:
			user, err := w.Users.FindByUserID(ctx.Context(), text)
			if err != nil || user.Status != models.StatusPending {
				w.clearState(telegramID)
				_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(telegramID), "❌ Invalid or already verified user ID."))
				return nil
			}

			w.StatesMu.Lock()
			w.PendingIDs[telegramID] = text
			w.UserStates[telegramID] = stateWaitingPIN
			w.StatesMu.Unlock()

			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(telegramID), "Please provide your PIN:"))

		case stateWaitingPIN:
			w.StatesMu.RLock()
			userID := w.PendingIDs[telegramID]
			w.StatesMu.RUnlock()
			w.clearState(telegramID)

			// Re-read the record; the admin may have re-issued the code
			// since the first step.
			user, err := w.Users.FindByUserID(ctx.Context(), userID)
			if err != nil {
				_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(telegramID), "❌ User not found."))
				return nil
			}
			if user.ActivationCode == "" || user.ActivationCode != text {
				_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(telegramID), "❌ Invalid PIN."))
				return nil
			}

			userName := update.Message.From.Username
			if err := w.Users.MarkVerified(ctx.Context(), user.ID, telegramID, userName); err != nil {
				log.Printf("Failed to mark user %s verified: %v", userID, err)
				_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(telegramID), "❌ Something went wrong, please try again."))
				return nil
			}

			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(telegramID), "✅ Verified!"))
			w.sendPendingInvites(ctx.Context(), user, telegramID)
			log.Printf("User %s verified with Telegram ID %d", userID, telegramID)
		}
		return nil
	}, th.AnyMessageWithText())

	// Bot added to / removed from a chat
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		change := update.MyChatMember
		status := change.NewChatMember.MemberStatus()
		chat := change.Chat

		switch status {
		case "member", "administrator":
			if err := w.Chats.Upsert(ctx.Context(), chat.ID, chat.Title); err != nil {
				log.Printf("Failed to record chat %d: %v", chat.ID, err)
				return nil
			}
			log.Printf("Bot joined chat %s (%d)", chat.Title, chat.ID)
		case "left", "kicked":
			if err := w.Chats.Remove(ctx.Context(), chat.ID); err != nil {
				log.Printf("Failed to remove chat %d: %v", chat.ID, err)
				return nil
			}
			log.Printf("Bot left chat %s (%d)", chat.Title, chat.ID)
		}
		return nil
	}, func(_ context.Context, update telego.Update) bool {
		return update.MyChatMember != nil
	})

	// Member joined or left a managed chat
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		change := update.ChatMember
		member := change.NewChatMember.MemberUser()
		status := change.NewChatMember.MemberStatus()
		chat := change.Chat

		if member.ID == botID {
			return nil
		}

		switch status {
		case "member":
			user, err := w.Users.FindByTelegramID(ctx.Context(), member.ID)
			if err != nil || user.Status != models.StatusVerified {
				// Unverified joiners are evicted; the bot is
				// authoritative for who stays in the chat.
				_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
					tu.ID(member.ID),
					"🚫 You were removed because your account is not verified. Please verify it first.",
				))
				err := ctx.Bot().BanChatMember(ctx.Context(), &telego.BanChatMemberParams{
					ChatID: tu.ID(chat.ID),
					UserID: member.ID,
				})
				if err != nil {
					log.Printf("Failed to ban unverified user %d from chat %d: %v", member.ID, chat.ID, err)
				}
				return nil
			}

			if err := w.Members.MarkActive(ctx.Context(), chat.ID, member.ID); err != nil {
				log.Printf("Failed to mark membership active: %v", err)
			}
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
				tu.ID(member.ID),
				fmt.Sprintf("👋 Welcome to %s, %s!", chat.Title, member.FirstName),
			))

		case "left", "kicked":
			user, err := w.Users.FindByTelegramID(ctx.Context(), member.ID)
			if err != nil {
				return nil
			}
			if err := w.Members.Delete(ctx.Context(), user.ID, chat.ID); err != nil {
				log.Printf("Failed to delete membership (%d,%d): %v", user.ID, chat.ID, err)
			}
			log.Printf("User %s left chat %d", user.UserID, chat.ID)
		}
		return nil
	}, func(_ context.Context, update telego.Update) bool {
		return update.ChatMember != nil
	})

	handler.Start()
}

func (w *Watcher) clearState(telegramID int64) {
	w.StatesMu.Lock()
	delete(w.UserStates, telegramID)
	delete(w.PendingIDs, telegramID)
	w.StatesMu.Unlock()
}

// sendPendingInvites delivers invite links for every chat the admin
// queued this user for at creation time.
func (w *Watcher) sendPendingInvites(ctx context.Context, user *models.User, telegramID int64) {
	rows, err := w.Members.ForUser(ctx, user.ID)
	if err != nil {
		log.Printf("Failed to load memberships for %s: %v", user.UserID, err)
		return
	}

	for _, row := range rows {
		if row.State != models.MemberPending {
			continue
		}
		link, err := w.Instance.CreateChatInviteLink(ctx, &telego.CreateChatInviteLinkParams{
			ChatID:      tu.ID(row.ChatID),
			MemberLimit: 1,
		})
		if err != nil {
			log.Printf("Failed to create invite link for chat %d: %v", row.ChatID, err)
			continue
		}
		_, _ = w.Instance.SendMessage(ctx, tu.Message(
			tu.ID(telegramID),
			"Here is your chat invite link:\n"+link.InviteLink,
		))
		if err := w.Members.Put(ctx, user.ID, row.ChatID, models.MemberInvited); err != nil {
			log.Printf("Failed to update membership (%d,%d): %v", user.ID, row.ChatID, err)
		}
	}
}
