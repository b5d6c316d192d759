package bot

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// Actions adapts the telego bot to the narrow chat-action surface the API
// server needs.
type Actions struct {
	Bot *telego.Bot
}

// InviteLink creates a fresh single-use invite link for the chat.
func (a *Actions) InviteLink(ctx context.Context, chatID int64) (string, error) {
	link, err := a.Bot.CreateChatInviteLink(ctx, &telego.CreateChatInviteLinkParams{
		ChatID:      tu.ID(chatID),
		MemberLimit: 1,
	})
	if err != nil {
		return "", fmt.Errorf("create invite link: %w", err)
	}
	return link.InviteLink, nil
}

// SendDirect messages the user privately.
func (a *Actions) SendDirect(ctx context.Context, telegramUserID int64, text string) error {
	if _, err := a.Bot.SendMessage(ctx, tu.Message(tu.ID(telegramUserID), text)); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// Ban removes the user from the chat.
func (a *Actions) Ban(ctx context.Context, chatID, telegramUserID int64) error {
	err := a.Bot.BanChatMember(ctx, &telego.BanChatMemberParams{
		ChatID: tu.ID(chatID),
		UserID: telegramUserID,
	})
	if err != nil {
		return fmt.Errorf("ban chat member: %w", err)
	}
	return nil
}
