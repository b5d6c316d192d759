package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/redis/go-redis/v9"

	"invitedesk/internal/store"
)

// StaleInviteAge is how long a pending or invited membership may sit
// before the reconciler expires it.
const StaleInviteAge = 7 * 24 * time.Hour

// Reconciler periodically re-derives state that can drift: the
// seen-member counters on chats and membership rows stuck before
// activation. Optimistic writes elsewhere rely on this pass to converge
// with the authoritative store.
type Reconciler struct {
	Chats       *store.ChatStore
	Members     *store.MembershipStore
	Redis       *redis.Client
	Bot         *telego.Bot
	AdminChatID int64
	Interval    time.Duration
}

func NewReconciler(chats *store.ChatStore, members *store.MembershipStore, rdb *redis.Client, bot *telego.Bot, adminChatID int64) *Reconciler {
	return &Reconciler{
		Chats:       chats,
		Members:     members,
		Redis:       rdb,
		Bot:         bot,
		AdminChatID: adminChatID,
		Interval:    1 * time.Hour,
	}
}

func (r *Reconciler) Start() {
	ticker := time.NewTicker(r.Interval)
	log.Println("Background reconciliation worker started")

	// Run once at start
	r.reconcile()

	for range ticker.C {
		r.reconcile()
	}
}

func (r *Reconciler) reconcile() {
	ctx := context.Background()

	log.Println("Running membership reconciliation cycle...")

	// 1. Converge seen_members with the actual active membership count
	chats, err := r.Chats.List(ctx)
	if err != nil {
		log.Printf("Error listing chats: %v", err)
		return
	}

	for _, chat := range chats {
		n, err := r.Members.CountActive(ctx, chat.ChatID)
		if err != nil {
			log.Printf("Error counting members of chat %d: %v", chat.ChatID, err)
			continue
		}
		if n == chat.SeenMembers {
			continue
		}
		if err := r.Chats.SetSeenMembers(ctx, chat.ChatID, n); err != nil {
			log.Printf("Error updating seen members of chat %d: %v", chat.ChatID, err)
		}
	}

	// 2. Expire invites that never became active
	cutoff := time.Now().Add(-StaleInviteAge)
	stale, err := r.Members.StalePending(ctx, cutoff)
	if err != nil {
		log.Printf("Error querying stale invites: %v", err)
		return
	}

	for _, row := range stale {
		if err := r.Members.Delete(ctx, row.UserID, row.ChatID); err != nil {
			log.Printf("Failed to expire membership (%d,%d): %v", row.UserID, row.ChatID, err)
			continue
		}
		log.Printf("Expired stale invite (%d,%d) from %s", row.UserID, row.ChatID, row.CreatedAt.Format("02.01.2006"))

		if r.AdminChatID == 0 {
			continue
		}
		key := fmt.Sprintf("stale_notified_%d", row.ID)
		exists, _ := r.Redis.Exists(ctx, key).Result()
		if exists != 0 {
			continue
		}
		_, err := r.Bot.SendMessage(ctx, tu.Message(
			tu.ID(r.AdminChatID),
			fmt.Sprintf("⚠️ Invite for user %d to chat %d expired without activation.", row.UserID, row.ChatID),
		))
		if err == nil {
			r.Redis.Set(ctx, key, "true", 48*time.Hour)
		} else {
			log.Printf("Failed to notify admin chat: %v", err)
		}
	}
}
