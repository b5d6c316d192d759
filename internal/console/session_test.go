package console

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"invitedesk/internal/lister"
	"invitedesk/internal/membership"
	"invitedesk/internal/models"
	"invitedesk/internal/store"
)

type fakeAPI struct {
	inviteErr error
	removeErr error
}

func (f *fakeAPI) SendInvitation(context.Context, int64, int64) error { return f.inviteErr }
func (f *fakeAPI) RemoveUser(context.Context, int64, int64) error     { return f.removeErr }

func newSession(t *testing.T) (*Session, *store.UserStore, *store.MembershipStore, *gorm.DB, *fakeAPI) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.BotChat{}, &models.ChatMembership{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	users := store.NewUserStore(db)
	chats := store.NewChatStore(db)
	members := store.NewMembershipStore(db)
	api := &fakeAPI{}
	syncer := membership.NewSyncer(chats, members, api)
	session := NewSession(lister.New(users), users, syncer)
	return session, users, members, db, api
}

func TestSession_SelectComputesView(t *testing.T) {
	s, users, members, db, _ := newSession(t)
	ctx := context.Background()

	u := &models.User{FirstName: "Ann", UserID: "a-1", TelegramID: 777, Status: models.StatusVerified}
	if err := users.Create(ctx, u, nil); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	for _, chatID := range []int64{100, 200} {
		if err := db.Create(&models.BotChat{ChatID: chatID}).Error; err != nil {
			t.Fatalf("seed chat: %v", err)
		}
	}
	if err := members.Put(ctx, u.ID, 100, models.MemberActive); err != nil {
		t.Fatalf("seed membership: %v", err)
	}

	if err := s.Select(ctx, u.ID); err != nil {
		t.Fatalf("select failed: %v", err)
	}

	selected, view := s.Selected()
	if selected == nil || selected.ID != u.ID {
		t.Fatalf("selected = %+v", selected)
	}
	if len(view.Member) != 1 || len(view.NonMember) != 1 {
		t.Errorf("view = %d member / %d non-member, want 1/1", len(view.Member), len(view.NonMember))
	}
}

func TestSession_InviteRefreshesViewFromStore(t *testing.T) {
	s, users, _, db, _ := newSession(t)
	ctx := context.Background()

	u := &models.User{FirstName: "Ann", UserID: "a-1", TelegramID: 777, Status: models.StatusVerified}
	if err := users.Create(ctx, u, nil); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if err := db.Create(&models.BotChat{ChatID: 100}).Error; err != nil {
		t.Fatalf("seed chat: %v", err)
	}

	if err := s.Select(ctx, u.ID); err != nil {
		t.Fatalf("select failed: %v", err)
	}

	results, err := s.InviteSelected(ctx, []int64{100})
	if err != nil {
		t.Fatalf("invite failed: %v", err)
	}
	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("results = %+v", results)
	}

	_, view := s.Selected()
	if len(view.Member) != 1 || view.Member[0].State != models.MemberInvited {
		t.Errorf("view not refreshed after invite: %+v", view.Member)
	}
	if len(view.NonMember) != 0 {
		t.Errorf("invited chat still in non-member set")
	}
}

func TestSession_RemoveFailureKeepsView(t *testing.T) {
	s, users, members, db, api := newSession(t)
	ctx := context.Background()

	u := &models.User{FirstName: "Ann", UserID: "a-1", TelegramID: 777, Status: models.StatusVerified}
	if err := users.Create(ctx, u, nil); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if err := db.Create(&models.BotChat{ChatID: 100}).Error; err != nil {
		t.Fatalf("seed chat: %v", err)
	}
	if err := members.Put(ctx, u.ID, 100, models.MemberActive); err != nil {
		t.Fatalf("seed membership: %v", err)
	}
	if err := s.Select(ctx, u.ID); err != nil {
		t.Fatalf("select failed: %v", err)
	}

	api.removeErr = errors.New("rejected by backend: not enough rights")
	if err := s.RemoveSelected(ctx, 100); err == nil {
		t.Fatal("expected error from rejected removal")
	}

	_, view := s.Selected()
	if len(view.Member) != 1 || view.Member[0].State != models.MemberActive {
		t.Errorf("view changed by a failed removal: %+v", view.Member)
	}
}

func TestSession_OperationsRequireSelection(t *testing.T) {
	s, _, _, _, _ := newSession(t)
	ctx := context.Background()

	if _, err := s.InviteSelected(ctx, []int64{100}); !errors.Is(err, ErrNoSelection) {
		t.Errorf("invite: err = %v, want ErrNoSelection", err)
	}
	if err := s.RemoveSelected(ctx, 100); !errors.Is(err, ErrNoSelection) {
		t.Errorf("remove: err = %v, want ErrNoSelection", err)
	}
}

func TestSession_RefreshRestartsListing(t *testing.T) {
	s, users, _, _, _ := newSession(t)
	ctx := context.Background()

	u := &models.User{FirstName: "Ann", UserID: "a-1"}
	if err := users.Create(ctx, u, nil); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	if err := s.LoadMore(ctx); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if s.Lister.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Lister.Len())
	}

	u2 := &models.User{FirstName: "Bob", UserID: "b-1"}
	if err := users.Create(ctx, u2, nil); err != nil {
		t.Fatalf("seed second user: %v", err)
	}

	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if s.Lister.Len() != 2 {
		t.Errorf("len = %d after refresh, want 2", s.Lister.Len())
	}
}
