// Package console holds the admin session view-model: an explicit, owned
// object the UI layer passes to each operation, instead of reaching into
// shared mutable state.
package console

import (
	"context"
	"errors"

	"invitedesk/internal/lister"
	"invitedesk/internal/membership"
	"invitedesk/internal/models"
	"invitedesk/internal/store"
)

// ErrNoSelection is returned by operations that need a selected user.
var ErrNoSelection = errors.New("no user selected")

// Session owns the state of one admin console: the loaded user collection
// and the membership view of the currently selected user. The membership
// view is always recomputed from the store after a mutating call, never
// patched in place.
type Session struct {
	Lister *lister.Lister

	users  *store.UserStore
	syncer *membership.Syncer

	selected *models.User
	view     *membership.View
}

func NewSession(l *lister.Lister, users *store.UserStore, syncer *membership.Syncer) *Session {
	return &Session{Lister: l, users: users, syncer: syncer}
}

// LoadMore fetches the next user page; the UI calls it on mount and near
// the end of the scroll region.
func (s *Session) LoadMore(ctx context.Context) error {
	return s.Lister.FetchNextPage(ctx)
}

// Refresh restarts the listing from page zero. Used after any mutation
// that can change ordering or membership.
func (s *Session) Refresh(ctx context.Context) error {
	s.Lister.Reset()
	return s.Lister.FetchNextPage(ctx)
}

// Select loads the authoritative record for the user and computes its
// membership view.
func (s *Session) Select(ctx context.Context, id uint) error {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return err
	}
	view, err := s.syncer.Partition(ctx, user.ID)
	if err != nil {
		return err
	}
	s.selected = user
	s.view = view
	return nil
}

func (s *Session) Deselect() {
	s.selected = nil
	s.view = nil
}

// Selected returns the current selection and its membership view.
func (s *Session) Selected() (*models.User, *membership.View) {
	return s.selected, s.view
}

// InviteSelected fans invitations out to the given chats and refreshes the
// membership view from the store, so the display never drifts from the
// authoritative state.
func (s *Session) InviteSelected(ctx context.Context, chatIDs []int64) ([]membership.InviteResult, error) {
	if s.selected == nil {
		return nil, ErrNoSelection
	}
	results, err := s.syncer.Invite(ctx, s.selected, chatIDs)
	if err != nil {
		return nil, err
	}
	view, err := s.syncer.Partition(ctx, s.selected.ID)
	if err != nil {
		return results, err
	}
	s.view = view
	return results, nil
}

// RemoveSelected removes the selected user from the chat and refreshes
// the membership view. On failure the view is left as it was.
func (s *Session) RemoveSelected(ctx context.Context, chatID int64) error {
	if s.selected == nil {
		return ErrNoSelection
	}
	if err := s.syncer.Remove(ctx, s.selected, chatID); err != nil {
		return err
	}
	view, err := s.syncer.Partition(ctx, s.selected.ID)
	if err != nil {
		return err
	}
	s.view = view
	return nil
}
