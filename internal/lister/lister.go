// Package lister implements the paginated, deduplicating read path for the
// user collection shown in the admin console.
package lister

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"invitedesk/internal/models"
)

// PageSize is the number of rows requested per fetch.
const PageSize = 20

// ErrFetchInFlight is returned when a fetch is requested while a previous
// one is still outstanding. The request is rejected, never queued, so page
// merges cannot arrive out of order.
var ErrFetchInFlight = errors.New("page fetch already in flight")

// UserPager produces one page of users at a time, ordered by creation
// time ascending.
type UserPager interface {
	Page(ctx context.Context, page, size int) ([]models.User, error)
}

// Lister accumulates users page by page into a deduplicated,
// first-seen-ordered collection. It owns the collection exclusively; other
// components get copies.
type Lister struct {
	pager UserPager

	mu       sync.Mutex
	fetching bool
	page     int
	hasMore  bool
	users    []models.User
	seen     map[uint]struct{}
}

func New(pager UserPager) *Lister {
	return &Lister{
		pager:   pager,
		hasMore: true,
		seen:    make(map[uint]struct{}),
	}
}

// FetchNextPage loads and merges the next page. It is a no-op once the
// backing collection is exhausted. Overlapping rows returned by the store
// (offsets shifted by concurrent inserts) are silently dropped; the first
// occurrence of each id wins. A failed fetch leaves the cursor and the
// merged collection untouched, so the call is retryable.
func (l *Lister) FetchNextPage(ctx context.Context) error {
	l.mu.Lock()
	if !l.hasMore {
		l.mu.Unlock()
		return nil
	}
	if l.fetching {
		l.mu.Unlock()
		return ErrFetchInFlight
	}
	l.fetching = true
	page := l.page
	l.mu.Unlock()

	rows, err := l.pager.Page(ctx, page, PageSize)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.fetching = false

	if err != nil {
		return fmt.Errorf("fetch users page %d: %w", page, err)
	}

	if len(rows) < PageSize {
		l.hasMore = false
	}
	for _, u := range rows {
		if _, dup := l.seen[u.ID]; dup {
			continue
		}
		l.seen[u.ID] = struct{}{}
		l.users = append(l.users, u)
	}
	l.page++
	return nil
}

// Reset clears the cursor and the collection so a fresh pass can start.
// Called after any mutation that can change ordering or membership.
func (l *Lister) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.page = 0
	l.hasMore = true
	l.users = nil
	l.seen = make(map[uint]struct{})
}

// Users returns a copy of the merged collection in first-seen order.
func (l *Lister) Users() []models.User {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.User, len(l.users))
	copy(out, l.users)
	return out
}

// HasMore reports whether another page may still exist.
func (l *Lister) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasMore
}

func (l *Lister) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}

// Filter returns the loaded users matching the query against name,
// username, or email, case-insensitively. An empty query returns everyone.
func (l *Lister) Filter(query string) []models.User {
	q := strings.ToLower(strings.TrimSpace(query))
	users := l.Users()
	if q == "" {
		return users
	}

	var out []models.User
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.FirstName), q) ||
			strings.Contains(strings.ToLower(u.LastName), q) ||
			strings.Contains(strings.ToLower(u.UserName), q) ||
			strings.Contains(strings.ToLower(u.Email), q) {
			out = append(out, u)
		}
	}
	return out
}
