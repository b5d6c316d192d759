package lister

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"invitedesk/internal/models"
)

type pagerFunc func(ctx context.Context, page, size int) ([]models.User, error)

func (f pagerFunc) Page(ctx context.Context, page, size int) ([]models.User, error) {
	return f(ctx, page, size)
}

func makeUsers(n int) []models.User {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	users := make([]models.User, n)
	for i := range users {
		users[i] = models.User{
			ID:        uint(i + 1),
			UserID:    fmt.Sprintf("u-%03d", i+1),
			FirstName: fmt.Sprintf("User%d", i+1),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
	}
	return users
}

func slicePager(users []models.User) pagerFunc {
	return func(_ context.Context, page, size int) ([]models.User, error) {
		start := page * size
		if start >= len(users) {
			return nil, nil
		}
		end := start + size
		if end > len(users) {
			end = len(users)
		}
		return users[start:end], nil
	}
}

func TestFetchNextPage_ExhaustsBackingCollection(t *testing.T) {
	users := makeUsers(45)
	l := New(slicePager(users))
	ctx := context.Background()

	for i, want := range []int{20, 40, 45} {
		if err := l.FetchNextPage(ctx); err != nil {
			t.Fatalf("fetch %d failed: %v", i+1, err)
		}
		if got := l.Len(); got != want {
			t.Errorf("after fetch %d: len = %d, want %d", i+1, got, want)
		}
	}

	if l.HasMore() {
		t.Error("HasMore() = true after short page")
	}

	got := l.Users()
	for i, u := range got {
		if u.ID != uint(i+1) {
			t.Fatalf("users[%d].ID = %d, want %d (creation order lost)", i, u.ID, i+1)
		}
	}
}

func TestFetchNextPage_NoOpWhenExhausted(t *testing.T) {
	calls := 0
	l := New(pagerFunc(func(_ context.Context, page, size int) ([]models.User, error) {
		calls++
		return makeUsers(5), nil
	}))
	ctx := context.Background()

	if err := l.FetchNextPage(ctx); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if err := l.FetchNextPage(ctx); err != nil {
		t.Fatalf("fetch after exhaustion failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("pager called %d times, want 1", calls)
	}
}

func TestFetchNextPage_DeduplicatesOverlappingPages(t *testing.T) {
	users := makeUsers(25)
	l := New(pagerFunc(func(_ context.Context, page, size int) ([]models.User, error) {
		// Simulate offsets shifted by a concurrent insert: the second
		// page re-serves the tail of the first.
		if page == 0 {
			return users[:20], nil
		}
		return users[15:25], nil
	}))
	ctx := context.Background()

	if err := l.FetchNextPage(ctx); err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	if err := l.FetchNextPage(ctx); err != nil {
		t.Fatalf("second fetch failed: %v", err)
	}

	got := l.Users()
	if len(got) != 25 {
		t.Fatalf("len = %d, want 25", len(got))
	}
	seen := make(map[uint]bool)
	for i, u := range got {
		if seen[u.ID] {
			t.Fatalf("duplicate id %d in collection", u.ID)
		}
		seen[u.ID] = true
		if u.ID != uint(i+1) {
			t.Fatalf("users[%d].ID = %d, want %d (first-seen order lost)", i, u.ID, i+1)
		}
	}
}

func TestFetchNextPage_RejectsOverlappingFetch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	l := New(pagerFunc(func(_ context.Context, page, size int) ([]models.User, error) {
		close(started)
		<-release
		return makeUsers(5), nil
	}))
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- l.FetchNextPage(ctx)
	}()
	<-started

	if err := l.FetchNextPage(ctx); !errors.Is(err, ErrFetchInFlight) {
		t.Errorf("overlapping fetch: err = %v, want ErrFetchInFlight", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	if got := l.Len(); got != 5 {
		t.Errorf("len = %d, want 5", got)
	}
}

func TestFetchNextPage_FailureLeavesStateIntact(t *testing.T) {
	users := makeUsers(45)
	fail := false
	l := New(pagerFunc(func(ctx context.Context, page, size int) ([]models.User, error) {
		if fail {
			return nil, errors.New("connection reset")
		}
		return slicePager(users)(ctx, page, size)
	}))
	ctx := context.Background()

	if err := l.FetchNextPage(ctx); err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}

	fail = true
	if err := l.FetchNextPage(ctx); err == nil {
		t.Fatal("expected error from failing fetch")
	}
	if !l.HasMore() {
		t.Error("HasMore() flipped by a failed fetch")
	}
	if got := l.Len(); got != 20 {
		t.Errorf("len = %d after failed fetch, want 20", got)
	}

	// Retry resumes from the same cursor
	fail = false
	if err := l.FetchNextPage(ctx); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if got := l.Len(); got != 40 {
		t.Errorf("len = %d after retry, want 40", got)
	}
}

func TestReset_AllowsFreshPass(t *testing.T) {
	users := makeUsers(5)
	l := New(slicePager(users))
	ctx := context.Background()

	if err := l.FetchNextPage(ctx); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if l.HasMore() {
		t.Fatal("expected exhaustion after single short page")
	}

	l.Reset()
	if !l.HasMore() || l.Len() != 0 {
		t.Fatal("Reset() did not clear cursor and collection")
	}

	if err := l.FetchNextPage(ctx); err != nil {
		t.Fatalf("fetch after reset failed: %v", err)
	}
	if got := l.Len(); got != 5 {
		t.Errorf("len = %d after fresh pass, want 5", got)
	}
}

func TestFilter_MatchesAcrossFields(t *testing.T) {
	l := New(slicePager(nil))
	l.users = []models.User{
		{ID: 1, FirstName: "Alice", Email: "alice@example.com"},
		{ID: 2, FirstName: "Bob", UserName: "bobby"},
		{ID: 3, FirstName: "Carol", LastName: "Albright"},
	}

	if got := len(l.Filter("al")); got != 2 {
		t.Errorf(`Filter("al") matched %d users, want 2`, got)
	}
	if got := len(l.Filter("BOBBY")); got != 1 {
		t.Errorf(`Filter("BOBBY") matched %d users, want 1`, got)
	}
	if got := len(l.Filter("")); got != 3 {
		t.Errorf(`Filter("") matched %d users, want 3`, got)
	}
}
