package invite

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"invitedesk/internal/gateway"
)

var (
	ErrNoToken            = errors.New("no invite token provided")
	ErrVerificationFailed = errors.New("verification failed")
)

// FromQuery extracts the activation token and platform identity from the
// verification page's query parameters.
func FromQuery(q url.Values) (token string, telegramUserID int64, err error) {
	token = q.Get("token")
	if token == "" {
		return "", 0, ErrNoToken
	}
	if raw := q.Get("user_id"); raw != "" {
		telegramUserID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return "", 0, fmt.Errorf("invalid user_id %q: %w", raw, err)
		}
	}
	return token, telegramUserID, nil
}

// Verifier drives the end-user verification flow: a single call to the
// backend, retryable with the same token on failure.
type Verifier struct {
	gw *gateway.Client

	mu       sync.Mutex
	verified bool
}

func NewVerifier(gw *gateway.Client) *Verifier {
	return &Verifier{gw: gw}
}

// Verify submits the token once. Success flips the local verified flag;
// any failure leaves it untouched so the caller can retry.
func (v *Verifier) Verify(ctx context.Context, token string, telegramUserID int64) error {
	if token == "" {
		return ErrNoToken
	}

	verdict, err := v.gw.VerifyWebApp(ctx, token, telegramUserID, "")
	if err != nil {
		return fmt.Errorf("verify token: %w", err)
	}
	if !verdict.Success {
		return fmt.Errorf("%w: %s", ErrVerificationFailed, verdict.Error)
	}

	v.mu.Lock()
	v.verified = true
	v.mu.Unlock()
	return nil
}

// Verified reports whether a verification call has succeeded.
func (v *Verifier) Verified() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.verified
}
