// Package verify implements the per-user verification flow: a gating miss
// issues a single-use token behind a monetized short link, visiting the
// link redeems the token, and the verified state lazily expires.
package verify

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"autofilter-bot/internal/models"
)

const (
	tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	tokenLength   = 10
)

var ErrTokenMismatch = errors.New("verify token mismatch")

// UserStore is the slice of the user repository the state machine needs.
type UserStore interface {
	IssueToken(ctx context.Context, id int64, token, pendingLink string) error
	RedeemToken(ctx context.Context, id int64, token string, verifiedAt, expireAt time.Time) (bool, error)
	ExpireVerification(ctx context.Context, id int64, now time.Time) (bool, error)
}

type Shortener interface {
	Shorten(ctx context.Context, host, apiKey, longURL string) (string, error)
}

type Service struct {
	users       UserStore
	shortener   Shortener
	botUsername string
	host        string
	apiKey      string
	expire      time.Duration

	now func() time.Time
}

func NewService(users UserStore, shortener Shortener, botUsername, host, apiKey string, expire time.Duration) *Service {
	return &Service{
		users:       users,
		shortener:   shortener,
		botUsername: botUsername,
		host:        host,
		apiKey:      apiKey,
		expire:      expire,
		now:         time.Now,
	}
}

func (s *Service) Expire() time.Duration {
	return s.expire
}

// Issue generates a fresh token guarding pendingLink and returns the
// shortened verification URL. Re-issuing overwrites any unconsumed token,
// so stale verification links stop matching. A shortlink failure aborts
// the issuance; the raw deep link is never handed out.
func (s *Service) Issue(ctx context.Context, userID int64, pendingLink string) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate verify token: %w", err)
	}
	if err := s.users.IssueToken(ctx, userID, token, pendingLink); err != nil {
		return "", err
	}
	longURL := fmt.Sprintf("https://t.me/%s?start=verify_%s", s.botUsername, token)
	short, err := s.shortener.Shorten(ctx, s.host, s.apiKey, longURL)
	if err != nil {
		return "", fmt.Errorf("failed to shorten verify link: %w", err)
	}
	return short, nil
}

// Redeem validates a presented token against the stored pending one. The
// comparison is exact string equality and the stored token is consumed in
// the same update, so a guessed or replayed token changes nothing.
// On success the pending deep-link payload the token guarded is returned.
func (s *Service) Redeem(ctx context.Context, user *models.User, token string) (string, error) {
	if user.VerifyToken == "" || user.VerifyToken != token {
		return "", ErrTokenMismatch
	}
	now := s.now()
	ok, err := s.users.RedeemToken(ctx, user.ID, token, now, now.Add(s.expire))
	if err != nil {
		return "", err
	}
	if !ok {
		// Lost a race with a concurrent re-issue; same outcome as a mismatch.
		return "", ErrTokenMismatch
	}
	return user.PendingLink, nil
}

// ExpireLazily demotes a verified record whose expiry has passed. Called at
// read time before every gating decision; there is no background sweep.
// The returned flag reports whether a demotion was persisted by this call.
func (s *Service) ExpireLazily(ctx context.Context, user *models.User) (bool, error) {
	if !user.VerificationExpired(s.now()) {
		return false, nil
	}
	demoted, err := s.users.ExpireVerification(ctx, user.ID, s.now())
	if err != nil {
		return false, err
	}
	// Even when a concurrent check won the conditional update, this copy of
	// the record is past expiry and must gate as unverified.
	user.IsVerified = false
	return demoted, nil
}

func newToken() (string, error) {
	size := big.NewInt(int64(len(tokenAlphabet)))
	buf := make([]byte, tokenLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		buf[i] = tokenAlphabet[n.Int64()]
	}
	return string(buf), nil
}
