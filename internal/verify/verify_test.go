package verify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"autofilter-bot/internal/models"
)

type fakeUserStore struct {
	issuedToken   string
	issuedPending string
	issueErr      error

	redeemOK       bool
	redeemedToken  string
	redeemExpireAt time.Time

	expireOK    bool
	expireCalls int
}

func (f *fakeUserStore) IssueToken(_ context.Context, _ int64, token, pendingLink string) error {
	f.issuedToken = token
	f.issuedPending = pendingLink
	return f.issueErr
}

func (f *fakeUserStore) RedeemToken(_ context.Context, _ int64, token string, _, expireAt time.Time) (bool, error) {
	f.redeemedToken = token
	f.redeemExpireAt = expireAt
	return f.redeemOK, nil
}

func (f *fakeUserStore) ExpireVerification(_ context.Context, _ int64, _ time.Time) (bool, error) {
	f.expireCalls++
	return f.expireOK, nil
}

type fakeShortener struct {
	lastLong string
	short    string
	err      error
}

func (f *fakeShortener) Shorten(_ context.Context, _, _, longURL string) (string, error) {
	f.lastLong = longURL
	return f.short, f.err
}

func newTestService(users *fakeUserStore, shortener *fakeShortener) *Service {
	return NewService(users, shortener, "testbot", "short.host", "key", 24*time.Hour)
}

func TestIssueStoresTokenBehindShortLink(t *testing.T) {
	users := &fakeUserStore{}
	shortener := &fakeShortener{short: "https://short.host/abc"}
	s := newTestService(users, shortener)

	link, err := s.Issue(context.Background(), 42, "file_9_xyz")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if link != "https://short.host/abc" {
		t.Errorf("Issue() = %q, want the shortened link", link)
	}
	if len(users.issuedToken) != tokenLength {
		t.Errorf("stored token length = %d, want %d", len(users.issuedToken), tokenLength)
	}
	if users.issuedPending != "file_9_xyz" {
		t.Errorf("stored pending link = %q, want %q", users.issuedPending, "file_9_xyz")
	}
	want := "https://t.me/testbot?start=verify_" + users.issuedToken
	if shortener.lastLong != want {
		t.Errorf("shortened %q, want %q", shortener.lastLong, want)
	}
}

func TestIssueFailsClosedOnShortenerError(t *testing.T) {
	users := &fakeUserStore{}
	shortener := &fakeShortener{err: errors.New("provider down")}
	s := newTestService(users, shortener)

	if _, err := s.Issue(context.Background(), 42, "file_9_xyz"); err == nil {
		t.Fatal("Issue() returned a link while the shortener is down")
	}
}

func TestIssueTokensAreUnique(t *testing.T) {
	users := &fakeUserStore{}
	s := newTestService(users, &fakeShortener{short: "https://s/a"})

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		if _, err := s.Issue(context.Background(), 1, ""); err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		if seen[users.issuedToken] {
			t.Fatalf("token %q issued twice", users.issuedToken)
		}
		if strings.ContainsAny(users.issuedToken, "_-#") {
			t.Fatalf("token %q contains payload delimiter characters", users.issuedToken)
		}
		seen[users.issuedToken] = true
	}
}

func TestNewTokenStaysInAlphabet(t *testing.T) {
	for i := 0; i < 200; i++ {
		tok, err := newToken()
		if err != nil {
			t.Fatalf("newToken() error = %v", err)
		}
		if len(tok) != tokenLength {
			t.Fatalf("token %q length = %d, want %d", tok, len(tok), tokenLength)
		}
		for _, r := range tok {
			if !strings.ContainsRune(tokenAlphabet, r) {
				t.Fatalf("token %q contains %q outside the alphabet", tok, r)
			}
		}
	}
}

func TestRedeemReturnsPendingLink(t *testing.T) {
	users := &fakeUserStore{redeemOK: true}
	s := newTestService(users, &fakeShortener{})

	user := &models.User{ID: 42, VerifyToken: "tok1234567", PendingLink: "all_9_batch"}
	pending, err := s.Redeem(context.Background(), user, "tok1234567")
	if err != nil {
		t.Fatalf("Redeem() error = %v", err)
	}
	if pending != "all_9_batch" {
		t.Errorf("Redeem() pending = %q, want %q", pending, "all_9_batch")
	}
	if users.redeemedToken != "tok1234567" {
		t.Errorf("redeemed token = %q, want the presented one", users.redeemedToken)
	}
	if got := time.Until(users.redeemExpireAt); got < 23*time.Hour || got > 25*time.Hour {
		t.Errorf("expiry set %v from now, want about 24h", got)
	}
}

func TestRedeemMismatch(t *testing.T) {
	s := newTestService(&fakeUserStore{redeemOK: true}, &fakeShortener{})

	user := &models.User{ID: 42, VerifyToken: "correct000"}
	if _, err := s.Redeem(context.Background(), user, "guessed000"); !errors.Is(err, ErrTokenMismatch) {
		t.Errorf("Redeem(wrong token) error = %v, want ErrTokenMismatch", err)
	}
}

func TestRedeemEmptyStoredToken(t *testing.T) {
	s := newTestService(&fakeUserStore{redeemOK: true}, &fakeShortener{})

	// A consumed token leaves the column empty; replaying the old link
	// must not match the empty string.
	user := &models.User{ID: 42, VerifyToken: ""}
	if _, err := s.Redeem(context.Background(), user, ""); !errors.Is(err, ErrTokenMismatch) {
		t.Errorf("Redeem(empty) error = %v, want ErrTokenMismatch", err)
	}
}

func TestRedeemLostRace(t *testing.T) {
	s := newTestService(&fakeUserStore{redeemOK: false}, &fakeShortener{})

	user := &models.User{ID: 42, VerifyToken: "tok1234567"}
	if _, err := s.Redeem(context.Background(), user, "tok1234567"); !errors.Is(err, ErrTokenMismatch) {
		t.Errorf("Redeem() after lost race error = %v, want ErrTokenMismatch", err)
	}
}

func TestExpireLazilyDemotes(t *testing.T) {
	users := &fakeUserStore{expireOK: true}
	s := newTestService(users, &fakeShortener{})

	past := time.Now().Add(-time.Hour)
	user := &models.User{ID: 42, IsVerified: true, ExpireTime: &past}
	demoted, err := s.ExpireLazily(context.Background(), user)
	if err != nil {
		t.Fatalf("ExpireLazily() error = %v", err)
	}
	if !demoted {
		t.Error("ExpireLazily() = false, want true for an expired record")
	}
	if users.expireCalls != 1 {
		t.Errorf("store demotion called %d times, want exactly 1", users.expireCalls)
	}
	if user.IsVerified {
		t.Error("in-memory record still verified after demotion")
	}
}

func TestExpireLazilyFreshRecordUntouched(t *testing.T) {
	users := &fakeUserStore{}
	s := newTestService(users, &fakeShortener{})

	future := time.Now().Add(time.Hour)
	user := &models.User{ID: 42, IsVerified: true, ExpireTime: &future}
	demoted, err := s.ExpireLazily(context.Background(), user)
	if err != nil {
		t.Fatalf("ExpireLazily() error = %v", err)
	}
	if demoted {
		t.Error("ExpireLazily() = true for a fresh record")
	}
	if users.expireCalls != 0 {
		t.Errorf("store demotion called %d times for a fresh record", users.expireCalls)
	}
	if !user.IsVerified {
		t.Error("fresh record demoted in memory")
	}
}

func TestExpireLazilyLostRaceStillDemotesInMemory(t *testing.T) {
	users := &fakeUserStore{expireOK: false}
	s := newTestService(users, &fakeShortener{})

	past := time.Now().Add(-time.Hour)
	user := &models.User{ID: 42, IsVerified: true, ExpireTime: &past}
	demoted, err := s.ExpireLazily(context.Background(), user)
	if err != nil {
		t.Fatalf("ExpireLazily() error = %v", err)
	}
	if demoted {
		t.Error("ExpireLazily() = true although another check won the update")
	}
	if user.IsVerified {
		t.Error("expired record must gate as unverified regardless of who wrote the demotion")
	}
}
