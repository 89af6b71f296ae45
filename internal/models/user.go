package models

import (
	"time"
)

// User is keyed by the Telegram user id. Verification state is embedded
// because it is read on every gating decision for the same user.
type User struct {
	ID        int64  `gorm:"primaryKey"`
	FirstName string `gorm:"size:255"`
	Banned    bool   `gorm:"default:false"`

	// Premium grant; nil means no grant was ever made.
	PremiumExpiry *time.Time

	IsVerified   bool   `gorm:"default:false"`
	VerifyToken  string `gorm:"size:32"`
	PendingLink  string `gorm:"size:255"`
	VerifiedTime *time.Time
	ExpireTime   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPremiumAccess reports whether a time-boxed premium grant is still live.
func (u *User) HasPremiumAccess(now time.Time) bool {
	return u.PremiumExpiry != nil && u.PremiumExpiry.After(now)
}

// VerificationExpired reports the derived Expired state: verified on record
// but past the expiry instant. Callers must demote the stored record before
// acting on it.
func (u *User) VerificationExpired(now time.Time) bool {
	return u.IsVerified && u.ExpireTime != nil && now.After(*u.ExpireTime)
}
