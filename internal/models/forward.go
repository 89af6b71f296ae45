package models

import (
	"time"
)

// ForwardRule configures forwarding from one source channel to a set of
// destinations with text substitutions applied to the forwarded copy.
type ForwardRule struct {
	SourceChannelID int64   `gorm:"primaryKey"`
	Destinations    []int64 `gorm:"serializer:json"`

	// Literal replacement pair, applied last.
	OriginalText string `gorm:"size:512"`
	ReplaceText  string `gorm:"size:512"`

	// MyLink replaces Telegram deep links, WebLink replaces the known
	// referral URL, MyUsername replaces @mentions.
	MyLink     string `gorm:"size:255"`
	WebLink    string `gorm:"size:255"`
	MyUsername string `gorm:"size:64"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
