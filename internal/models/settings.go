package models

import (
	"time"
)

// GroupSettings is one row per group, created lazily on first access and
// never deleted. Stored rows may predate newly added columns; readers merge
// zero values with the configured defaults instead of trusting the row.
type GroupSettings struct {
	GroupID int64  `gorm:"primaryKey"`
	Title   string `gorm:"size:255"`

	AutoFilter bool `gorm:"default:true"`
	IMDB       bool `gorm:"default:true"`
	SpellCheck bool `gorm:"default:true"`

	AutoDelete    bool `gorm:"default:true"`
	DeleteSeconds int  `gorm:"default:0"`

	Welcome     bool   `gorm:"default:false"`
	WelcomeText string `gorm:"size:1024"`

	Shortlink    bool   `gorm:"default:false"`
	ShortlinkURL string `gorm:"size:255"`
	ShortlinkAPI string `gorm:"size:255"`

	// LinkMode true renders search results as links, false as buttons.
	LinkMode bool `gorm:"default:true"`
	IsStream bool `gorm:"default:true"`

	// FSub is the ordered force-subscribe channel list; empty disables the gate.
	FSub []int64 `gorm:"serializer:json"`

	Caption  string `gorm:"size:1024"`
	Tutorial string `gorm:"size:255"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
