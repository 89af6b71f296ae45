package models

import (
	"time"
)

// MediaRecord is keyed by the content fingerprint of the file, not the raw
// transport file id: the same physical file gets a new transport id every
// time it is posted, while the fingerprint stays stable.
type MediaRecord struct {
	FileKey string `gorm:"primaryKey;size:64"`

	// FileRef is a transport reference usable for sending by id without
	// re-uploading. Refreshed whenever the file is indexed again.
	FileRef string `gorm:"size:255"`

	FileName string `gorm:"size:512;index"`
	FileSize int64
	MimeType string `gorm:"size:128"`
	Caption  string `gorm:"size:1024"`

	CreatedAt time.Time
}
