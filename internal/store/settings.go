package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"autofilter-bot/internal/config"
	"autofilter-bot/internal/models"
)

// SettingsStore resolves effective per-group settings. Resolve never fails
// on a missing row: the default document is inserted create-if-absent, so
// two concurrent first accesses still end with exactly one stored row.
type SettingsStore struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewSettingsStore(db *gorm.DB, cfg *config.Config) *SettingsStore {
	return &SettingsStore{db: db, cfg: cfg}
}

func (s *SettingsStore) defaults(groupID int64, title string) models.GroupSettings {
	return models.GroupSettings{
		GroupID:       groupID,
		Title:         title,
		AutoFilter:    s.cfg.AutoFilter,
		IMDB:          s.cfg.IMDB,
		SpellCheck:    s.cfg.SpellCheck,
		AutoDelete:    s.cfg.AutoDelete,
		DeleteSeconds: int(s.cfg.DeleteTime.Seconds()),
		Welcome:       s.cfg.Welcome,
		WelcomeText:   s.cfg.WelcomeText,
		Shortlink:     s.cfg.Shortlink,
		ShortlinkURL:  s.cfg.ShortlinkURL,
		ShortlinkAPI:  s.cfg.ShortlinkAPI,
		LinkMode:      s.cfg.LinkMode,
		IsStream:      s.cfg.IsStream,
		Caption:       s.cfg.FileCaption,
		Tutorial:      s.cfg.Tutorial,
	}
}

// Resolve returns the effective settings for a group, synthesizing and
// persisting the default document on first access.
func (s *SettingsStore) Resolve(ctx context.Context, groupID int64) (*models.GroupSettings, error) {
	def := s.defaults(groupID, "")
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&def).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create default settings for %d: %w", groupID, err)
	}

	var settings models.GroupSettings
	if err := s.db.WithContext(ctx).First(&settings, "group_id = ?", groupID).Error; err != nil {
		return nil, fmt.Errorf("failed to read settings for %d: %w", groupID, err)
	}

	// Rows written by older versions miss newer text columns; a stored
	// toggle is authoritative but an empty template never is.
	if settings.Caption == "" {
		settings.Caption = s.cfg.FileCaption
	}
	if settings.WelcomeText == "" {
		settings.WelcomeText = s.cfg.WelcomeText
	}
	if settings.Tutorial == "" {
		settings.Tutorial = s.cfg.Tutorial
	}
	if settings.ShortlinkURL == "" {
		settings.ShortlinkURL = s.cfg.ShortlinkURL
	}
	if settings.ShortlinkAPI == "" {
		settings.ShortlinkAPI = s.cfg.ShortlinkAPI
	}
	if settings.DeleteSeconds <= 0 {
		settings.DeleteSeconds = int(s.cfg.DeleteTime.Seconds())
	}
	return &settings, nil
}

// Register makes sure a settings row exists and remembers the group title.
// Reports whether the row was created by this call.
func (s *SettingsStore) Register(ctx context.Context, groupID int64, title string) (bool, error) {
	def := s.defaults(groupID, title)
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&def)
	if res.Error != nil {
		return false, fmt.Errorf("failed to register group %d: %w", groupID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// UpdateField writes one settings field atomically. The column name is
// supplied by the setter commands, never by user text.
func (s *SettingsStore) UpdateField(ctx context.Context, groupID int64, column string, value interface{}) error {
	if _, err := s.Resolve(ctx, groupID); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Model(&models.GroupSettings{}).
		Where("group_id = ?", groupID).Update(column, value).Error
	if err != nil {
		return fmt.Errorf("failed to update %s for group %d: %w", column, groupID, err)
	}
	return nil
}

// SetFSub stores the force-subscribe channel list; nil clears the gate.
func (s *SettingsStore) SetFSub(ctx context.Context, groupID int64, channels []int64) error {
	if _, err := s.Resolve(ctx, groupID); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Model(&models.GroupSettings{}).
		Where("group_id = ?", groupID).Update("f_sub", channels).Error
	if err != nil {
		return fmt.Errorf("failed to set fsub for group %d: %w", groupID, err)
	}
	return nil
}

func (s *SettingsStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.GroupSettings{}).Count(&n).Error
	return n, err
}
