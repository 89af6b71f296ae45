package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"autofilter-bot/internal/models"
)

type ForwardStore struct {
	db *gorm.DB
}

func NewForwardStore(db *gorm.DB) *ForwardStore {
	return &ForwardStore{db: db}
}

func (s *ForwardStore) Get(ctx context.Context, sourceChannelID int64) (*models.ForwardRule, error) {
	var rule models.ForwardRule
	err := s.db.WithContext(ctx).First(&rule, "source_channel_id = ?", sourceChannelID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get forward rule for %d: %w", sourceChannelID, err)
	}
	return &rule, nil
}

func (s *ForwardStore) Save(ctx context.Context, rule *models.ForwardRule) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "source_channel_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"destinations", "original_text", "replace_text", "my_link", "web_link", "my_username",
		}),
	}).Create(rule).Error
	if err != nil {
		return fmt.Errorf("failed to save forward rule for %d: %w", rule.SourceChannelID, err)
	}
	return nil
}

func (s *ForwardStore) Delete(ctx context.Context, sourceChannelID int64) error {
	err := s.db.WithContext(ctx).Delete(&models.ForwardRule{}, "source_channel_id = ?", sourceChannelID).Error
	if err != nil {
		return fmt.Errorf("failed to delete forward rule for %d: %w", sourceChannelID, err)
	}
	return nil
}

func (s *ForwardStore) SourceIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&models.ForwardRule{}).Pluck("source_channel_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list forward sources: %w", err)
	}
	return ids, nil
}
