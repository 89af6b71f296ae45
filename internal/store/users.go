package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"autofilter-bot/internal/models"
)

type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Ensure creates the user on first interaction. Returns created=true only
// for the insert that actually won; concurrent first contacts collapse into
// one row via on-conflict-do-nothing.
func (s *UserStore) Ensure(ctx context.Context, id int64, firstName string) (*models.User, bool, error) {
	user := models.User{ID: id, FirstName: firstName}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&user)
	if res.Error != nil {
		return nil, false, fmt.Errorf("failed to create user %d: %w", id, res.Error)
	}
	if res.RowsAffected > 0 {
		return &user, true, nil
	}
	existing, err := s.Get(ctx, id)
	return existing, false, err
}

func (s *UserStore) Get(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return &user, nil
}

func (s *UserStore) SetPremiumExpiry(ctx context.Context, id int64, expiry time.Time) error {
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Update("premium_expiry", expiry).Error
	if err != nil {
		return fmt.Errorf("failed to set premium expiry for %d: %w", id, err)
	}
	return nil
}

func (s *UserStore) SetBanned(ctx context.Context, id int64, banned bool) error {
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Update("banned", banned).Error
	if err != nil {
		return fmt.Errorf("failed to set banned=%t for %d: %w", banned, id, err)
	}
	return nil
}

func (s *UserStore) BannedIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("banned").Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list banned users: %w", err)
	}
	return ids, nil
}

// IssueToken overwrites any unconsumed token in one update; previously
// issued verification links for this user silently stop matching.
func (s *UserStore) IssueToken(ctx context.Context, id int64, token, pendingLink string) error {
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"verify_token": token,
			"pending_link": pendingLink,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to issue verify token for %d: %w", id, err)
	}
	return nil
}

// RedeemToken promotes the user to Verified only if the stored token still
// equals the presented one. The token column is cleared in the same update,
// making a token single-use. Returns false when nothing matched.
func (s *UserStore) RedeemToken(ctx context.Context, id int64, token string, verifiedAt, expireAt time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND verify_token = ? AND verify_token <> ''", id, token).
		Updates(map[string]interface{}{
			"is_verified":   true,
			"verify_token":  "",
			"verified_time": verifiedAt,
			"expire_time":   expireAt,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to redeem verify token for %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ExpireVerification demotes a verified-but-expired record as one
// conditional update, so two concurrent gating checks produce exactly one
// write. Returns whether this call performed the demotion.
func (s *UserStore) ExpireVerification(ctx context.Context, id int64, now time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND is_verified AND expire_time < ?", id, now).
		Update("is_verified", false)
	if res.Error != nil {
		return false, fmt.Errorf("failed to expire verification for %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *UserStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

func (s *UserStore) PremiumCount(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("premium_expiry > ?", now).Count(&n).Error
	return n, err
}
