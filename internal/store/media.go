package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"autofilter-bot/internal/models"
)

var nameNoise = regexp.MustCompile(`[_\-.+]`)

// NormalizeName flattens the separators channels sprinkle into filenames so
// lookups survive renames like Some.Movie_2024-WEB.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(nameNoise.ReplaceAllString(name, " ")), " ")
}

type MediaStore struct {
	db *gorm.DB
}

func NewMediaStore(db *gorm.DB) *MediaStore {
	return &MediaStore{db: db}
}

// Save upserts by content fingerprint, refreshing the transport reference
// when the same file is indexed again under a new file id.
func (s *MediaStore) Save(ctx context.Context, rec *models.MediaRecord) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"file_ref", "file_name", "file_size", "mime_type", "caption"}),
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("failed to save media %s: %w", rec.FileKey, err)
	}
	return nil
}

func (s *MediaStore) Get(ctx context.Context, fileKey string) (*models.MediaRecord, error) {
	var rec models.MediaRecord
	err := s.db.WithContext(ctx).First(&rec, "file_key = ?", fileKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media %s: %w", fileKey, err)
	}
	return &rec, nil
}

func (s *MediaStore) GetMany(ctx context.Context, fileKeys []string) ([]models.MediaRecord, error) {
	var recs []models.MediaRecord
	err := s.db.WithContext(ctx).Where("file_key IN ?", fileKeys).Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get media batch: %w", err)
	}
	// Preserve the requested order; IN gives no ordering guarantee.
	byKey := make(map[string]models.MediaRecord, len(recs))
	for _, r := range recs {
		byKey[r.FileKey] = r
	}
	ordered := make([]models.MediaRecord, 0, len(recs))
	for _, k := range fileKeys {
		if r, ok := byKey[k]; ok {
			ordered = append(ordered, r)
		}
	}
	return ordered, nil
}

// Search matches file names case-insensitively on every word of the query.
func (s *MediaStore) Search(ctx context.Context, query string, limit int) ([]models.MediaRecord, error) {
	tx := s.db.WithContext(ctx).Model(&models.MediaRecord{})
	for _, word := range strings.Fields(NormalizeName(query)) {
		tx = tx.Where("file_name ILIKE ?", "%"+word+"%")
	}
	var recs []models.MediaRecord
	if err := tx.Order("created_at DESC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to search media %q: %w", query, err)
	}
	return recs, nil
}

// deleteTier is one fallback stage of Delete.
type deleteTier struct {
	query string
	args  []interface{}
}

// deleteTiers lists the fallback stages in the order Delete runs them:
// exact fingerprint first, then normalized-name+size+mime, then
// raw-name+size+mime. Filenames are not perfectly normalized at ingest,
// so each tier catches records the previous one misses.
func deleteTiers(fileKey, fileName string, fileSize int64, mimeType string) []deleteTier {
	byName := "file_name = ? AND file_size = ? AND mime_type = ?"
	return []deleteTier{
		{query: "file_key = ?", args: []interface{}{fileKey}},
		{query: byName, args: []interface{}{NormalizeName(fileName), fileSize, mimeType}},
		{query: byName, args: []interface{}{fileName, fileSize, mimeType}},
	}
}

// Delete removes a record, stopping at the first tier that matches.
// Returns how many rows went away.
func (s *MediaStore) Delete(ctx context.Context, fileKey, fileName string, fileSize int64, mimeType string) (int64, error) {
	for _, tier := range deleteTiers(fileKey, fileName, fileSize, mimeType) {
		res := s.db.WithContext(ctx).Where(tier.query, tier.args...).Delete(&models.MediaRecord{})
		if res.Error != nil {
			return 0, fmt.Errorf("failed to delete media %s: %w", fileKey, res.Error)
		}
		if res.RowsAffected > 0 {
			return res.RowsAffected, nil
		}
	}
	return 0, nil
}

func (s *MediaStore) DeleteAll(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("1 = 1").Delete(&models.MediaRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete all media: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *MediaStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.MediaRecord{}).Count(&n).Error
	return n, err
}

func (s *MediaStore) Recent(ctx context.Context, limit int) ([]models.MediaRecord, error) {
	var recs []models.MediaRecord
	err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent media: %w", err)
	}
	return recs, nil
}
