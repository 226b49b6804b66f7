package blob

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"investtrack/internal/models"
)

// DatabaseStore keeps payloads in the file_blobs table next to the metadata.
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore returns a Store backed by the file_blobs table.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func (s *DatabaseStore) Put(ctx context.Context, key string, data []byte) error {
	return s.db.WithContext(ctx).Create(&models.BlobRecord{Key: key, Data: data}).Error
}

func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, error) {
	var rec models.BlobRecord
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.Data, nil
}

func (s *DatabaseStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("key = ?", key).Delete(&models.BlobRecord{}).Error
}

// Close is a no-op; the connection pool belongs to the database manager.
func (s *DatabaseStore) Close() error { return nil }
