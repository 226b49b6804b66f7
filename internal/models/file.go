package models

import (
	"time"

	"gorm.io/datatypes"
)

// File is attachment metadata. The payload lives in the configured blob
// store under StorageKey.
type File struct {
	Base
	FirmID       string                      `gorm:"type:uuid;not null;index" json:"firm_id"`
	MemberID     *string                     `gorm:"type:uuid;index" json:"member_id,omitempty"`
	OriginalName string                      `gorm:"not null" json:"original_name"`
	MimeType     string                      `gorm:"not null" json:"mime_type"`
	Size         int64                       `gorm:"not null" json:"size"`
	Checksum     string                      `gorm:"size:64;not null" json:"checksum"`
	StorageKey   string                      `gorm:"not null;uniqueIndex" json:"-"`
	Tags         datatypes.JSONSlice[string] `json:"tags,omitempty"`
}

// FundFactsheet links an investor firm to a dated factsheet document.
type FundFactsheet struct {
	Base
	FirmID       string    `gorm:"type:uuid;not null;index" json:"firm_id"`
	FileID       string    `gorm:"type:uuid;not null;uniqueIndex" json:"file_id"`
	File         *File     `gorm:"foreignKey:FileID" json:"file,omitempty"`
	DocumentDate time.Time `gorm:"not null" json:"document_date"`
}

// BlobRecord holds attachment payloads when BLOB_BACKEND=database.
type BlobRecord struct {
	Key       string `gorm:"primaryKey"`
	Data      []byte `gorm:"not null"`
	CreatedAt time.Time
}

// TableName overrides the default pluralisation.
func (BlobRecord) TableName() string { return "file_blobs" }
