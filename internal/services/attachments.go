package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"gorm.io/gorm"

	"investtrack/internal/blob"
	apperrors "investtrack/internal/errors"
	"investtrack/internal/logger"
	"investtrack/internal/models"
	"investtrack/internal/uuid"
)

// DefaultUploadMaxBytes is the attachment size cap (15 MiB).
const DefaultUploadMaxBytes int64 = 15 << 20

// allowedMIMEs are the attachment types accepted for upload.
var allowedMIMEs = []string{
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/gif",
	"image/bmp",
	"image/webp",
	"image/tiff",
	"image/svg+xml",

	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"application/vnd.ms-outlook",
	"application/rtf",
	"application/x-rtf",

	"text/plain",
}

var allowedMIME = func() map[string]bool {
	m := make(map[string]bool, len(allowedMIMEs))
	for _, mt := range allowedMIMEs {
		m[mt] = true
	}
	return m
}()

// Attachments binds uploaded payloads to their owning records. Payloads are
// written to the blob store before the metadata transaction runs and removed
// again if it fails; payloads a transaction made obsolete are removed only
// after it commits.
type Attachments struct {
	db       *gorm.DB
	blobs    blob.Store
	maxBytes int64
}

// NewAttachments creates the attachment lifecycle helper. A non-positive
// maxBytes selects DefaultUploadMaxBytes.
func NewAttachments(db *gorm.DB, blobs blob.Store, maxBytes int64) *Attachments {
	if maxBytes <= 0 {
		maxBytes = DefaultUploadMaxBytes
	}
	return &Attachments{db: db, blobs: blobs, maxBytes: maxBytes}
}

type stagedFile struct {
	file *models.File
	data []byte
}

// resolveMIME prefers the sniffed type and falls back to the declared one
// when the content is not recognised.
func resolveMIME(declared string, data []byte) string {
	detected := mimetype.Detect(data)
	if detected.Is("application/octet-stream") {
		return baseMIME(declared)
	}
	mt := baseMIME(detected.String())
	if allowedMIME[mt] {
		return mt
	}
	// Detected aliases, e.g. text/rtf, map onto the allowed name.
	for _, allowed := range allowedMIMEs {
		if detected.Is(allowed) {
			return allowed
		}
	}
	return mt
}

func baseMIME(s string) string {
	if mt, _, err := mime.ParseMediaType(s); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// inspect checks size and type of an upload and returns its MIME type.
func (a *Attachments) inspect(up *Upload, imagesOnly bool) (string, error) {
	if up == nil || len(up.Data) == 0 {
		return "", apperrors.ErrAttachmentMissing
	}
	if int64(len(up.Data)) > a.maxBytes {
		return "", apperrors.WithMessage(apperrors.ErrFileTooLarge,
			fmt.Sprintf("%s exceeds the %d MiB upload limit", up.Filename, a.maxBytes>>20))
	}
	mt := resolveMIME(up.ContentType, up.Data)
	if !allowedMIME[mt] || (imagesOnly && !strings.HasPrefix(mt, "image/")) {
		return "", apperrors.WithMessage(apperrors.ErrUnsupportedMedia,
			fmt.Sprintf("File type %s is not allowed", mt))
	}
	return mt, nil
}

// stage validates an upload and prepares its metadata row. Nothing is
// written until run.
func (a *Attachments) stage(up *Upload, firmID string, memberID *string, fileTags ...string) (*stagedFile, error) {
	mt, err := a.inspect(up, false)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(up.Data)
	id := uuid.New()
	name := filepath.Base(strings.TrimSpace(up.Filename))
	if name == "." || name == "/" {
		name = "attachment"
	}
	return &stagedFile{
		file: &models.File{
			Base:         models.Base{ID: id},
			FirmID:       firmID,
			MemberID:     memberID,
			OriginalName: name,
			MimeType:     mt,
			Size:         int64(len(up.Data)),
			Checksum:     hex.EncodeToString(sum[:]),
			StorageKey:   "files/" + id,
			Tags:         tags(fileTags),
		},
		data: up.Data,
	}, nil
}

// run stores the staged payloads, then executes fn in a transaction. fn
// returns the storage keys it made obsolete.
func (a *Attachments) run(ctx context.Context, staged []*stagedFile, fn func(tx *gorm.DB) ([]string, error)) error {
	var written []string
	for _, sf := range staged {
		if sf == nil {
			continue
		}
		if err := a.blobs.Put(ctx, sf.file.StorageKey, sf.data); err != nil {
			a.discard(ctx, written)
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		written = append(written, sf.file.StorageKey)
	}

	var obsolete []string
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		obsolete, err = fn(tx)
		return err
	})
	if err != nil {
		a.discard(ctx, written)
		return err
	}
	a.discard(ctx, obsolete)
	return nil
}

// discard deletes payloads; failures are logged and leave an orphaned blob.
func (a *Attachments) discard(ctx context.Context, keys []string) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := a.blobs.Delete(ctx, key); err != nil {
			logger.FromContext(ctx).Warnw("failed to delete attachment payload", "key", key, "error", err)
		}
	}
}

// deleteFiles removes metadata rows inside tx and returns their storage keys.
func deleteFiles(tx *gorm.DB, ids ...string) ([]string, error) {
	ids = compact(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	var keys []string
	if err := tx.Model(&models.File{}).Where("id IN ?", ids).Pluck("storage_key", &keys).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := tx.Where("id IN ?", ids).Delete(&models.File{}).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return keys, nil
}

func compact(ids []string) []string {
	out := ids[:0:0]
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

// GetFile returns attachment metadata.
func (a *Attachments) GetFile(ctx context.Context, id string) (*models.File, error) {
	var file models.File
	if err := a.db.WithContext(ctx).First(&file, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrFileNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &file, nil
}

// Download returns attachment metadata and its payload.
func (a *Attachments) Download(ctx context.Context, id string) (*models.File, []byte, error) {
	file, err := a.GetFile(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := a.blobs.Get(ctx, file.StorageKey)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, nil, apperrors.ErrFileNotFound
	}
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return file, data, nil
}
