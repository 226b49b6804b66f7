package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"investtrack/internal/blob"
	"investtrack/internal/models"
	"investtrack/internal/testutil"
)

func TestAttachmentsInspect(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	files := newTestAttachments(t, db)

	tests := []struct {
		name       string
		upload     *Upload
		imagesOnly bool
		wantMIME   string
		wantCode   string
	}{
		{"png", pngUpload("card.png", 1), true, "image/png", ""},
		{"pdf", pdfUpload("report.pdf", 1<<20), false, "application/pdf", ""},
		{"text_with_charset", &Upload{Filename: "a.txt", ContentType: "text/plain; charset=utf-8", Data: []byte("hello world")}, false, "text/plain", ""},
		{"svg_card", &Upload{Filename: "card.svg", ContentType: "image/svg+xml", Data: []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="1" height="1"></svg>`)}, true, "image/svg+xml", ""},
		{"rtf", &Upload{Filename: "memo.rtf", ContentType: "application/rtf", Data: []byte(`{\rtf1\ansi Quarterly memo}`)}, false, "application/rtf", ""},
		{"declared_jpg", &Upload{Filename: "scan.jpg", ContentType: "image/jpg", Data: []byte{0x00, 0x01, 0x02, 0x03}}, true, "image/jpg", ""},
		{"csv", &Upload{Filename: "holdings.csv", ContentType: "text/csv", Data: []byte("name,units\nacme,10\nglobex,20\n")}, false, "", "UNSUPPORTED_MEDIA_TYPE"},
		{"zip", zipUpload("archive.zip"), false, "", "UNSUPPORTED_MEDIA_TYPE"},
		{"zip_claiming_pdf", &Upload{Filename: "x.pdf", ContentType: "application/pdf", Data: zipUpload("x").Data}, false, "", "UNSUPPORTED_MEDIA_TYPE"},
		{"pdf_as_avatar", pdfUpload("report.pdf", 64), true, "", "UNSUPPORTED_MEDIA_TYPE"},
		{"too_large", pdfUpload("big.pdf", 16<<20), false, "", "FILE_TOO_LARGE"},
		{"empty", &Upload{Filename: "empty.pdf"}, false, "", "FILE_NOT_ATTACHED"},
		{"nil", nil, false, "", "FILE_NOT_ATTACHED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt, err := files.inspect(tt.upload, tt.imagesOnly)
			if tt.wantCode != "" {
				testutil.AssertAppError(t, err, tt.wantCode)
				return
			}
			testutil.AssertNoError(t, err)
			if mt != tt.wantMIME {
				t.Errorf("expected %s, got %s", tt.wantMIME, mt)
			}
		})
	}
}

func TestAttachmentsRun(t *testing.T) {
	t.Run("round_trip", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		files := newTestAttachments(t, db)
		firm := testutil.CreateTestBroker(t, db)

		up := pdfUpload("report.pdf", 1<<20)
		staged, err := files.stage(up, firm.ID, nil)
		testutil.AssertNoError(t, err)
		err = files.run(ctx, []*stagedFile{staged}, func(tx *gorm.DB) ([]string, error) {
			return nil, tx.Create(staged.file).Error
		})
		testutil.AssertNoError(t, err)

		file, data, err := files.Download(ctx, staged.file.ID)
		testutil.AssertNoError(t, err)
		if !bytes.Equal(data, up.Data) {
			t.Fatal("downloaded payload differs from upload")
		}
		if file.MimeType != "application/pdf" || file.OriginalName != "report.pdf" {
			t.Errorf("unexpected metadata %+v", file)
		}
		if file.Size != 1<<20 || len(file.Checksum) != 64 {
			t.Errorf("unexpected size/checksum %d %q", file.Size, file.Checksum)
		}
	})

	t.Run("failed_transaction_discards_payload", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store := blob.NewDatabaseStore(db)
		files := NewAttachments(db, store, 0)
		firm := testutil.CreateTestBroker(t, db)

		staged, err := files.stage(pngUpload("card.png", 2), firm.ID, nil)
		testutil.AssertNoError(t, err)
		boom := errors.New("boom")
		err = files.run(ctx, []*stagedFile{staged}, func(tx *gorm.DB) ([]string, error) {
			if err := tx.Create(staged.file).Error; err != nil {
				return nil, err
			}
			return nil, boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if _, err := store.Get(context.Background(), staged.file.StorageKey); !errors.Is(err, blob.ErrNotFound) {
			t.Errorf("expected payload removed, got %v", err)
		}
		if n := countRows(t, db, &models.File{}, "id = ?", staged.file.ID); n != 0 {
			t.Errorf("expected metadata rolled back, found %d", n)
		}
	})

	t.Run("obsolete_payload_removed_after_commit", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store := blob.NewDatabaseStore(db)
		files := NewAttachments(db, store, 0)

		testutil.AssertNoError(t, store.Put(ctx, "files/old", []byte("old")))
		err := files.run(ctx, nil, func(tx *gorm.DB) ([]string, error) {
			return []string{"files/old"}, nil
		})
		testutil.AssertNoError(t, err)
		if _, err := store.Get(ctx, "files/old"); !errors.Is(err, blob.ErrNotFound) {
			t.Errorf("expected obsolete payload removed, got %v", err)
		}
	})
}

func TestDownload_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	files := newTestAttachments(t, db)
	firm := testutil.CreateTestBroker(t, db)

	_, _, err := files.Download(ctx, "0190a0b4-0000-7000-8000-000000000000")
	testutil.AssertAppError(t, err, "FILE_NOT_FOUND")

	// Metadata without a payload.
	file := testutil.CreateTestFile(t, db, firm.ID, nil)
	_, _, err = files.Download(ctx, file.ID)
	testutil.AssertAppError(t, err, "FILE_NOT_FOUND")
}
