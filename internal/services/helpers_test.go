package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"investtrack/internal/blob"
	"investtrack/internal/models"
)

var ctx = context.Background()

func newTestAttachments(t *testing.T, db *gorm.DB) *Attachments {
	t.Helper()
	return NewAttachments(db, blob.NewDatabaseStore(db), DefaultUploadMaxBytes)
}

func pngUpload(name string, marker byte) *Upload {
	data := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{marker}, 64)...)
	return &Upload{Filename: name, ContentType: "image/png", Data: data}
}

func pdfUpload(name string, size int) *Upload {
	data := make([]byte, size)
	copy(data, "%PDF-1.4\n")
	for i := 9; i < size; i++ {
		data[i] = byte(i % 251)
	}
	return &Upload{Filename: name, ContentType: "application/pdf", Data: data}
}

func zipUpload(name string) *Upload {
	data := append([]byte("PK\x03\x04"), bytes.Repeat([]byte{0x00}, 64)...)
	return &Upload{Filename: name, ContentType: "application/zip", Data: data}
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }

func brokerMemberInput(firmID, name, email, mobile string) MemberInput {
	return MemberInput{
		FirmID:      firmID,
		Name:        name,
		Email:       email,
		Mobile:      models.MobileNumber{CountryCode: "IN", Number: mobile},
		Designation: "Analyst",
		Sectors:     []string{"Banking"},
	}
}

func investorOverrides() *MemberUpdate {
	return &MemberUpdate{
		RegionalFocus: []string{"Asia"},
		FundSize: &models.FundSize{
			IndianExposure: decimal.NewNullDecimal(dec(500)),
		},
	}
}

func countRows(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
