package services

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"investtrack/internal/models"
	"investtrack/internal/pagination"
	"investtrack/internal/testutil"
)

func brokerInput(name string) FirmInput {
	return FirmInput{
		Type:         "broker",
		Name:         name,
		LocationType: models.LocationDomestic,
		Address:      models.Address{Locality: "Fort", Country: "India"},
		Sectors:      []string{"Banking", "IT"},
	}
}

func investorInput(name string) FirmInput {
	return FirmInput{
		Type:          "investor",
		Name:          name,
		LocationType:  models.LocationForeign,
		Address:       models.Address{Locality: "Marina", Country: "Singapore"},
		RegionalFocus: []string{"Asia"},
		FundSize: models.FundSize{
			GlobalExposure: decimal.NewNullDecimal(dec(1000)),
			IndianExposure: decimal.NewNullDecimal(dec(250)),
		},
	}
}

func TestCreateFirm(t *testing.T) {
	t.Run("broker", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewFirmService(db, newTestAttachments(t, db))
		user := testutil.CreateTestAdmin(t, db)

		in := brokerInput("Acme Securities")
		in.RegionalFocus = []string{"Asia"}
		firm, err := svc.CreateFirm(ctx, user.ID, in)
		testutil.AssertNoError(t, err)

		if firm.ID == "" {
			t.Fatal("expected id to be assigned")
		}
		if firm.FirmType != models.FirmTypeBroker || !firm.IsActive {
			t.Errorf("unexpected firm %+v", firm)
		}
		if len(firm.RegionalFocus) != 0 {
			t.Errorf("expected investor fields cleared, got %v", firm.RegionalFocus)
		}
		if firm.CreatedByID == nil || *firm.CreatedByID != user.ID {
			t.Error("expected creator to be recorded")
		}

		var linked int64
		db.Table("user_firms").Where("user_id = ? AND firm_id = ?", user.ID, firm.ID).Count(&linked)
		if linked != 1 {
			t.Errorf("expected firm linked to creator, got %d", linked)
		}
	})

	t.Run("investor", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewFirmService(db, newTestAttachments(t, db))

		firm, err := svc.CreateFirm(ctx, "", investorInput("Globex Capital"))
		testutil.AssertNoError(t, err)
		if !firm.IsInvestor() {
			t.Errorf("expected investor, got %s", firm.FirmType)
		}
	})

	t.Run("unknown_type", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewFirmService(db, newTestAttachments(t, db))

		in := brokerInput("Acme")
		in.Type = "bank"
		_, err := svc.CreateFirm(ctx, "", in)
		testutil.AssertAppError(t, err, "INVALID_TYPE")
	})

	t.Run("broker_without_sectors", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewFirmService(db, newTestAttachments(t, db))

		in := brokerInput("Acme")
		in.Sectors = []string{" "}
		_, err := svc.CreateFirm(ctx, "", in)
		testutil.AssertInvalidFields(t, err, "sectors")
	})

	t.Run("duplicate_name_across_variants", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewFirmService(db, newTestAttachments(t, db))

		_, err := svc.CreateFirm(ctx, "", brokerInput("Acme"))
		testutil.AssertNoError(t, err)

		_, err = svc.CreateFirm(ctx, "", investorInput("Acme"))
		testutil.AssertDuplicate(t, err, "name")
	})
}

func TestListFirms(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewFirmService(db, newTestAttachments(t, db))

	_, err := svc.CreateFirm(ctx, "", brokerInput("Acme Securities"))
	testutil.AssertNoError(t, err)
	pharma := brokerInput("Zen Broking")
	pharma.Sectors = []string{"Pharma"}
	pharma.Address.Locality = "Andheri"
	_, err = svc.CreateFirm(ctx, "", pharma)
	testutil.AssertNoError(t, err)
	_, err = svc.CreateFirm(ctx, "", investorInput("Globex Capital"))
	testutil.AssertNoError(t, err)

	tests := []struct {
		name   string
		filter FirmFilter
		want   []string
	}{
		{"all_ordered_by_type_then_name", FirmFilter{}, []string{"Acme Securities", "Zen Broking", "Globex Capital"}},
		{"by_type", FirmFilter{FirmType: "investor"}, []string{"Globex Capital"}},
		{"name_case_insensitive", FirmFilter{Name: "ACME"}, []string{"Acme Securities"}},
		{"sectors_any", FirmFilter{Sectors: []string{"Pharma", "Mining"}}, []string{"Zen Broking"}},
		{"regional_focus", FirmFilter{RegionalFocus: []string{"Asia"}}, []string{"Globex Capital"}},
		{"localities", FirmFilter{Localities: []string{"Andheri"}}, []string{"Zen Broking"}},
		{"location_type", FirmFilter{LocationType: "Foreign"}, []string{"Globex Capital"}},
		{"inactive", FirmFilter{IsActive: boolPtr(false)}, nil},
		{"percent_is_literal", FirmFilter{Name: "%"}, nil},
		{"underscore_is_literal", FirmFilter{Name: "acme_securities"}, nil},
		{"sector_wildcard_is_literal", FirmFilter{Sectors: []string{"Pharm_"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.ListFirms(ctx, tt.filter, pagination.PageRequest{})
			testutil.AssertNoError(t, err)
			if int(result.TotalItems) != len(tt.want) || len(result.Data) != len(tt.want) {
				t.Fatalf("expected %d firms, got %d (total %d)", len(tt.want), len(result.Data), result.TotalItems)
			}
			for i, name := range tt.want {
				if result.Data[i].Name != name {
					t.Errorf("position %d: expected %s, got %s", i, name, result.Data[i].Name)
				}
			}
		})
	}

	t.Run("pagination", func(t *testing.T) {
		result, err := svc.ListFirms(ctx, FirmFilter{}, pagination.PageRequest{Page: 2, PerPage: 2})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 3 || result.TotalPages != 2 || len(result.Data) != 1 {
			t.Errorf("unexpected page %+v", result)
		}
		if result.Data[0].Name != "Globex Capital" {
			t.Errorf("expected Globex Capital on page 2, got %s", result.Data[0].Name)
		}
	})

	t.Run("invalid_type", func(t *testing.T) {
		_, err := svc.ListFirms(ctx, FirmFilter{FirmType: "bank"}, pagination.PageRequest{})
		testutil.AssertAppError(t, err, "INVALID_TYPE")
	})
}

func TestGetFirm(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewFirmService(db, newTestAttachments(t, db))

	firm := testutil.CreateTestBroker(t, db)
	member := testutil.CreateTestMember(t, db, firm)

	got, err := svc.GetFirm(ctx, firm.ID)
	testutil.AssertNoError(t, err)
	if len(got.Members) != 1 || got.Members[0].ID != member.ID {
		t.Errorf("expected firm members to contain %s, got %+v", member.ID, got.Members)
	}

	_, err = svc.GetFirm(ctx, "0190a0b4-0000-7000-8000-000000000000")
	testutil.AssertAppError(t, err, "FIRM_NOT_FOUND")
}

func TestUpdateFirm(t *testing.T) {
	t.Run("partial", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewFirmService(db, newTestAttachments(t, db))
		firm := testutil.CreateTestBroker(t, db)

		updated, err := svc.UpdateFirm(ctx, firm.ID, FirmUpdate{
			Website: strPtr("https://acme.example"),
			Sectors: []string{"Auto"},
			Version: intPtr(1),
		})
		testutil.AssertNoError(t, err)
		if updated.Website != "https://acme.example" || len(updated.Sectors) != 1 {
			t.Errorf("unexpected firm %+v", updated)
		}
		if updated.Version != 2 {
			t.Errorf("expected version 2, got %d", updated.Version)
		}
		if updated.Name != firm.Name {
			t.Errorf("expected name unchanged, got %s", updated.Name)
		}
	})

	t.Run("stale_version", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewFirmService(db, newTestAttachments(t, db))
		firm := testutil.CreateTestBroker(t, db)

		_, err := svc.UpdateFirm(ctx, firm.ID, FirmUpdate{Remark: strPtr("first"), Version: intPtr(1)})
		testutil.AssertNoError(t, err)
		_, err = svc.UpdateFirm(ctx, firm.ID, FirmUpdate{Remark: strPtr("second"), Version: intPtr(1)})
		testutil.AssertAppError(t, err, "VERSION_CONFLICT")
	})

	t.Run("type_change_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewFirmService(db, newTestAttachments(t, db))
		firm := testutil.CreateTestBroker(t, db)

		_, err := svc.UpdateFirm(ctx, firm.ID, FirmUpdate{Type: "investor"})
		testutil.AssertAppError(t, err, "INVALID_OPERATION")
	})

	t.Run("clearing_sectors_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewFirmService(db, newTestAttachments(t, db))
		firm := testutil.CreateTestBroker(t, db)

		_, err := svc.UpdateFirm(ctx, firm.ID, FirmUpdate{Sectors: []string{}})
		testutil.AssertAppError(t, err, "VALIDATION_ERROR")
	})

	t.Run("duplicate_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewFirmService(db, newTestAttachments(t, db))
		taken := testutil.CreateTestBroker(t, db)
		firm := testutil.CreateTestInvestor(t, db)

		_, err := svc.UpdateFirm(ctx, firm.ID, FirmUpdate{Name: strPtr(taken.Name)})
		testutil.AssertAppError(t, err, "DUPLICATE_KEY")
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewFirmService(db, newTestAttachments(t, db))

		_, err := svc.UpdateFirm(ctx, "0190a0b4-0000-7000-8000-000000000000", FirmUpdate{})
		testutil.AssertAppError(t, err, "FIRM_NOT_FOUND")
	})
}

func TestDeactivateFirm(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	files := newTestAttachments(t, db)
	svc := NewFirmService(db, files)
	coverages := NewCoverageService(db, files)

	firm := testutil.CreateTestBroker(t, db)
	member := testutil.CreateTestMember(t, db, firm)
	_, err := coverages.CreateCoverage(ctx, firm.ID, CoverageInput{FiscalYear: 2024, Quarter: 1, TargetPrice: ptrDec(dec(100))}, nil)
	testutil.AssertNoError(t, err)

	deactivated, err := svc.DeactivateFirm(ctx, firm.ID)
	testutil.AssertNoError(t, err)
	if deactivated.IsActive {
		t.Fatal("expected firm to be inactive")
	}

	got, err := svc.GetFirm(ctx, firm.ID)
	testutil.AssertNoError(t, err)
	if got.IsActive {
		t.Error("expected stored firm to be inactive")
	}
	if len(got.Members) != 1 || got.Members[0].ID != member.ID {
		t.Errorf("expected members unchanged, got %+v", got.Members)
	}
	if len(got.Coverages) != 1 {
		t.Errorf("expected coverages unchanged, got %d", len(got.Coverages))
	}

	// Idempotent.
	_, err = svc.DeactivateFirm(ctx, firm.ID)
	testutil.AssertNoError(t, err)
}

func TestUpdateRemark(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewFirmService(db, newTestAttachments(t, db))
	firm := testutil.CreateTestInvestor(t, db)

	updated, err := svc.UpdateRemark(ctx, firm.ID, "  key account ")
	testutil.AssertNoError(t, err)
	if updated.Remark != "key account" {
		t.Errorf("expected trimmed remark, got %q", updated.Remark)
	}
}

func TestFactsheets(t *testing.T) {
	t.Run("upload_list_delete", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		files := newTestAttachments(t, db)
		svc := NewFirmService(db, files)
		firm := testutil.CreateTestInvestor(t, db)

		march := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
		jan := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
		up := pdfUpload("march.pdf", 2048)
		sheet, err := svc.UploadFactsheet(ctx, firm.ID, &march, up)
		testutil.AssertNoError(t, err)
		_, err = svc.UploadFactsheet(ctx, firm.ID, &jan, pdfUpload("jan.pdf", 1024))
		testutil.AssertNoError(t, err)

		sheets, err := svc.ListFactsheets(ctx, firm.ID)
		testutil.AssertNoError(t, err)
		if len(sheets) != 2 || sheets[0].File.OriginalName != "jan.pdf" {
			t.Fatalf("expected factsheets in document date order, got %+v", sheets)
		}

		_, data, err := files.Download(ctx, sheet.FileID)
		testutil.AssertNoError(t, err)
		if !bytes.Equal(data, up.Data) {
			t.Error("factsheet payload mismatch")
		}

		_, err = svc.DeleteFactsheet(ctx, firm.ID, sheet.ID)
		testutil.AssertNoError(t, err)
		_, err = files.GetFile(ctx, sheet.FileID)
		testutil.AssertAppError(t, err, "FILE_NOT_FOUND")

		_, err = svc.DeleteFactsheet(ctx, firm.ID, sheet.ID)
		testutil.AssertAppError(t, err, "FACTSHEET_NOT_FOUND")
	})

	t.Run("delete_by_file_id", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewFirmService(db, newTestAttachments(t, db))
		firm := testutil.CreateTestInvestor(t, db)

		sheet, err := svc.UploadFactsheet(ctx, firm.ID, nil, pdfUpload("q1.pdf", 512))
		testutil.AssertNoError(t, err)
		deleted, err := svc.DeleteFactsheet(ctx, firm.ID, sheet.FileID)
		testutil.AssertNoError(t, err)
		if deleted.ID != sheet.ID {
			t.Errorf("expected %s deleted, got %s", sheet.ID, deleted.ID)
		}
	})

	t.Run("broker_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewFirmService(db, newTestAttachments(t, db))
		firm := testutil.CreateTestBroker(t, db)

		_, err := svc.UploadFactsheet(ctx, firm.ID, nil, pdfUpload("q1.pdf", 512))
		testutil.AssertAppError(t, err, "INVALID_OPERATION")
		_, err = svc.ListFactsheets(ctx, firm.ID)
		testutil.AssertAppError(t, err, "INVALID_OPERATION")
	})

	t.Run("unsupported_media", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewFirmService(db, newTestAttachments(t, db))
		firm := testutil.CreateTestInvestor(t, db)

		_, err := svc.UploadFactsheet(ctx, firm.ID, nil, zipUpload("q1.zip"))
		testutil.AssertAppError(t, err, "UNSUPPORTED_MEDIA_TYPE")
		if n := countRows(t, db, &models.File{}, "firm_id = ?", firm.ID); n != 0 {
			t.Errorf("expected no file rows, got %d", n)
		}
	})
}

func ptrDec(d decimal.Decimal) *decimal.Decimal { return &d }
