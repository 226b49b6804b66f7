package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"investtrack/internal/models"
	"investtrack/internal/testutil"
)

func TestResolveFirmType(t *testing.T) {
	tests := []struct {
		tag     string
		want    models.FirmType
		wantErr bool
	}{
		{"broker", models.FirmTypeBroker, false},
		{"Investor", models.FirmTypeInvestor, false},
		{" broker ", models.FirmTypeBroker, false},
		{"bank", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, err := ResolveFirmType(tt.tag)
			if tt.wantErr {
				testutil.AssertAppError(t, err, "INVALID_TYPE")
				return
			}
			testutil.AssertNoError(t, err)
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestResolveMemberType(t *testing.T) {
	if _, err := ResolveMemberType("fund"); err == nil {
		t.Fatal("expected error for unknown member type")
	}
	got, err := ResolveMemberType("INVESTOR")
	testutil.AssertNoError(t, err)
	if got != models.MemberTypeInvestor {
		t.Errorf("expected investor, got %s", got)
	}
}

func TestNormalizeFirm(t *testing.T) {
	t.Run("broker_clears_investor_fields", func(t *testing.T) {
		f := &models.Firm{
			FirmType:      models.FirmTypeBroker,
			Name:          "  Acme  ",
			LocationType:  models.LocationDomestic,
			Sectors:       tags([]string{"IT"}),
			RegionalFocus: tags([]string{"Asia"}),
		}
		testutil.AssertNoError(t, normalizeFirm(f))
		if f.Name != "Acme" {
			t.Errorf("expected trimmed name, got %q", f.Name)
		}
		if f.RegionalFocus != nil {
			t.Errorf("expected regional focus cleared, got %v", f.RegionalFocus)
		}
	})

	t.Run("reports_every_field", func(t *testing.T) {
		f := &models.Firm{FirmType: models.FirmTypeInvestor}
		appErr := testutil.AssertAppError(t, normalizeFirm(f), "VALIDATION_ERROR")
		if len(appErr.Fields) != 3 {
			t.Fatalf("expected 3 field errors, got %+v", appErr.Fields)
		}
	})
}

func TestNormalizeMember(t *testing.T) {
	base := func(mt models.MemberType) *models.Member {
		return &models.Member{
			MemberType:  mt,
			Name:        "Jane",
			Email:       " Jane@Example.COM ",
			Mobile:      models.MobileNumber{CountryCode: "in", Number: "9000000001"},
			Designation: "Analyst",
		}
	}

	t.Run("broker", func(t *testing.T) {
		m := base(models.MemberTypeBroker)
		m.IsExistingInvestor = true
		testutil.AssertNoError(t, normalizeMember(m))
		if m.Email != "jane@example.com" {
			t.Errorf("expected lower-cased email, got %s", m.Email)
		}
		if m.Mobile.CountryCode != "IN" {
			t.Errorf("expected upper-cased country code, got %s", m.Mobile.CountryCode)
		}
		if m.IsExistingInvestor {
			t.Error("expected investor flag cleared for broker members")
		}
	})

	t.Run("investor_requirements", func(t *testing.T) {
		m := base(models.MemberTypeInvestor)
		m.IsExistingInvestor = true
		appErr := testutil.AssertAppError(t, normalizeMember(m), "VALIDATION_ERROR")
		want := map[string]bool{
			"regional_focus":            true,
			"fund_size.indian_exposure": true,
			"holding_size":              true,
			"last_holding_date":         true,
		}
		for _, f := range appErr.Fields {
			delete(want, f.Field)
		}
		if len(want) != 0 {
			t.Errorf("missing field errors: %v", want)
		}
	})

	t.Run("investor_complete", func(t *testing.T) {
		m := base(models.MemberTypeInvestor)
		now := time.Now()
		m.RegionalFocus = tags([]string{"Asia"})
		m.FundSize.IndianExposure = decimal.NewNullDecimal(dec(10))
		m.IsExistingInvestor = true
		m.HoldingSize = decimal.NewNullDecimal(dec(5))
		m.LastHoldingDate = &now
		testutil.AssertNoError(t, normalizeMember(m))
	})
}

func TestTags(t *testing.T) {
	got := tags([]string{" IT ", "", "Banking", "IT"})
	if len(got) != 2 || got[0] != "IT" || got[1] != "Banking" {
		t.Errorf("unexpected tags %v", got)
	}
}
