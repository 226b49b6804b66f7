package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"investtrack/internal/models"
)

// FirmFilter holds optional filters for listing firms. Slice filters match
// any of the given values.
type FirmFilter struct {
	FirmType      string
	Name          string
	LocationType  string
	Sectors       []string
	RegionalFocus []string
	Localities    []string
	IsActive      *bool
}

// FirmInput is the body of a firm create request. Type selects the variant.
type FirmInput struct {
	Type          string              `json:"type"`
	Name          string              `json:"name" binding:"required"`
	LocationType  models.LocationType `json:"location_type" binding:"required,location_type"`
	Website       string              `json:"website" binding:"omitempty,url"`
	Remark        string              `json:"remark"`
	Comment       string              `json:"comment"`
	Address       models.Address      `json:"address"`
	Sectors       []string            `json:"sectors"`
	RegionalFocus []string            `json:"regional_focus"`
	FundSize      models.FundSize     `json:"fund_size"`
}

// FirmUpdate is a partial firm update. Nil fields are left unchanged; a
// non-nil Version must match the stored one.
type FirmUpdate struct {
	Type          string               `json:"type"`
	Name          *string              `json:"name" binding:"omitempty,min=1"`
	LocationType  *models.LocationType `json:"location_type" binding:"omitempty,location_type"`
	Website       *string              `json:"website" binding:"omitempty,url"`
	Remark        *string              `json:"remark"`
	Comment       *string              `json:"comment"`
	Address       *models.Address      `json:"address"`
	Sectors       []string             `json:"sectors"`
	RegionalFocus []string             `json:"regional_focus"`
	FundSize      *models.FundSize     `json:"fund_size"`
	IsActive      *bool                `json:"is_active"`
	Version       *int                 `json:"version"`
}

func (u *FirmUpdate) apply(f *models.Firm) {
	if u.Name != nil {
		f.Name = *u.Name
	}
	if u.LocationType != nil {
		f.LocationType = *u.LocationType
	}
	if u.Website != nil {
		f.Website = *u.Website
	}
	if u.Remark != nil {
		f.Remark = *u.Remark
	}
	if u.Comment != nil {
		f.Comment = *u.Comment
	}
	if u.Address != nil {
		f.Address = *u.Address
	}
	if u.Sectors != nil {
		f.Sectors = tags(u.Sectors)
	}
	if u.RegionalFocus != nil {
		f.RegionalFocus = tags(u.RegionalFocus)
	}
	if u.FundSize != nil {
		f.FundSize = *u.FundSize
	}
	if u.IsActive != nil {
		f.IsActive = *u.IsActive
	}
}

// MemberFilter holds optional filters for listing members.
type MemberFilter struct {
	MemberType  string
	FirmID      string
	Name        string
	Designation string
	IsGift      *bool
	Sectors     []string
	Localities  []string
}

// MemberInput is the body of a member create request. The variant follows
// the firm; Type, when given, must agree with it.
type MemberInput struct {
	Type               string              `json:"type"`
	FirmID             string              `json:"firm_id"`
	Name               string              `json:"name" binding:"required"`
	Email              string              `json:"email" binding:"required,email"`
	Mobile             models.MobileNumber `json:"mobile_number"`
	OfficeNumber       string              `json:"office_number"`
	Designation        string              `json:"designation" binding:"required"`
	Address            models.Address      `json:"address"`
	Comment            string              `json:"comment"`
	IsGift             bool                `json:"is_gift"`
	Sectors            []string            `json:"sectors"`
	RegionalFocus      []string            `json:"regional_focus"`
	FundSize           models.FundSize     `json:"fund_size"`
	IsExistingInvestor bool                `json:"is_existing_investor"`
	HoldingSize        decimal.NullDecimal `json:"holding_size"`
	LastHoldingDate    *time.Time          `json:"last_holding_date"`
}

func (in *MemberInput) toMember(firm *models.Firm) *models.Member {
	return &models.Member{
		MemberType:         firm.MemberType(),
		Name:               in.Name,
		Email:              in.Email,
		Mobile:             in.Mobile,
		OfficeNumber:       in.OfficeNumber,
		Designation:        in.Designation,
		Address:            in.Address,
		Comment:            in.Comment,
		IsGift:             in.IsGift,
		Version:            1,
		FirmID:             firm.ID,
		Sectors:            tags(in.Sectors),
		RegionalFocus:      tags(in.RegionalFocus),
		FundSize:           in.FundSize,
		IsExistingInvestor: in.IsExistingInvestor,
		HoldingSize:        in.HoldingSize,
		LastHoldingDate:    in.LastHoldingDate,
	}
}

// MemberUpdate is a partial member update; it also carries the field
// overrides of a transfer.
type MemberUpdate struct {
	Type               string               `json:"type"`
	Name               *string              `json:"name" binding:"omitempty,min=1"`
	Email              *string              `json:"email" binding:"omitempty,email"`
	Mobile             *models.MobileNumber `json:"mobile_number"`
	OfficeNumber       *string              `json:"office_number"`
	Designation        *string              `json:"designation" binding:"omitempty,min=1"`
	Address            *models.Address      `json:"address"`
	Comment            *string              `json:"comment"`
	IsGift             *bool                `json:"is_gift"`
	Sectors            []string             `json:"sectors"`
	RegionalFocus      []string             `json:"regional_focus"`
	FundSize           *models.FundSize     `json:"fund_size"`
	IsExistingInvestor *bool                `json:"is_existing_investor"`
	HoldingSize        *decimal.NullDecimal `json:"holding_size"`
	LastHoldingDate    *time.Time           `json:"last_holding_date"`
	Version            *int                 `json:"version"`
}

func (u *MemberUpdate) apply(m *models.Member) {
	if u.Name != nil {
		m.Name = *u.Name
	}
	if u.Email != nil {
		m.Email = *u.Email
	}
	if u.Mobile != nil {
		m.Mobile = *u.Mobile
	}
	if u.OfficeNumber != nil {
		m.OfficeNumber = *u.OfficeNumber
	}
	if u.Designation != nil {
		m.Designation = *u.Designation
	}
	if u.Address != nil {
		m.Address = *u.Address
	}
	if u.Comment != nil {
		m.Comment = *u.Comment
	}
	if u.IsGift != nil {
		m.IsGift = *u.IsGift
	}
	if u.Sectors != nil {
		m.Sectors = tags(u.Sectors)
	}
	if u.RegionalFocus != nil {
		m.RegionalFocus = tags(u.RegionalFocus)
	}
	if u.FundSize != nil {
		m.FundSize = *u.FundSize
	}
	if u.IsExistingInvestor != nil {
		m.IsExistingInvestor = *u.IsExistingInvestor
	}
	if u.HoldingSize != nil {
		m.HoldingSize = *u.HoldingSize
	}
	if u.LastHoldingDate != nil {
		m.LastHoldingDate = u.LastHoldingDate
	}
}

// BusinessCards carries optional front and back card images.
type BusinessCards struct {
	Front *Upload
	Back  *Upload
}

// TransferInput moves a member to FirmID, applying Overrides to the copy.
type TransferInput struct {
	FirmID    string        `json:"firm_id" binding:"required"`
	Overrides *MemberUpdate `json:"overrides"`
}

// CoverageInput is the body of a coverage create request.
type CoverageInput struct {
	FiscalYear     int                   `json:"fiscal_year" binding:"required,min=1900,max=2200"`
	Quarter        int                   `json:"quarter" binding:"required,min=1,max=4"`
	TargetPrice    *decimal.Decimal      `json:"tp" binding:"required"`
	Recommendation models.Recommendation `json:"recommendation" binding:"omitempty,recommendation"`
	CoverageDate   *time.Time            `json:"coverage_date"`
}

// CoverageUpdate is a partial coverage update.
type CoverageUpdate struct {
	FiscalYear     *int                   `json:"fiscal_year" binding:"omitempty,min=1900,max=2200"`
	Quarter        *int                   `json:"quarter" binding:"omitempty,min=1,max=4"`
	TargetPrice    *decimal.Decimal       `json:"tp"`
	Recommendation *models.Recommendation `json:"recommendation" binding:"omitempty,recommendation"`
	CoverageDate   *time.Time             `json:"coverage_date"`
}

// InteractionFilter holds optional filters for listing interactions.
type InteractionFilter struct {
	FirmID   string
	MemberID string
}

// InteractionInput is the body of an interaction create request. FirmID
// defaults to the member's current firm.
type InteractionInput struct {
	FirmID            string     `json:"firm_id"`
	MemberID          string     `json:"member_id" binding:"required"`
	Content           string     `json:"content" binding:"required"`
	DateOfInteraction *time.Time `json:"date_of_interaction"`
}

// InteractionUpdate is a partial interaction update.
type InteractionUpdate struct {
	Content           *string    `json:"content" binding:"omitempty,min=1"`
	DateOfInteraction *time.Time `json:"date_of_interaction"`
}

// EventFilter holds optional filters for listing events.
type EventFilter struct {
	FirmID   string
	MemberID string
	Mode     string
	NextStep string
}

// EventInput is the body of an event create request.
type EventInput struct {
	FirmID            string           `json:"firm_id" binding:"required"`
	MemberID          string           `json:"member_id" binding:"required"`
	Name              string           `json:"name" binding:"required"`
	Type              string           `json:"type" binding:"required"`
	Mode              models.EventMode `json:"mode" binding:"required,event_mode"`
	Location          string           `json:"location"`
	StartDate         *time.Time       `json:"start_date" binding:"required"`
	EndDate           *time.Time       `json:"end_date" binding:"required"`
	RKLAttendees      string           `json:"rkl_attendees"`
	NextStep          models.NextStep  `json:"next_step" binding:"omitempty,next_step"`
	IsInvited         bool             `json:"is_invited"`
	ExchangeIntimated bool             `json:"exchange_intimated"`
}

// EventUpdate is a partial event update.
type EventUpdate struct {
	Name              *string           `json:"name" binding:"omitempty,min=1"`
	Type              *string           `json:"type" binding:"omitempty,min=1"`
	Mode              *models.EventMode `json:"mode" binding:"omitempty,event_mode"`
	Location          *string           `json:"location"`
	StartDate         *time.Time        `json:"start_date"`
	EndDate           *time.Time        `json:"end_date"`
	RKLAttendees      *string           `json:"rkl_attendees"`
	NextStep          *models.NextStep  `json:"next_step" binding:"omitempty,next_step"`
	IsInvited         *bool             `json:"is_invited"`
	ExchangeIntimated *bool             `json:"exchange_intimated"`
}

// tags trims, drops blanks and de-duplicates while keeping order.
func tags(in []string) datatypes.JSONSlice[string] {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, t := range in {
		t = trimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return datatypes.NewJSONSlice(out)
}
