package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// FirmType is the discriminator stored in firms.firm_type.
type FirmType string

const (
	FirmTypeBroker   FirmType = "broker"
	FirmTypeInvestor FirmType = "investor"
)

// LocationType is where a firm is domiciled.
type LocationType string

const (
	LocationDomestic LocationType = "Domestic"
	LocationForeign  LocationType = "Foreign"
)

// FundSize holds exposure figures shared by investor firms and investor members.
type FundSize struct {
	GlobalExposure decimal.NullDecimal `gorm:"type:numeric(20,2)" json:"global_exposure"`
	IndianExposure decimal.NullDecimal `gorm:"type:numeric(20,2)" json:"indian_exposure"`
}

// Firm is a Broker or an Investor; both live in the firms table and are told
// apart by FirmType. Variant-only columns stay empty for the other variant.
type Firm struct {
	Base
	FirmType     FirmType     `gorm:"type:varchar(16);not null;index" json:"firm_type"`
	Name         string       `gorm:"uniqueIndex;not null" json:"name"`
	LocationType LocationType `gorm:"type:varchar(16);not null;index" json:"location_type"`
	Website      string       `json:"website,omitempty"`
	Remark       string       `json:"remark,omitempty"`
	Comment      string       `json:"comment,omitempty"`
	Address      Address      `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	CreatedByID  *string      `gorm:"type:uuid;index" json:"created_by,omitempty"`
	IsActive     bool         `gorm:"not null;default:true;index" json:"is_active"`
	Version      int          `gorm:"not null;default:1" json:"version"`

	// Broker
	Sectors datatypes.JSONSlice[string] `json:"sectors,omitempty"`

	// Investor
	RegionalFocus datatypes.JSONSlice[string] `json:"regional_focus,omitempty"`
	FundSize      FundSize                    `gorm:"embedded;embeddedPrefix:fund_size_" json:"fund_size"`

	Members        []Member        `gorm:"foreignKey:FirmID" json:"members,omitempty"`
	Coverages      []Coverage      `gorm:"foreignKey:FirmID" json:"coverages,omitempty"`
	FundFactsheets []FundFactsheet `gorm:"foreignKey:FirmID" json:"fund_factsheets,omitempty"`
}

// IsBroker reports whether the firm is the Broker variant.
func (f *Firm) IsBroker() bool { return f.FirmType == FirmTypeBroker }

// IsInvestor reports whether the firm is the Investor variant.
func (f *Firm) IsInvestor() bool { return f.FirmType == FirmTypeInvestor }

// MemberType returns the member variant that belongs under this firm.
func (f *Firm) MemberType() MemberType {
	if f.IsInvestor() {
		return MemberTypeInvestor
	}
	return MemberTypeBroker
}
