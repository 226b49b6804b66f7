package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// MemberType is the discriminator stored in members.member_type.
type MemberType string

const (
	MemberTypeBroker   MemberType = "broker"
	MemberTypeInvestor MemberType = "investor"
)

// MobileNumber is embedded with a mobile_ prefix; the number is globally unique.
type MobileNumber struct {
	CountryCode string `gorm:"type:varchar(2)" json:"country_code"`
	Number      string `gorm:"uniqueIndex;not null" json:"number"`
}

// Member is a contact person at exactly one firm. BrokerMember and
// InvestorMember share the members table and differ by MemberType.
type Member struct {
	Base
	MemberType   MemberType   `gorm:"type:varchar(16);not null;index" json:"member_type"`
	Name         string       `gorm:"not null;index" json:"name"`
	Email        string       `gorm:"uniqueIndex;not null" json:"email"`
	Mobile       MobileNumber `gorm:"embedded;embeddedPrefix:mobile_" json:"mobile_number"`
	OfficeNumber string       `json:"office_number,omitempty"`
	Designation  string       `gorm:"index" json:"designation,omitempty"`
	Address      Address      `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	Comment      string       `json:"comment,omitempty"`
	IsGift       bool         `gorm:"not null;default:false" json:"is_gift"`
	Version      int          `gorm:"not null;default:1" json:"version"`

	FirmID      string             `gorm:"type:uuid;not null;index" json:"firm_id"`
	Firm        *Firm              `gorm:"foreignKey:FirmID" json:"firm,omitempty"`
	FirmHistory []FirmHistoryEntry `gorm:"foreignKey:MemberID" json:"firm_history,omitempty"`

	BusinessCardFrontID *string `gorm:"type:uuid" json:"business_card_front_id,omitempty"`
	BusinessCardBackID  *string `gorm:"type:uuid" json:"business_card_back_id,omitempty"`

	Interactions []Interaction `gorm:"foreignKey:MemberID" json:"interactions,omitempty"`

	Sectors datatypes.JSONSlice[string] `json:"sectors"`

	// InvestorMember
	RegionalFocus      datatypes.JSONSlice[string] `json:"regional_focus,omitempty"`
	FundSize           FundSize                    `gorm:"embedded;embeddedPrefix:fund_size_" json:"fund_size"`
	IsExistingInvestor bool                        `gorm:"not null;default:false" json:"is_existing_investor"`
	HoldingSize        decimal.NullDecimal         `gorm:"type:numeric(20,2)" json:"holding_size"`
	LastHoldingDate    *time.Time                  `json:"last_holding_date,omitempty"`
}

// BusinessCardIDs returns the non-empty business card file ids.
func (m *Member) BusinessCardIDs() []string {
	var ids []string
	if m.BusinessCardFrontID != nil {
		ids = append(ids, *m.BusinessCardFrontID)
	}
	if m.BusinessCardBackID != nil {
		ids = append(ids, *m.BusinessCardBackID)
	}
	return ids
}

// FirmHistoryEntry records one firm a member belonged to. Rows are only ever
// appended; Seq orders them chronologically.
type FirmHistoryEntry struct {
	Base
	MemberID      string    `gorm:"type:uuid;not null;index" json:"-"`
	FirmID        string    `gorm:"type:uuid;not null" json:"firm_id"`
	Seq           int       `gorm:"not null" json:"seq"`
	DateOfJoining time.Time `gorm:"not null" json:"date_of_joining"`
}

// TableName overrides the default pluralisation.
func (FirmHistoryEntry) TableName() string { return "member_firm_history" }
