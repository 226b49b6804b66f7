package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recommendation is a broker's call on the covered subject.
type Recommendation string

const (
	RecommendationBuy        Recommendation = "Buy"
	RecommendationAccumulate Recommendation = "Accumulate"
	RecommendationHold       Recommendation = "Hold"
	RecommendationReduce     Recommendation = "Reduce"
	RecommendationSell       Recommendation = "Sell"
)

// Coverage is a broker's target price for one fiscal quarter. There is at most
// one per (firm, fiscal year, quarter).
type Coverage struct {
	Base
	FirmID         string          `gorm:"type:uuid;not null;uniqueIndex:idx_coverages_period,priority:1" json:"firm_id"`
	Firm           *Firm           `gorm:"foreignKey:FirmID" json:"firm,omitempty"`
	FiscalYear     int             `gorm:"not null;uniqueIndex:idx_coverages_period,priority:2" json:"fiscal_year"`
	Quarter        int             `gorm:"not null;uniqueIndex:idx_coverages_period,priority:3" json:"quarter"`
	TargetPrice    decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"tp"`
	Recommendation Recommendation  `gorm:"type:varchar(16)" json:"recommendation,omitempty"`
	CoverageDate   time.Time       `gorm:"not null" json:"coverage_date"`
	FileID         *string         `gorm:"type:uuid" json:"coverage_file_id,omitempty"`
	File           *File           `gorm:"foreignKey:FileID" json:"coverage_file,omitempty"`
}
