package services

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	apperrors "investtrack/internal/errors"
	"investtrack/internal/models"
)

const dashboardTopN = 10

// Dashboard is the aggregate view served on GET /dashboard.
type Dashboard struct {
	Totals      DashboardTotals `json:"totals"`
	FirmStats   FirmStats       `json:"firm_stats"`
	MemberStats MemberStats     `json:"member_stats"`
}

// DashboardTotals counts the main records.
type DashboardTotals struct {
	Firms        int64 `json:"firms"`
	Brokers      int64 `json:"brokers"`
	Investors    int64 `json:"investors"`
	Members      int64 `json:"members"`
	Analysts     int64 `json:"analysts"`
	FundManagers int64 `json:"fund_managers"`
	Interactions int64 `json:"interactions"`
}

// LabelCount is one bucket of a grouped count.
type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// CoverageHighlight is a coverage with its broker's name.
type CoverageHighlight struct {
	FirmName       string          `json:"firm_name"`
	FiscalYear     int             `json:"fiscal_year"`
	Quarter        int             `json:"quarter"`
	TargetPrice    decimal.Decimal `json:"tp"`
	Recommendation string          `json:"recommendation,omitempty"`
}

// FirmStats groups firm-level aggregates.
type FirmStats struct {
	Broker struct {
		ByLocationType []LabelCount         `json:"by_location_type"`
		TopCoverages   []CoverageHighlight `json:"top_coverages"`
	} `json:"broker"`
	Investor struct {
		ByLocationType []LabelCount `json:"by_location_type"`
	} `json:"investor"`
}

// MemberStats groups member-level aggregates.
type MemberStats struct {
	Investor struct {
		ByCountry       []LabelCount `json:"by_country"`
		ByRegionalFocus []LabelCount `json:"by_regional_focus"`
	} `json:"investor"`
}

// dashboardService computes read-only aggregates.
type dashboardService struct {
	db *gorm.DB
}

// NewDashboardService creates a new DashboardServicer.
func NewDashboardService(db *gorm.DB) DashboardServicer {
	return &dashboardService{db: db}
}

// GetDashboard computes every aggregate in one read-only pass.
func (s *dashboardService) GetDashboard(ctx context.Context) (*Dashboard, error) {
	db := s.db.WithContext(ctx)
	var d Dashboard

	counts := []struct {
		dst   *int64
		model any
		where []any
	}{
		{&d.Totals.Firms, &models.Firm{}, nil},
		{&d.Totals.Brokers, &models.Firm{}, []any{"firm_type = ?", models.FirmTypeBroker}},
		{&d.Totals.Investors, &models.Firm{}, []any{"firm_type = ?", models.FirmTypeInvestor}},
		{&d.Totals.Members, &models.Member{}, nil},
		{&d.Totals.Analysts, &models.Member{}, []any{"designation = ?", "Analyst"}},
		{&d.Totals.FundManagers, &models.Member{}, []any{"designation = ?", "Fund Manager"}},
		{&d.Totals.Interactions, &models.Interaction{}, nil},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.where != nil {
			q = q.Where(c.where[0], c.where[1:]...)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	var err error
	if d.FirmStats.Broker.ByLocationType, err = firmsByLocation(db, models.FirmTypeBroker); err != nil {
		return nil, err
	}
	if d.FirmStats.Investor.ByLocationType, err = firmsByLocation(db, models.FirmTypeInvestor); err != nil {
		return nil, err
	}

	top := []CoverageHighlight{}
	err = db.Table("coverages").
		Select("firms.name AS firm_name, coverages.fiscal_year, coverages.quarter, coverages.target_price, coverages.recommendation").
		Joins("JOIN firms ON firms.id = coverages.firm_id").
		Where("coverages.quarter IN ?", []int{1, 2}).
		Order("coverages.target_price DESC").
		Limit(dashboardTopN).
		Scan(&top).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	d.FirmStats.Broker.TopCoverages = top

	countries := []LabelCount{}
	err = db.Model(&models.Member{}).
		Select("address_country AS label, COUNT(*) AS count").
		Where("member_type = ? AND address_country <> ''", models.MemberTypeInvestor).
		Group("address_country").
		Order("count DESC, label ASC").
		Limit(dashboardTopN).
		Scan(&countries).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	d.MemberStats.Investor.ByCountry = countries

	var focus []datatypes.JSONSlice[string]
	if err := db.Model(&models.Member{}).Where("member_type = ? AND regional_focus IS NOT NULL", models.MemberTypeInvestor).Pluck("regional_focus", &focus).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	d.MemberStats.Investor.ByRegionalFocus = topTags(focus, dashboardTopN)

	return &d, nil
}

func firmsByLocation(db *gorm.DB, firmType models.FirmType) ([]LabelCount, error) {
	out := []LabelCount{}
	err := db.Model(&models.Firm{}).
		Select("location_type AS label, COUNT(*) AS count").
		Where("firm_type = ?", firmType).
		Group("location_type").
		Order("location_type ASC").
		Scan(&out).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return out, nil
}

// topTags counts tag occurrences across rows, highest first.
func topTags(rows []datatypes.JSONSlice[string], n int) []LabelCount {
	counts := map[string]int64{}
	for _, row := range rows {
		for _, tag := range row {
			counts[tag]++
		}
	}
	out := make([]LabelCount, 0, len(counts))
	for label, count := range counts {
		out = append(out, LabelCount{Label: label, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
