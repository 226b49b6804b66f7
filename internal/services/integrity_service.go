package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	apperrors "investtrack/internal/errors"
	"investtrack/internal/logger"
	"investtrack/internal/metrics"
)

// Integrity violation kinds.
const (
	ViolationMemberFirmMissing     = "member_firm_missing"
	ViolationMemberVariantMismatch = "member_variant_mismatch"
	ViolationHistoryNotCurrent     = "history_not_current"
	ViolationInteractionOrphaned   = "interaction_member_missing"
	ViolationFileOrphaned          = "file_member_missing"
	ViolationCoverageFirmNotBroker = "coverage_firm_not_broker"
)

// IntegrityReport lists the ids breaking each relationship rule.
type IntegrityReport struct {
	CheckedAt  time.Time           `json:"checked_at"`
	Healthy    bool                `json:"healthy"`
	Violations map[string][]string `json:"violations"`
}

type integrityCheck struct {
	kind  string
	query string
}

var integrityChecks = []integrityCheck{
	{ViolationMemberFirmMissing, `SELECT m.id FROM members m LEFT JOIN firms f ON f.id = m.firm_id WHERE f.id IS NULL`},
	{ViolationMemberVariantMismatch, `SELECT m.id FROM members m JOIN firms f ON f.id = m.firm_id WHERE m.member_type <> f.firm_type`},
	{ViolationHistoryNotCurrent, `SELECT m.id FROM members m
		LEFT JOIN member_firm_history h ON h.member_id = m.id
			AND h.seq = (SELECT MAX(seq) FROM member_firm_history WHERE member_id = m.id)
		WHERE h.id IS NULL OR h.firm_id <> m.firm_id`},
	{ViolationInteractionOrphaned, `SELECT i.id FROM interactions i LEFT JOIN members m ON m.id = i.member_id WHERE m.id IS NULL`},
	{ViolationFileOrphaned, `SELECT fl.id FROM files fl LEFT JOIN members m ON m.id = fl.member_id WHERE fl.member_id IS NOT NULL AND m.id IS NULL`},
	{ViolationCoverageFirmNotBroker, `SELECT c.id FROM coverages c JOIN firms f ON f.id = c.firm_id WHERE f.firm_type <> 'broker'`},
}

// integrityService runs read-only relationship checks.
type integrityService struct {
	db      *gorm.DB
	metrics *metrics.Metrics
}

// NewIntegrityService creates a new IntegrityServicer. m may be nil.
func NewIntegrityService(db *gorm.DB, m *metrics.Metrics) IntegrityServicer {
	return &integrityService{db: db, metrics: m}
}

// Check runs every relationship check and publishes the counts as gauges.
func (s *integrityService) Check(ctx context.Context) (*IntegrityReport, error) {
	report := &IntegrityReport{
		CheckedAt:  time.Now().UTC(),
		Healthy:    true,
		Violations: make(map[string][]string, len(integrityChecks)),
	}
	for _, check := range integrityChecks {
		ids := []string{}
		if err := s.db.WithContext(ctx).Raw(check.query).Scan(&ids).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		report.Violations[check.kind] = ids
		if len(ids) > 0 {
			report.Healthy = false
			logger.FromContext(ctx).Warnw("relationship violations found", "kind", check.kind, "count", len(ids))
		}
		if s.metrics != nil {
			s.metrics.Relationships.WithLabelValues(check.kind).Set(float64(len(ids)))
		}
	}
	return report, nil
}
