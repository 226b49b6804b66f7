package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "investtrack/internal/errors"
	"investtrack/internal/models"
	"investtrack/internal/pagination"
)

// coverageService handles broker coverage business logic.
type coverageService struct {
	db    *gorm.DB
	files *Attachments
}

// NewCoverageService creates a new CoverageServicer.
func NewCoverageService(db *gorm.DB, files *Attachments) CoverageServicer {
	return &coverageService{db: db, files: files}
}

func loadBroker(tx *gorm.DB, id string) (*models.Firm, error) {
	firm, err := loadFirm(tx, id, false)
	if err != nil {
		if errors.Is(err, apperrors.ErrFirmNotFound) {
			return nil, apperrors.WithMessage(apperrors.ErrFirmNotFound, "Broker not found")
		}
		return nil, err
	}
	if !firm.IsBroker() {
		return nil, apperrors.ErrFirmNotBroker
	}
	return firm, nil
}

func loadCoverage(tx *gorm.DB, brokerID, id string) (*models.Coverage, error) {
	var coverage models.Coverage
	if err := tx.Preload("File").First(&coverage, "id = ? AND firm_id = ?", id, brokerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCoverageNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &coverage, nil
}

// duplicatePeriod reports a coverage that collides on (firm, year, quarter).
func duplicatePeriod(err error, c *models.Coverage) error {
	if apperrors.IsUniqueViolation(err) {
		return apperrors.WithField(apperrors.ErrDuplicateKey, "fiscal_year,quarter",
			fmt.Sprintf("Coverage for FY%d Q%d already exists", c.FiscalYear, c.Quarter))
	}
	return apperrors.FromStorage(err)
}

// CreateCoverage records a broker's target price for a fiscal quarter, with
// an optional attached document.
func (s *coverageService) CreateCoverage(ctx context.Context, brokerID string, in CoverageInput, upload *Upload) (*models.Coverage, error) {
	broker, err := loadBroker(s.db.WithContext(ctx), brokerID)
	if err != nil {
		return nil, err
	}
	if in.TargetPrice == nil {
		return nil, apperrors.Validation(apperrors.FieldError{Field: "tp", Message: "tp is required"})
	}

	coverage := &models.Coverage{
		FirmID:         broker.ID,
		FiscalYear:     in.FiscalYear,
		Quarter:        in.Quarter,
		TargetPrice:    *in.TargetPrice,
		Recommendation: in.Recommendation,
		CoverageDate:   time.Now(),
	}
	if in.CoverageDate != nil {
		coverage.CoverageDate = *in.CoverageDate
	}

	var staged *stagedFile
	if upload != nil {
		if staged, err = s.files.stage(upload, broker.ID, nil, "coverage"); err != nil {
			return nil, err
		}
		coverage.FileID = &staged.file.ID
	}

	err = s.files.run(ctx, []*stagedFile{staged}, func(tx *gorm.DB) ([]string, error) {
		if staged != nil {
			if err := tx.Create(staged.file).Error; err != nil {
				return nil, apperrors.FromStorage(err)
			}
		}
		if err := tx.Create(coverage).Error; err != nil {
			return nil, duplicatePeriod(err, coverage)
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	if staged != nil {
		coverage.File = staged.file
	}
	return coverage, nil
}

// ListCoverages lists a broker's coverages, newest period first.
func (s *coverageService) ListCoverages(ctx context.Context, brokerID string, page pagination.PageRequest) (*pagination.PageResponse[models.Coverage], error) {
	page.Defaults()

	broker, err := loadBroker(s.db.WithContext(ctx), brokerID)
	if err != nil {
		return nil, err
	}
	query := s.db.WithContext(ctx).Model(&models.Coverage{}).Where("firm_id = ?", broker.ID).Session(&gorm.Session{})

	var totalItems int64
	if err := query.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var coverages []models.Coverage
	err = query.Preload("File").
		Order("fiscal_year DESC, quarter DESC").
		Scopes(pagination.Paginate(page)).
		Find(&coverages).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(coverages, page.Page, page.PerPage, totalItems)
	return &result, nil
}

// GetCoverage retrieves one of a broker's coverages.
func (s *coverageService) GetCoverage(ctx context.Context, brokerID, id string) (*models.Coverage, error) {
	if _, err := loadBroker(s.db.WithContext(ctx), brokerID); err != nil {
		return nil, err
	}
	return loadCoverage(s.db.WithContext(ctx), brokerID, id)
}

// UpdateCoverage merges a partial update. A new document replaces the old
// one, which is deleted after the coverage points at the new file.
func (s *coverageService) UpdateCoverage(ctx context.Context, brokerID, id string, in CoverageUpdate, upload *Upload) (*models.Coverage, error) {
	broker, err := loadBroker(s.db.WithContext(ctx), brokerID)
	if err != nil {
		return nil, err
	}
	var staged *stagedFile
	if upload != nil {
		if staged, err = s.files.stage(upload, broker.ID, nil, "coverage"); err != nil {
			return nil, err
		}
	}

	var coverage *models.Coverage
	err = s.files.run(ctx, []*stagedFile{staged}, func(tx *gorm.DB) ([]string, error) {
		var err error
		coverage, err = loadCoverage(tx, broker.ID, id)
		if err != nil {
			return nil, err
		}
		if in.FiscalYear != nil {
			coverage.FiscalYear = *in.FiscalYear
		}
		if in.Quarter != nil {
			coverage.Quarter = *in.Quarter
		}
		if in.TargetPrice != nil {
			coverage.TargetPrice = *in.TargetPrice
		}
		if in.Recommendation != nil {
			coverage.Recommendation = *in.Recommendation
		}
		if in.CoverageDate != nil {
			coverage.CoverageDate = *in.CoverageDate
		}

		var replaced string
		if staged != nil {
			if err := tx.Create(staged.file).Error; err != nil {
				return nil, apperrors.FromStorage(err)
			}
			if coverage.FileID != nil {
				replaced = *coverage.FileID
			}
			coverage.FileID = &staged.file.ID
			coverage.File = staged.file
		}

		err = tx.Model(coverage).
			Select("fiscal_year", "quarter", "target_price", "recommendation", "coverage_date", "file_id", "updated_at").
			Updates(coverage).Error
		if err != nil {
			return nil, duplicatePeriod(err, coverage)
		}
		return deleteFiles(tx, replaced)
	})
	if err != nil {
		return nil, err
	}
	return coverage, nil
}

// DeleteCoverage removes a coverage and its attached file.
func (s *coverageService) DeleteCoverage(ctx context.Context, brokerID, id string) (*models.Coverage, error) {
	broker, err := loadBroker(s.db.WithContext(ctx), brokerID)
	if err != nil {
		return nil, err
	}

	var coverage *models.Coverage
	err = s.files.run(ctx, nil, func(tx *gorm.DB) ([]string, error) {
		var err error
		coverage, err = loadCoverage(tx, broker.ID, id)
		if err != nil {
			return nil, err
		}
		if err := tx.Delete(&models.Coverage{}, "id = ?", coverage.ID).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if coverage.FileID == nil {
			return nil, nil
		}
		return deleteFiles(tx, *coverage.FileID)
	})
	if err != nil {
		return nil, err
	}
	return coverage, nil
}
