package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "investtrack/internal/errors"
	"investtrack/internal/models"
	"investtrack/internal/pagination"
)

// firmService handles firm-related business logic.
type firmService struct {
	db    *gorm.DB
	files *Attachments
}

// NewFirmService creates a new FirmServicer.
func NewFirmService(db *gorm.DB, files *Attachments) FirmServicer {
	return &firmService{db: db, files: files}
}

// CreateFirm creates a Broker or Investor and adds it to the creating
// user's firms.
func (s *firmService) CreateFirm(ctx context.Context, userID string, in FirmInput) (*models.Firm, error) {
	firmType, err := ResolveFirmType(in.Type)
	if err != nil {
		return nil, err
	}

	firm := &models.Firm{
		FirmType:      firmType,
		Name:          in.Name,
		LocationType:  in.LocationType,
		Website:       in.Website,
		Remark:        in.Remark,
		Comment:       in.Comment,
		Address:       in.Address,
		IsActive:      true,
		Version:       1,
		Sectors:       tags(in.Sectors),
		RegionalFocus: tags(in.RegionalFocus),
		FundSize:      in.FundSize,
	}
	if userID != "" {
		firm.CreatedByID = &userID
	}
	if err := normalizeFirm(firm); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(firm).Error; err != nil {
			return apperrors.FromStorage(err)
		}
		if userID == "" {
			return nil
		}
		link := map[string]any{"user_id": userID, "firm_id": firm.ID}
		if err := tx.Table("user_firms").Create(link).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return firm, nil
}

// ListFirms retrieves a filtered, paginated list of firms ordered by variant
// then name.
func (s *firmService) ListFirms(ctx context.Context, filter FirmFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Firm], error) {
	page.Defaults()

	query := s.db.WithContext(ctx).Model(&models.Firm{})
	if filter.FirmType != "" {
		firmType, err := ResolveFirmType(filter.FirmType)
		if err != nil {
			return nil, err
		}
		query = query.Where("firm_type = ?", firmType)
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, likeContains(strings.ToLower(name)))
	}
	if filter.LocationType != "" {
		query = query.Where("location_type = ?", filter.LocationType)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if localities := tags(filter.Localities); len(localities) > 0 {
		query = query.Where("address_locality IN ?", []string(localities))
	}
	query = tagFilter(query, "sectors", filter.Sectors)
	query = tagFilter(query, "regional_focus", filter.RegionalFocus)
	query = query.Session(&gorm.Session{})

	var totalItems int64
	if err := query.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var firms []models.Firm
	if err := query.Order("firm_type ASC, name ASC").Scopes(pagination.Paginate(page)).Find(&firms).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(firms, page.Page, page.PerPage, totalItems)
	return &result, nil
}

// GetFirm retrieves a firm with its members, coverages and factsheets.
func (s *firmService) GetFirm(ctx context.Context, id string) (*models.Firm, error) {
	var firm models.Firm
	err := s.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		Preload("Coverages", func(db *gorm.DB) *gorm.DB { return db.Order("fiscal_year DESC, quarter DESC") }).
		Preload("FundFactsheets", func(db *gorm.DB) *gorm.DB { return db.Order("document_date ASC") }).
		Preload("FundFactsheets.File").
		First(&firm, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrFirmNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &firm, nil
}

// UpdateFirm merges a partial update into the firm. The variant never
// changes through an update.
func (s *firmService) UpdateFirm(ctx context.Context, id string, in FirmUpdate) (*models.Firm, error) {
	var firm *models.Firm
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		firm, err = loadFirm(tx, id, true)
		if err != nil {
			return err
		}
		if in.Type != "" {
			t, err := ResolveFirmType(in.Type)
			if err != nil {
				return err
			}
			if t != firm.FirmType {
				return apperrors.WithMessage(apperrors.ErrInvalidOperation, "Firm type cannot be changed")
			}
		}
		if in.Version != nil && *in.Version != firm.Version {
			return apperrors.ErrVersionConflict
		}

		in.apply(firm)
		if err := normalizeFirm(firm); err != nil {
			return err
		}
		return saveVersioned(tx, firm, &firm.Version, "created_at", "created_by_id")
	})
	if err != nil {
		return nil, err
	}
	return firm, nil
}

// saveVersioned writes every column of a versioned row guarded by its
// current version, bumping it on success.
func saveVersioned(tx *gorm.DB, row any, version *int, omit ...string) error {
	current := *version
	*version = current + 1
	omit = append(omit, clause.Associations)
	res := tx.Model(row).
		Where("version = ?", current).
		Select("*").
		Omit(omit...).
		Updates(row)
	if res.Error != nil {
		*version = current
		return apperrors.FromStorage(res.Error)
	}
	if res.RowsAffected == 0 {
		*version = current
		return apperrors.ErrVersionConflict
	}
	return nil
}

// DeactivateFirm soft-deletes a firm. Members, coverages and factsheets stay
// attached.
func (s *firmService) DeactivateFirm(ctx context.Context, id string) (*models.Firm, error) {
	firm, err := loadFirm(s.db.WithContext(ctx), id, false)
	if err != nil {
		return nil, err
	}
	if !firm.IsActive {
		return firm, nil
	}
	res := s.db.WithContext(ctx).Model(&models.Firm{}).
		Where("id = ?", firm.ID).
		Updates(map[string]any{"is_active": false, "version": gorm.Expr("version + 1")})
	if res.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	firm.IsActive = false
	firm.Version++
	return firm, nil
}

// UpdateRemark replaces the firm's remark.
func (s *firmService) UpdateRemark(ctx context.Context, id, remark string) (*models.Firm, error) {
	firm, err := loadFirm(s.db.WithContext(ctx), id, false)
	if err != nil {
		return nil, err
	}
	remark = strings.TrimSpace(remark)
	res := s.db.WithContext(ctx).Model(&models.Firm{}).
		Where("id = ?", firm.ID).
		Updates(map[string]any{"remark": remark, "version": gorm.Expr("version + 1")})
	if res.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	firm.Remark = remark
	firm.Version++
	return firm, nil
}

// ListFactsheets returns an investor's factsheets in document date order.
func (s *firmService) ListFactsheets(ctx context.Context, firmID string) ([]models.FundFactsheet, error) {
	firm, err := loadFirm(s.db.WithContext(ctx), firmID, false)
	if err != nil {
		return nil, err
	}
	if !firm.IsInvestor() {
		return nil, apperrors.ErrFirmNotInvestor
	}
	sheets := []models.FundFactsheet{}
	err = s.db.WithContext(ctx).
		Preload("File").
		Where("firm_id = ?", firm.ID).
		Order("document_date ASC, created_at ASC").
		Find(&sheets).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return sheets, nil
}

// UploadFactsheet attaches a dated factsheet document to an investor firm.
func (s *firmService) UploadFactsheet(ctx context.Context, firmID string, documentDate *time.Time, upload *Upload) (*models.FundFactsheet, error) {
	firm, err := loadFirm(s.db.WithContext(ctx), firmID, false)
	if err != nil {
		return nil, err
	}
	if !firm.IsInvestor() {
		return nil, apperrors.ErrFirmNotInvestor
	}
	staged, err := s.files.stage(upload, firm.ID, nil, "factsheet")
	if err != nil {
		return nil, err
	}

	date := time.Now()
	if documentDate != nil {
		date = *documentDate
	}
	sheet := &models.FundFactsheet{
		FirmID:       firm.ID,
		FileID:       staged.file.ID,
		DocumentDate: date,
	}

	err = s.files.run(ctx, []*stagedFile{staged}, func(tx *gorm.DB) ([]string, error) {
		if err := tx.Create(staged.file).Error; err != nil {
			return nil, apperrors.FromStorage(err)
		}
		if err := tx.Create(sheet).Error; err != nil {
			return nil, apperrors.FromStorage(err)
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	sheet.File = staged.file
	return sheet, nil
}

// DeleteFactsheet removes a factsheet and its file. sheetID may name either
// the factsheet or its file.
func (s *firmService) DeleteFactsheet(ctx context.Context, firmID, sheetID string) (*models.FundFactsheet, error) {
	firm, err := loadFirm(s.db.WithContext(ctx), firmID, false)
	if err != nil {
		return nil, err
	}
	if !firm.IsInvestor() {
		return nil, apperrors.ErrFirmNotInvestor
	}

	var sheet models.FundFactsheet
	err = s.files.run(ctx, nil, func(tx *gorm.DB) ([]string, error) {
		err := tx.Preload("File").
			Where("firm_id = ? AND (id = ? OR file_id = ?)", firm.ID, sheetID, sheetID).
			First(&sheet).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.WithMessage(apperrors.ErrFactsheetMissing,
				fmt.Sprintf("Fund factsheet %s not found for %s", sheetID, firm.Name))
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(&models.FundFactsheet{}, "id = ?", sheet.ID).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return deleteFiles(tx, sheet.FileID)
	})
	if err != nil {
		return nil, err
	}
	return &sheet, nil
}
