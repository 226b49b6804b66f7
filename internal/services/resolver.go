package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "investtrack/internal/errors"
	"investtrack/internal/models"
)

// ResolveFirmType maps a request type tag to a firm variant.
func ResolveFirmType(tag string) (models.FirmType, error) {
	switch models.FirmType(strings.ToLower(strings.TrimSpace(tag))) {
	case models.FirmTypeBroker:
		return models.FirmTypeBroker, nil
	case models.FirmTypeInvestor:
		return models.FirmTypeInvestor, nil
	}
	return "", apperrors.WithMessage(apperrors.ErrInvalidType, fmt.Sprintf("Invalid firm type %q", tag))
}

// ResolveMemberType maps a request type tag to a member variant.
func ResolveMemberType(tag string) (models.MemberType, error) {
	switch models.MemberType(strings.ToLower(strings.TrimSpace(tag))) {
	case models.MemberTypeBroker:
		return models.MemberTypeBroker, nil
	case models.MemberTypeInvestor:
		return models.MemberTypeInvestor, nil
	}
	return "", apperrors.WithMessage(apperrors.ErrInvalidType, fmt.Sprintf("Invalid member type %q", tag))
}

// normalizeFirm enforces the variant's required fields and clears the
// fields that belong to the other variant.
func normalizeFirm(f *models.Firm) error {
	f.Name = strings.TrimSpace(f.Name)

	var fields []apperrors.FieldError
	if f.Name == "" {
		fields = append(fields, apperrors.FieldError{Field: "name", Message: "name is required"})
	}
	switch f.LocationType {
	case models.LocationDomestic, models.LocationForeign:
	default:
		fields = append(fields, apperrors.FieldError{Field: "location_type", Message: "location_type must be Domestic or Foreign"})
	}

	switch f.FirmType {
	case models.FirmTypeBroker:
		if len(f.Sectors) == 0 {
			fields = append(fields, apperrors.FieldError{Field: "sectors", Message: "sectors must not be empty"})
		}
		f.RegionalFocus = nil
		f.FundSize = models.FundSize{}
	case models.FirmTypeInvestor:
		if len(f.RegionalFocus) == 0 {
			fields = append(fields, apperrors.FieldError{Field: "regional_focus", Message: "regional_focus must not be empty"})
		}
		f.Sectors = nil
	}

	if len(fields) > 0 {
		return apperrors.Validation(fields...)
	}
	return nil
}

// normalizeMember applies the same rules to members. Investor members must
// carry their Indian exposure and, when already invested, their holding.
func normalizeMember(m *models.Member) error {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.ToLower(strings.TrimSpace(m.Email))
	m.Designation = strings.TrimSpace(m.Designation)
	m.Mobile.Number = strings.TrimSpace(m.Mobile.Number)
	m.Mobile.CountryCode = strings.ToUpper(strings.TrimSpace(m.Mobile.CountryCode))

	var fields []apperrors.FieldError
	if m.Name == "" {
		fields = append(fields, apperrors.FieldError{Field: "name", Message: "name is required"})
	}
	if m.Email == "" {
		fields = append(fields, apperrors.FieldError{Field: "email", Message: "email is required"})
	}
	if m.Mobile.Number == "" {
		fields = append(fields, apperrors.FieldError{Field: "mobile_number", Message: "mobile_number is required"})
	}
	if m.Designation == "" {
		fields = append(fields, apperrors.FieldError{Field: "designation", Message: "designation is required"})
	}
	m.Sectors = tags(m.Sectors)
	if len(m.Sectors) == 0 {
		fields = append(fields, apperrors.FieldError{Field: "sectors", Message: "sectors must not be empty"})
	}

	switch m.MemberType {
	case models.MemberTypeBroker:
		m.RegionalFocus = nil
		m.FundSize = models.FundSize{}
		m.IsExistingInvestor = false
		m.HoldingSize = decimal.NullDecimal{}
		m.LastHoldingDate = nil
	case models.MemberTypeInvestor:
		if len(m.RegionalFocus) == 0 {
			fields = append(fields, apperrors.FieldError{Field: "regional_focus", Message: "regional_focus must not be empty"})
		}
		if !m.FundSize.IndianExposure.Valid {
			fields = append(fields, apperrors.FieldError{Field: "fund_size.indian_exposure", Message: "fund_size.indian_exposure is required"})
		}
		if m.IsExistingInvestor {
			if !m.HoldingSize.Valid {
				fields = append(fields, apperrors.FieldError{Field: "holding_size", Message: "holding_size is required for existing investors"})
			}
			if m.LastHoldingDate == nil {
				fields = append(fields, apperrors.FieldError{Field: "last_holding_date", Message: "last_holding_date is required for existing investors"})
			}
		}
	}

	if len(fields) > 0 {
		return apperrors.Validation(fields...)
	}
	return nil
}

// checkMemberType rejects an explicit type tag that disagrees with the firm.
func checkMemberType(tag string, firm *models.Firm) error {
	if strings.TrimSpace(tag) == "" {
		return nil
	}
	mt, err := ResolveMemberType(tag)
	if err != nil {
		return err
	}
	if mt != firm.MemberType() {
		return apperrors.WithMessage(apperrors.ErrInvalidOperation,
			fmt.Sprintf("A %s member cannot belong to %s firm %s", mt, firm.FirmType, firm.Name))
	}
	return nil
}

// loadFirm fetches a firm, optionally locking the row for the rest of tx.
func loadFirm(tx *gorm.DB, id string, lock bool) (*models.Firm, error) {
	if lock {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var firm models.Firm
	if err := tx.First(&firm, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrFirmNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &firm, nil
}

// loadActiveFirm is loadFirm that also refuses deactivated firms as a
// destination for new members.
func loadActiveFirm(tx *gorm.DB, id string, lock bool) (*models.Firm, error) {
	firm, err := loadFirm(tx, id, lock)
	if err != nil {
		return nil, err
	}
	if !firm.IsActive {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidOperation,
			fmt.Sprintf("%s has been deactivated", firm.Name))
	}
	return firm, nil
}

func loadMember(tx *gorm.DB, id string, lock bool) (*models.Member, error) {
	if lock {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var member models.Member
	if err := tx.First(&member, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrMemberNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &member, nil
}

var (
	likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	jsonEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
)

// likeContains returns a pattern for "LIKE ? ESCAPE '\'" that matches s
// anywhere, with s's own wildcards taken literally.
func likeContains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// tagFilter matches rows whose JSON tag column contains any of values.
func tagFilter(db *gorm.DB, column string, values []string) *gorm.DB {
	values = tags(values)
	if len(values) == 0 {
		return db
	}
	conds := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		conds[i] = "CAST(" + column + ` AS TEXT) LIKE ? ESCAPE '\'`
		args[i] = likeContains(`"` + jsonEscaper.Replace(v) + `"`)
	}
	return db.Where("("+strings.Join(conds, " OR ")+")", args...)
}

func trimSpace(s string) string { return strings.TrimSpace(s) }
