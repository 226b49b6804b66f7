package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "investtrack/internal/errors"
	"investtrack/internal/metrics"
	"investtrack/internal/models"
	"investtrack/internal/pagination"
	"investtrack/internal/uuid"
)

// memberService handles member-related business logic.
type memberService struct {
	db      *gorm.DB
	files   *Attachments
	metrics *metrics.Metrics
}

// NewMemberService creates a new MemberServicer. m may be nil.
func NewMemberService(db *gorm.DB, files *Attachments, m *metrics.Metrics) MemberServicer {
	return &memberService{db: db, files: files, metrics: m}
}

// stageCards validates the business card uploads for member m.
func (s *memberService) stageCards(m *models.Member, cards BusinessCards) (front, back *stagedFile, err error) {
	memberID := m.ID
	if cards.Front != nil {
		if front, err = s.files.stage(cards.Front, m.FirmID, &memberID, "business_card", "front"); err != nil {
			return nil, nil, err
		}
	}
	if cards.Back != nil {
		if back, err = s.files.stage(cards.Back, m.FirmID, &memberID, "business_card", "back"); err != nil {
			return nil, nil, err
		}
	}
	return front, back, nil
}

// CreateMember creates a member under in.FirmID. The variant comes from the
// firm and the first firm history entry is recorded.
func (s *memberService) CreateMember(ctx context.Context, in MemberInput, cards BusinessCards) (*models.Member, error) {
	if !uuid.IsValid(in.FirmID) {
		return nil, apperrors.Validation(apperrors.FieldError{Field: "firm_id", Message: "firm_id must be a valid id"})
	}
	firm, err := loadActiveFirm(s.db.WithContext(ctx), in.FirmID, false)
	if err != nil {
		return nil, err
	}
	if err := checkMemberType(in.Type, firm); err != nil {
		return nil, err
	}

	member := in.toMember(firm)
	member.ID = uuid.New()
	if err := normalizeMember(member); err != nil {
		return nil, err
	}
	member.FirmHistory = []models.FirmHistoryEntry{
		{FirmID: firm.ID, Seq: 1, DateOfJoining: time.Now()},
	}

	front, back, err := s.stageCards(member, cards)
	if err != nil {
		return nil, err
	}
	if front != nil {
		member.BusinessCardFrontID = &front.file.ID
	}
	if back != nil {
		member.BusinessCardBackID = &back.file.ID
	}

	err = s.files.run(ctx, []*stagedFile{front, back}, func(tx *gorm.DB) ([]string, error) {
		// The firm may have been deactivated since it was read.
		if _, err := loadActiveFirm(tx, firm.ID, true); err != nil {
			return nil, err
		}
		if err := tx.Create(member).Error; err != nil {
			return nil, apperrors.FromStorage(err)
		}
		for _, sf := range []*stagedFile{front, back} {
			if sf == nil {
				continue
			}
			if err := tx.Create(sf.file).Error; err != nil {
				return nil, apperrors.FromStorage(err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	member.Firm = firm
	return member, nil
}

// ListMembers retrieves a filtered, paginated list of one member variant.
func (s *memberService) ListMembers(ctx context.Context, filter MemberFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Member], error) {
	page.Defaults()

	memberType, err := ResolveMemberType(filter.MemberType)
	if err != nil {
		return nil, err
	}
	query := s.db.WithContext(ctx).Model(&models.Member{}).Where("member_type = ?", memberType)
	if filter.FirmID != "" {
		query = query.Where("firm_id = ?", filter.FirmID)
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, likeContains(strings.ToLower(name)))
	}
	if d := strings.TrimSpace(filter.Designation); d != "" {
		query = query.Where(`LOWER(designation) LIKE ? ESCAPE '\'`, likeContains(strings.ToLower(d)))
	}
	if filter.IsGift != nil {
		query = query.Where("is_gift = ?", *filter.IsGift)
	}
	if localities := tags(filter.Localities); len(localities) > 0 {
		query = query.Where("address_locality IN ?", []string(localities))
	}
	query = tagFilter(query, "sectors", filter.Sectors)
	query = query.Session(&gorm.Session{})

	var totalItems int64
	if err := query.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var members []models.Member
	err = query.Preload("Firm").
		Order("name ASC").
		Scopes(pagination.Paginate(page)).
		Find(&members).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(members, page.Page, page.PerPage, totalItems)
	return &result, nil
}

// GetMember retrieves a member with its firm, firm history and interactions.
func (s *memberService) GetMember(ctx context.Context, id string) (*models.Member, error) {
	return getMember(s.db.WithContext(ctx), id)
}

func getMember(db *gorm.DB, id string) (*models.Member, error) {
	var member models.Member
	err := db.
		Preload("Firm").
		Preload("FirmHistory", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Preload("Interactions", func(db *gorm.DB) *gorm.DB { return db.Order("date_of_interaction DESC") }).
		First(&member, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrMemberNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &member, nil
}

// UpdateMember merges a partial update. New business cards replace the old
// ones, which are deleted once the member points at the new files.
func (s *memberService) UpdateMember(ctx context.Context, id string, in MemberUpdate, cards BusinessCards) (*models.Member, error) {
	current, err := loadMember(s.db.WithContext(ctx), id, false)
	if err != nil {
		return nil, err
	}
	front, back, err := s.stageCards(current, cards)
	if err != nil {
		return nil, err
	}

	var member *models.Member
	err = s.files.run(ctx, []*stagedFile{front, back}, func(tx *gorm.DB) ([]string, error) {
		var err error
		member, err = loadMember(tx, id, true)
		if err != nil {
			return nil, err
		}
		if in.Type != "" {
			t, err := ResolveMemberType(in.Type)
			if err != nil {
				return nil, err
			}
			if t != member.MemberType {
				return nil, apperrors.WithMessage(apperrors.ErrInvalidOperation,
					"Member type changes only through a transfer")
			}
		}
		if in.Version != nil && *in.Version != member.Version {
			return nil, apperrors.ErrVersionConflict
		}

		in.apply(member)
		if err := normalizeMember(member); err != nil {
			return nil, err
		}

		var replaced []string
		if front != nil {
			if err := tx.Create(front.file).Error; err != nil {
				return nil, apperrors.FromStorage(err)
			}
			if member.BusinessCardFrontID != nil {
				replaced = append(replaced, *member.BusinessCardFrontID)
			}
			member.BusinessCardFrontID = &front.file.ID
		}
		if back != nil {
			if err := tx.Create(back.file).Error; err != nil {
				return nil, apperrors.FromStorage(err)
			}
			if member.BusinessCardBackID != nil {
				replaced = append(replaced, *member.BusinessCardBackID)
			}
			member.BusinessCardBackID = &back.file.ID
		}

		if err := saveVersioned(tx, member, &member.Version, "created_at", "firm_id", "member_type"); err != nil {
			return nil, err
		}
		return deleteFiles(tx, replaced...)
	})
	if err != nil {
		return nil, err
	}
	return s.GetMember(ctx, member.ID)
}

// UpdateComment replaces the member's comment.
func (s *memberService) UpdateComment(ctx context.Context, id, comment string) (*models.Member, error) {
	member, err := loadMember(s.db.WithContext(ctx), id, false)
	if err != nil {
		return nil, err
	}
	comment = strings.TrimSpace(comment)
	res := s.db.WithContext(ctx).Model(&models.Member{}).
		Where("id = ?", member.ID).
		Updates(map[string]any{"comment": comment, "version": gorm.Expr("version + 1")})
	if res.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	member.Comment = comment
	member.Version++
	return member, nil
}

// DeleteMember hard-deletes a member together with its interactions,
// events, firm history and files.
func (s *memberService) DeleteMember(ctx context.Context, id string) (*models.Member, error) {
	var member *models.Member
	err := s.files.run(ctx, nil, func(tx *gorm.DB) ([]string, error) {
		var err error
		member, err = loadMember(tx, id, true)
		if err != nil {
			return nil, err
		}

		var fileIDs []string
		if err := tx.Model(&models.File{}).Where("member_id = ?", member.ID).Pluck("id", &fileIDs).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		fileIDs = append(fileIDs, member.BusinessCardIDs()...)

		for _, dependent := range []any{&models.Interaction{}, &models.Event{}, &models.FirmHistoryEntry{}} {
			if err := tx.Where("member_id = ?", member.ID).Delete(dependent).Error; err != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		if err := tx.Delete(&models.Member{}, "id = ?", member.ID).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return deleteFiles(tx, dedupe(fileIDs)...)
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// TransferMember moves a member to another firm. The member is re-created
// under the target firm's variant with a new id; its history, interactions,
// events and files follow it. Either every step applies or none does.
func (s *memberService) TransferMember(ctx context.Context, id string, in TransferInput) (member *models.Member, err error) {
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "rejected"
		}
		s.metrics.ObserveTransfer(outcome)
	}()

	if !uuid.IsValid(in.FirmID) {
		return nil, apperrors.Validation(apperrors.FieldError{Field: "firm_id", Message: "firm_id must be a valid id"})
	}

	var movedID string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		source, err := loadMember(tx, id, true)
		if err != nil {
			return err
		}
		target, err := loadFirm(tx, in.FirmID, true)
		if err != nil {
			return err
		}
		if target.ID == source.FirmID {
			return apperrors.ErrAlreadyInFirm
		}
		if !target.IsActive {
			return apperrors.WithMessage(apperrors.ErrInvalidOperation, target.Name+" has been deactivated")
		}

		var lastSeq int
		err = tx.Model(&models.FirmHistoryEntry{}).
			Where("member_id = ?", source.ID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&lastSeq).Error
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		moved := transferredCopy(source, target)
		if in.Overrides != nil {
			in.Overrides.apply(moved)
		}
		if err := normalizeMember(moved); err != nil {
			return err
		}
		moved.FirmHistory = []models.FirmHistoryEntry{
			{FirmID: target.ID, Seq: lastSeq + 1, DateOfJoining: time.Now()},
		}

		// The copy takes over the unique email and mobile number, so the old
		// record releases them first. It is deleted only once nothing points
		// at it; deleting earlier would cascade away its firm history.
		released := "transferred:" + source.ID
		err = tx.Model(&models.Member{}).
			Where("id = ?", source.ID).
			UpdateColumns(map[string]any{"email": released, "mobile_number": released}).Error
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Create(moved).Error; err != nil {
			return apperrors.FromStorage(err)
		}

		repoint := []struct {
			model   any
			updates map[string]any
		}{
			{&models.FirmHistoryEntry{}, map[string]any{"member_id": moved.ID}},
			{&models.Interaction{}, map[string]any{"member_id": moved.ID}},
			{&models.Event{}, map[string]any{"member_id": moved.ID}},
			{&models.File{}, map[string]any{"member_id": moved.ID, "firm_id": target.ID}},
		}
		for _, r := range repoint {
			if err := tx.Model(r.model).Where("member_id = ?", source.ID).Updates(r.updates).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		if err := tx.Delete(&models.Member{}, "id = ?", source.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		movedID = moved.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetMember(ctx, movedID)
}

// transferredCopy builds the record that replaces source under target.
func transferredCopy(source *models.Member, target *models.Firm) *models.Member {
	return &models.Member{
		Base:                models.Base{ID: uuid.New()},
		MemberType:          target.MemberType(),
		Name:                source.Name,
		Email:               source.Email,
		Mobile:              source.Mobile,
		OfficeNumber:        source.OfficeNumber,
		Designation:         source.Designation,
		Address:             source.Address,
		Comment:             source.Comment,
		IsGift:              source.IsGift,
		Version:             1,
		FirmID:              target.ID,
		BusinessCardFrontID: source.BusinessCardFrontID,
		BusinessCardBackID:  source.BusinessCardBackID,
		Sectors:             source.Sectors,
		RegionalFocus:       source.RegionalFocus,
		FundSize:            source.FundSize,
		IsExistingInvestor:  source.IsExistingInvestor,
		HoldingSize:         source.HoldingSize,
		LastHoldingDate:     source.LastHoldingDate,
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
