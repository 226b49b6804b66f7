package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "investtrack/internal/errors"
	"investtrack/internal/models"
	"investtrack/internal/pagination"
	"investtrack/internal/uuid"
)

// interactionService handles interaction business logic.
type interactionService struct {
	db *gorm.DB
}

// NewInteractionService creates a new InteractionServicer.
func NewInteractionService(db *gorm.DB) InteractionServicer {
	return &interactionService{db: db}
}

// CreateInteraction logs a touchpoint with a member. The firm defaults to
// the member's current firm; an explicit firm must be that firm.
func (s *interactionService) CreateInteraction(ctx context.Context, in InteractionInput) (*models.Interaction, error) {
	content := strings.TrimSpace(in.Content)
	var fields []apperrors.FieldError
	if !uuid.IsValid(in.MemberID) {
		fields = append(fields, apperrors.FieldError{Field: "member_id", Message: "member_id must be a valid id"})
	}
	if in.FirmID != "" && !uuid.IsValid(in.FirmID) {
		fields = append(fields, apperrors.FieldError{Field: "firm_id", Message: "firm_id must be a valid id"})
	}
	if content == "" {
		fields = append(fields, apperrors.FieldError{Field: "content", Message: "content is required"})
	}
	if len(fields) > 0 {
		return nil, apperrors.Validation(fields...)
	}

	member, err := loadMember(s.db.WithContext(ctx), in.MemberID, false)
	if err != nil {
		return nil, err
	}
	if in.FirmID != "" && in.FirmID != member.FirmID {
		if _, err := loadFirm(s.db.WithContext(ctx), in.FirmID, false); err != nil {
			return nil, err
		}
		return nil, apperrors.ErrMemberFirmMismatch
	}

	interaction := &models.Interaction{
		FirmID:            member.FirmID,
		MemberID:          member.ID,
		Content:           content,
		DateOfInteraction: time.Now(),
	}
	if in.DateOfInteraction != nil {
		interaction.DateOfInteraction = *in.DateOfInteraction
	}
	if err := s.db.WithContext(ctx).Create(interaction).Error; err != nil {
		return nil, apperrors.FromStorage(err)
	}
	return interaction, nil
}

// ListInteractions retrieves interactions, most recent first.
func (s *interactionService) ListInteractions(ctx context.Context, filter InteractionFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Interaction], error) {
	page.Defaults()

	query := s.db.WithContext(ctx).Model(&models.Interaction{})
	if filter.FirmID != "" {
		query = query.Where("firm_id = ?", filter.FirmID)
	}
	if filter.MemberID != "" {
		query = query.Where("member_id = ?", filter.MemberID)
	}
	query = query.Session(&gorm.Session{})

	var totalItems int64
	if err := query.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var interactions []models.Interaction
	err := query.Preload("Member").
		Order("date_of_interaction DESC").
		Scopes(pagination.Paginate(page)).
		Find(&interactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(interactions, page.Page, page.PerPage, totalItems)
	return &result, nil
}

// GetInteraction retrieves an interaction with its member.
func (s *interactionService) GetInteraction(ctx context.Context, id string) (*models.Interaction, error) {
	var interaction models.Interaction
	if err := s.db.WithContext(ctx).Preload("Member").First(&interaction, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInteractionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &interaction, nil
}

// UpdateInteraction edits the content or date. Ownership never changes.
func (s *interactionService) UpdateInteraction(ctx context.Context, id string, in InteractionUpdate) (*models.Interaction, error) {
	interaction, err := s.GetInteraction(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if in.Content != nil {
		content := strings.TrimSpace(*in.Content)
		if content == "" {
			return nil, apperrors.Validation(apperrors.FieldError{Field: "content", Message: "content is required"})
		}
		updates["content"] = content
		interaction.Content = content
	}
	if in.DateOfInteraction != nil {
		updates["date_of_interaction"] = *in.DateOfInteraction
		interaction.DateOfInteraction = *in.DateOfInteraction
	}
	if len(updates) == 0 {
		return interaction, nil
	}
	if err := s.db.WithContext(ctx).Model(&models.Interaction{}).Where("id = ?", interaction.ID).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return interaction, nil
}

// DeleteInteraction removes an interaction.
func (s *interactionService) DeleteInteraction(ctx context.Context, id string) (*models.Interaction, error) {
	interaction, err := s.GetInteraction(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Interaction{}, "id = ?", interaction.ID).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return interaction, nil
}
