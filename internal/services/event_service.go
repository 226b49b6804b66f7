package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "investtrack/internal/errors"
	"investtrack/internal/models"
	"investtrack/internal/pagination"
	"investtrack/internal/uuid"
)

// eventService handles event business logic.
type eventService struct {
	db *gorm.DB
}

// NewEventService creates a new EventServicer.
func NewEventService(db *gorm.DB) EventServicer {
	return &eventService{db: db}
}

// validateEvent checks the cross-field rules: a physical event needs a
// location and an event cannot end before it starts.
func validateEvent(e *models.Event) error {
	e.Name = strings.TrimSpace(e.Name)
	e.Type = strings.TrimSpace(e.Type)
	e.Location = strings.TrimSpace(e.Location)

	var fields []apperrors.FieldError
	if e.Name == "" {
		fields = append(fields, apperrors.FieldError{Field: "name", Message: "name is required"})
	}
	if e.Type == "" {
		fields = append(fields, apperrors.FieldError{Field: "type", Message: "type is required"})
	}
	switch e.Mode {
	case models.EventModePhysical:
		if e.Location == "" {
			fields = append(fields, apperrors.FieldError{Field: "location", Message: "location is required for physical events"})
		}
	case models.EventModeVirtual:
	default:
		fields = append(fields, apperrors.FieldError{Field: "mode", Message: "mode must be Virtual or Physical"})
	}
	switch e.NextStep {
	case "":
		e.NextStep = models.NextStepTBD
	case models.NextStepConfirmed, models.NextStepCancelled, models.NextStepDeclined, models.NextStepTBD:
	default:
		fields = append(fields, apperrors.FieldError{Field: "next_step", Message: "next_step must be Confirmed, Cancelled, Declined or TBD"})
	}
	if e.StartDate.IsZero() {
		fields = append(fields, apperrors.FieldError{Field: "start_date", Message: "start_date is required"})
	}
	if e.EndDate.IsZero() {
		fields = append(fields, apperrors.FieldError{Field: "end_date", Message: "end_date is required"})
	}
	if !e.StartDate.IsZero() && !e.EndDate.IsZero() && e.EndDate.Before(e.StartDate) {
		fields = append(fields, apperrors.FieldError{Field: "end_date", Message: "end_date must not be before start_date"})
	}

	if len(fields) > 0 {
		return apperrors.Validation(fields...)
	}
	return nil
}

// CreateEvent records an event with a member of the given firm.
func (s *eventService) CreateEvent(ctx context.Context, in EventInput) (*models.Event, error) {
	var fields []apperrors.FieldError
	if !uuid.IsValid(in.FirmID) {
		fields = append(fields, apperrors.FieldError{Field: "firm_id", Message: "firm_id must be a valid id"})
	}
	if !uuid.IsValid(in.MemberID) {
		fields = append(fields, apperrors.FieldError{Field: "member_id", Message: "member_id must be a valid id"})
	}
	if len(fields) > 0 {
		return nil, apperrors.Validation(fields...)
	}

	event := &models.Event{
		FirmID:            in.FirmID,
		MemberID:          in.MemberID,
		Name:              in.Name,
		Type:              in.Type,
		Mode:              in.Mode,
		Location:          in.Location,
		RKLAttendees:      in.RKLAttendees,
		NextStep:          in.NextStep,
		IsInvited:         in.IsInvited,
		ExchangeIntimated: in.ExchangeIntimated,
	}
	if in.StartDate != nil {
		event.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		event.EndDate = *in.EndDate
	}
	if err := validateEvent(event); err != nil {
		return nil, err
	}

	if _, err := loadFirm(s.db.WithContext(ctx), in.FirmID, false); err != nil {
		return nil, err
	}
	member, err := loadMember(s.db.WithContext(ctx), in.MemberID, false)
	if err != nil {
		return nil, err
	}
	if member.FirmID != in.FirmID {
		return nil, apperrors.ErrMemberFirmMismatch
	}

	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, apperrors.FromStorage(err)
	}
	return event, nil
}

// ListEvents retrieves events ordered by start date, latest first.
func (s *eventService) ListEvents(ctx context.Context, filter EventFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Event], error) {
	page.Defaults()

	query := s.db.WithContext(ctx).Model(&models.Event{})
	if filter.FirmID != "" {
		query = query.Where("firm_id = ?", filter.FirmID)
	}
	if filter.MemberID != "" {
		query = query.Where("member_id = ?", filter.MemberID)
	}
	if filter.Mode != "" {
		query = query.Where("mode = ?", filter.Mode)
	}
	if filter.NextStep != "" {
		query = query.Where("next_step = ?", filter.NextStep)
	}
	query = query.Session(&gorm.Session{})

	var totalItems int64
	if err := query.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var events []models.Event
	if err := query.Order("start_date DESC").Scopes(pagination.Paginate(page)).Find(&events).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(events, page.Page, page.PerPage, totalItems)
	return &result, nil
}

// GetEvent retrieves an event by id.
func (s *eventService) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	if err := s.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &event, nil
}

// UpdateEvent merges a partial update and re-checks the cross-field rules.
func (s *eventService) UpdateEvent(ctx context.Context, id string, in EventUpdate) (*models.Event, error) {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		event.Name = *in.Name
	}
	if in.Type != nil {
		event.Type = *in.Type
	}
	if in.Mode != nil {
		event.Mode = *in.Mode
	}
	if in.Location != nil {
		event.Location = *in.Location
	}
	if in.StartDate != nil {
		event.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		event.EndDate = *in.EndDate
	}
	if in.RKLAttendees != nil {
		event.RKLAttendees = *in.RKLAttendees
	}
	if in.NextStep != nil {
		event.NextStep = *in.NextStep
	}
	if in.IsInvited != nil {
		event.IsInvited = *in.IsInvited
	}
	if in.ExchangeIntimated != nil {
		event.ExchangeIntimated = *in.ExchangeIntimated
	}
	if err := validateEvent(event); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(event).Select("*").Omit("created_at", "firm_id", "member_id").Updates(event).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return event, nil
}

// DeleteEvent removes an event.
func (s *eventService) DeleteEvent(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Event{}, "id = ?", event.ID).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return event, nil
}
