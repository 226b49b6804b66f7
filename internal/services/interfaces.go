package services

import (
	"context"
	"time"

	"investtrack/internal/models"
	"investtrack/internal/pagination"
)

// Upload is an attachment payload received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UserServicer defines the contract for user and credential business logic.
type UserServicer interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, name *string, avatar *Upload) (*models.User, error)
	UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error)
	ChangePassword(ctx context.Context, id, oldPassword, newPassword, confirmPassword string) error
	ForgotPassword(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, otp string) error
	ResetPassword(ctx context.Context, email, otp, password string) error
}

// FirmServicer defines the contract for firm-related business logic.
type FirmServicer interface {
	CreateFirm(ctx context.Context, userID string, in FirmInput) (*models.Firm, error)
	ListFirms(ctx context.Context, filter FirmFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Firm], error)
	GetFirm(ctx context.Context, id string) (*models.Firm, error)
	UpdateFirm(ctx context.Context, id string, in FirmUpdate) (*models.Firm, error)
	DeactivateFirm(ctx context.Context, id string) (*models.Firm, error)
	UpdateRemark(ctx context.Context, id, remark string) (*models.Firm, error)
	ListFactsheets(ctx context.Context, firmID string) ([]models.FundFactsheet, error)
	UploadFactsheet(ctx context.Context, firmID string, documentDate *time.Time, upload *Upload) (*models.FundFactsheet, error)
	DeleteFactsheet(ctx context.Context, firmID, sheetID string) (*models.FundFactsheet, error)
}

// MemberServicer defines the contract for member-related business logic,
// including the transfer workflow.
type MemberServicer interface {
	CreateMember(ctx context.Context, in MemberInput, cards BusinessCards) (*models.Member, error)
	ListMembers(ctx context.Context, filter MemberFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Member], error)
	GetMember(ctx context.Context, id string) (*models.Member, error)
	UpdateMember(ctx context.Context, id string, in MemberUpdate, cards BusinessCards) (*models.Member, error)
	UpdateComment(ctx context.Context, id, comment string) (*models.Member, error)
	DeleteMember(ctx context.Context, id string) (*models.Member, error)
	TransferMember(ctx context.Context, id string, in TransferInput) (*models.Member, error)
}

// CoverageServicer defines the contract for broker coverage business logic.
type CoverageServicer interface {
	CreateCoverage(ctx context.Context, brokerID string, in CoverageInput, upload *Upload) (*models.Coverage, error)
	ListCoverages(ctx context.Context, brokerID string, page pagination.PageRequest) (*pagination.PageResponse[models.Coverage], error)
	GetCoverage(ctx context.Context, brokerID, id string) (*models.Coverage, error)
	UpdateCoverage(ctx context.Context, brokerID, id string, in CoverageUpdate, upload *Upload) (*models.Coverage, error)
	DeleteCoverage(ctx context.Context, brokerID, id string) (*models.Coverage, error)
}

// InteractionServicer defines the contract for interaction business logic.
type InteractionServicer interface {
	CreateInteraction(ctx context.Context, in InteractionInput) (*models.Interaction, error)
	ListInteractions(ctx context.Context, filter InteractionFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Interaction], error)
	GetInteraction(ctx context.Context, id string) (*models.Interaction, error)
	UpdateInteraction(ctx context.Context, id string, in InteractionUpdate) (*models.Interaction, error)
	DeleteInteraction(ctx context.Context, id string) (*models.Interaction, error)
}

// EventServicer defines the contract for event business logic.
type EventServicer interface {
	CreateEvent(ctx context.Context, in EventInput) (*models.Event, error)
	ListEvents(ctx context.Context, filter EventFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Event], error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	UpdateEvent(ctx context.Context, id string, in EventUpdate) (*models.Event, error)
	DeleteEvent(ctx context.Context, id string) (*models.Event, error)
}

// FileServicer defines the contract for reading stored attachments.
type FileServicer interface {
	GetFile(ctx context.Context, id string) (*models.File, error)
	Download(ctx context.Context, id string) (*models.File, []byte, error)
}

// DashboardServicer computes read-only aggregates.
type DashboardServicer interface {
	GetDashboard(ctx context.Context) (*Dashboard, error)
}

// IntegrityServicer checks that relationship invariants hold.
type IntegrityServicer interface {
	Check(ctx context.Context) (*IntegrityReport, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(ctx context.Context, userID, action, resourceType, resourceID, ipAddress string, changes map[string]any)
}
