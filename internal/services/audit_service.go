package services

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"investtrack/internal/logger"
	"investtrack/internal/models"
)

type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an admin mutation against the request that made it. A failed
// write is logged and never reaches the caller.
func (s *auditService) Log(ctx context.Context, userID, action, resourceType, resourceID, ipAddress string, changes map[string]any) {
	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		RequestID:    logger.RequestID(ctx),
		IPAddress:    ipAddress,
	}
	if len(changes) > 0 {
		entry.Changes = datatypes.JSONMap(changes)
	}

	// The entry outlives a cancelled request; the mutation it describes has
	// already committed.
	if err := s.db.WithContext(context.WithoutCancel(ctx)).Create(entry).Error; err != nil {
		logger.FromContext(ctx).Errorw("failed to write audit entry",
			"error", err,
			"user_id", userID,
			"action", action,
			"resource", resourceType+"/"+resourceID,
		)
	}
}
