package models

import "gorm.io/datatypes"

// AuditLog records admin mutations on firms, members, coverages and the
// activity attached to them.
type AuditLog struct {
	Base
	UserID       string            `gorm:"type:uuid;not null;index" json:"user_id"`
	Action       string            `gorm:"not null" json:"action"`
	ResourceType string            `gorm:"not null;index:idx_audit_logs_resource" json:"resource_type"`
	ResourceID   string            `gorm:"type:uuid;index:idx_audit_logs_resource" json:"resource_id"`
	RequestID    string            `json:"request_id,omitempty"`
	IPAddress    string            `json:"ip_address"`
	Changes      datatypes.JSONMap `json:"changes,omitempty"`
}
