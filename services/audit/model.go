package audit

import "time"

// Action types recorded for privileged organization-user operations.
const (
	ActionUserInvite     = "USER_INVITE"
	ActionUserArchive    = "USER_ARCHIVE"
	ActionUserUnarchive  = "USER_UNARCHIVE"
	ActionUserArchiveAll = "USER_ARCHIVE_ALL"
	ActionUserRoleChange = "USER_ROLE_CHANGE"
)

const ResourceTypeUser = "USER"

// AuditLog is the persisted form of an intent record, written by the worker.
type AuditLog struct {
	ID             string    `gorm:"column:id;primaryKey"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	OrganizationID string    `gorm:"column:organization_id"`
	UserID         string    `gorm:"column:user_id"`
	ActionType     string    `gorm:"column:action_type"`
	ResourceID     string    `gorm:"column:resource_id"`
	ResourceType   string    `gorm:"column:resource_type"`
	ResourceName   string    `gorm:"column:resource_name"`
	RecordedAt     time.Time `gorm:"column:recorded_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
