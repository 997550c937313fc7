package license

import "time"

type LicenseStatus string

var (
	StatusActive     LicenseStatus = "active"
	StatusSuperseded LicenseStatus = "superseded"
)

// License is a persisted upload. Only the most recent active row feeds the
// term store; older rows are kept for audit.
type License struct {
	ID         string        `gorm:"column:id;primaryKey"`
	CreatedAt  time.Time     `gorm:"column:created_at"`
	UpdatedAt  time.Time     `gorm:"column:updated_at"`
	LicenseKey string        `gorm:"column:license_key"`
	Status     LicenseStatus `gorm:"column:status"`
	UploadedBy string        `gorm:"column:uploaded_by"`
}

func (License) TableName() string {
	return "licenses"
}
