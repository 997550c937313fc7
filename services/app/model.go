package app

import "time"

// App is a built application inside a workspace.
type App struct {
	ID             string    `gorm:"column:id;primaryKey"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
	OrganizationID string    `gorm:"column:organization_id;index"`
	Name           string    `gorm:"column:name"`
	Slug           string    `gorm:"column:slug"`
	CreatedBy      string    `gorm:"column:created_by"`
}

func (App) TableName() string {
	return "apps"
}
