package organization

import "time"

type Role string

var (
	RoleAdmin     Role = "admin"
	RoleDeveloper Role = "developer"
	RoleViewer    Role = "viewer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDeveloper, RoleViewer:
		return true
	default:
		return false
	}
}

// GroupAllUsers is the implicit group every organization member belongs to.
const GroupAllUsers = "all_users"

type Status string

var (
	StatusInvited  Status = "invited"
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

type User struct {
	ID              string    `gorm:"column:id;primaryKey"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
	Email           string    `gorm:"column:email;uniqueIndex"`
	FirstName       string    `gorm:"column:first_name"`
	LastName        string    `gorm:"column:last_name"`
	PasswordDigest  string    `gorm:"column:password_digest"`
	InvitationToken string    `gorm:"column:invitation_token"`
	Type            string    `gorm:"column:type"`
}

func (User) TableName() string {
	return "users"
}

type Organization struct {
	ID        string    `gorm:"column:id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
	Name      string    `gorm:"column:name"`
	Slug      string    `gorm:"column:slug;uniqueIndex"`
}

func (Organization) TableName() string {
	return "organizations"
}

// OrganizationUser binds a user to an organization with a role and a
// status lifecycle: invited -> active <-> archived -> invited.
type OrganizationUser struct {
	ID             string    `gorm:"column:id;primaryKey"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
	OrganizationID string    `gorm:"column:organization_id;index"`
	UserID         string    `gorm:"column:user_id;index"`
	Role           Role      `gorm:"column:role"`
	Status         Status    `gorm:"column:status"`
}

func (OrganizationUser) TableName() string {
	return "organization_users"
}
