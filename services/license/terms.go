package license

import (
	"encoding/json"
	"fmt"
)

// Type enumerates the commercial license tiers.
type Type string

const (
	TypeBasic      Type = "basic"
	TypeTrial      Type = "trial"
	TypeEnterprise Type = "enterprise"
	TypeBusiness   Type = "business"
)

// Field identifies a single term for point lookups.
type Field string

const (
	FieldIsExpired         Field = "expired"
	FieldValid             Field = "valid"
	FieldAppCount          Field = "appCount"
	FieldTotalUsers        Field = "usersCount"
	FieldEditors           Field = "editorsCount"
	FieldViewers           Field = "viewersCount"
	FieldSuperadmins       Field = "superadminsCount"
	FieldTableCount        Field = "tableCount"
	FieldOIDC              Field = "oidcEnabled"
	FieldLDAP              Field = "ldapEnabled"
	FieldSAML              Field = "samlEnabled"
	FieldAuditLogs         Field = "auditLogsEnabled"
	FieldCustomStyling     Field = "customStylingEnabled"
	FieldWhiteLabelling    Field = "whiteLabellingEnabled"
	FieldMultiEnvironment  Field = "multiEnvironmentEnabled"
	FieldMultiPlayerEdit   Field = "multiPlayerEditEnabled"
	FieldAuditLogRetention Field = "auditLogRetentionDays"
	FieldType              Field = "type"
	FieldWorkspaces        Field = "workspaces"
	FieldDomains           Field = "domains"
	FieldStatus            Field = "status"
)

const unlimitedSentinel = "UNLIMITED"

// Limit is a countable quota: either a concrete ceiling or unlimited.
// In license JSON it is a number or the string "UNLIMITED"; a limit absent
// from the payload decodes to a zero ceiling.
type Limit struct {
	value     int64
	unlimited bool
	present   bool
}

func NewLimit(v int64) Limit {
	return Limit{value: v, present: true}
}

func Unlimited() Limit {
	return Limit{unlimited: true, present: true}
}

func (l Limit) IsUnlimited() bool { return l.unlimited }
func (l Limit) Value() int64      { return l.value }
func (l Limit) IsSet() bool       { return l.present }

func (l *Limit) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s != unlimitedSentinel {
			return fmt.Errorf("unknown limit sentinel %q", s)
		}
		*l = Unlimited()
		return nil
	}

	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*l = NewLimit(v)
	return nil
}

func (l Limit) MarshalJSON() ([]byte, error) {
	if l.unlimited {
		return json.Marshal(unlimitedSentinel)
	}
	return json.Marshal(l.value)
}

// Terms is the decoded content of a signed license. Once decoded it is
// read-only; a new upload replaces the whole value.
type Terms struct {
	Expiry     string   `json:"expiry"`
	Type       Type     `json:"type"`
	Workspaces []string `json:"workspaces"`
	Domains    []string `json:"domains"`
	Status     string   `json:"status"`
	Valid      *bool    `json:"valid"`

	Apps struct {
		Total Limit `json:"total"`
	} `json:"apps"`

	Users struct {
		Total       Limit `json:"total"`
		Editors     Limit `json:"editor"`
		Viewers     Limit `json:"viewer"`
		Superadmins Limit `json:"superadmin"`
	} `json:"users"`

	Database struct {
		Table Limit `json:"table"`
	} `json:"database"`

	Features struct {
		OIDC             bool `json:"oidc"`
		LDAP             bool `json:"ldap"`
		SAML             bool `json:"saml"`
		CustomStyling    bool `json:"customStyling"`
		WhiteLabelling   bool `json:"whiteLabelling"`
		AuditLogs        bool `json:"auditLogs"`
		MultiEnvironment bool `json:"multiEnvironment"`
		MultiPlayerEdit  bool `json:"multiPlayerEdit"`
	} `json:"features"`

	AuditLog struct {
		MaximumDays int `json:"maximumDays"`
	} `json:"auditLogs"`

	Meta map[string]any `json:"meta"`
}
