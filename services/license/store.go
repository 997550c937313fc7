package license

import "sync/atomic"

// Store holds the currently active decoded terms for the running instance.
//
// Replacement is a single pointer swap, so concurrent readers observe either
// the fully-old or the fully-new term set, never a mix. A nil snapshot means
// no valid license has been activated.
type Store struct {
	terms      atomic.Pointer[Terms]
	generation atomic.Uint64
}

func NewStore() *Store {
	return &Store{}
}

// Terms returns the current snapshot. Callers must not mutate it.
func (s *Store) Terms() *Terms {
	return s.terms.Load()
}

// Replace swaps in a freshly decoded term set wholesale.
func (s *Store) Replace(t *Terms) {
	s.terms.Store(t)
	s.generation.Add(1)
}

// Generation increments on every replace; useful for cache invalidation.
func (s *Store) Generation() uint64 {
	return s.generation.Load()
}

// Get answers a point lookup by field. Fields absent from a legacy-format
// license yield disabled/zero defaults rather than an error.
func (s *Store) Get(field Field) any {
	t := s.terms.Load()
	if t == nil {
		switch field {
		case FieldType:
			return TypeBasic
		case FieldWorkspaces, FieldDomains:
			return []string(nil)
		case FieldStatus:
			return ""
		case FieldAppCount, FieldTotalUsers, FieldEditors, FieldViewers, FieldSuperadmins, FieldTableCount:
			return Limit{}
		case FieldAuditLogRetention:
			return 0
		default:
			return false
		}
	}

	switch field {
	case FieldAppCount:
		return t.Apps.Total
	case FieldTotalUsers:
		return t.Users.Total
	case FieldEditors:
		return t.Users.Editors
	case FieldViewers:
		return t.Users.Viewers
	case FieldSuperadmins:
		return t.Users.Superadmins
	case FieldTableCount:
		return t.Database.Table
	case FieldOIDC:
		return t.Features.OIDC
	case FieldLDAP:
		return t.Features.LDAP
	case FieldSAML:
		return t.Features.SAML
	case FieldAuditLogs:
		return t.Features.AuditLogs
	case FieldCustomStyling:
		return t.Features.CustomStyling
	case FieldWhiteLabelling:
		return t.Features.WhiteLabelling
	case FieldMultiEnvironment:
		return t.Features.MultiEnvironment
	case FieldMultiPlayerEdit:
		return t.Features.MultiPlayerEdit
	case FieldAuditLogRetention:
		return t.AuditLog.MaximumDays
	case FieldType:
		if t.Type == "" {
			return TypeBasic
		}
		return t.Type
	case FieldWorkspaces:
		return t.Workspaces
	case FieldDomains:
		return t.Domains
	case FieldStatus:
		return t.Status
	case FieldIsExpired, FieldValid:
		// Computed against the clock by the evaluator, never stored.
		return false
	default:
		return false
	}
}
