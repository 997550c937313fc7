package ability

// Action is a privileged operation an actor may be granted.
type Action string

const (
	ActionInviteUser            Action = "inviteUser"
	ActionArchiveUser           Action = "archiveUser"
	ActionChangeRole            Action = "changeRole"
	ActionAccessGroupPermission Action = "accessGroupPermission"
	ActionUpdateOrganizations   Action = "updateOrganizations"
	ActionViewAllUsers          Action = "viewAllUsers"
	ActionAccessAuditLogs       Action = "accessAuditLogs"
)

// Subject is a tagged classification of the thing an action targets,
// supplied by the caller at check time.
type Subject string

const (
	SubjectUser             Subject = "user"
	SubjectOrganizationUser Subject = "organization_user"
	SubjectAll              Subject = "all"
)

type grant struct {
	action  Action
	subject Subject
}

// AppAbility is a per-request capability set. It is built fresh for one
// actor, consumed immediately, and never shared or persisted. Nothing is
// granted by default.
type AppAbility struct {
	grants map[grant]struct{}
}

// Can reports whether the (action, subject) pair was granted. A grant on
// SubjectAll covers every subject classification.
func (a *AppAbility) Can(action Action, subject Subject) bool {
	if a == nil || len(a.grants) == 0 {
		return false
	}
	if _, ok := a.grants[grant{action, subject}]; ok {
		return true
	}
	_, ok := a.grants[grant{action, SubjectAll}]
	return ok
}

// Builder accumulates grants for a single ability.
type Builder struct {
	grants map[grant]struct{}
}

func NewBuilder() *Builder {
	return &Builder{grants: make(map[grant]struct{})}
}

func (b *Builder) Can(action Action, subject Subject) *Builder {
	b.grants[grant{action, subject}] = struct{}{}
	return b
}

func (b *Builder) Build() *AppAbility {
	return &AppAbility{grants: b.grants}
}
