package license

import "time"

const expiryLayout = "2006-01-02"

// Usage is a snapshot of current consumption, supplied by the caller.
// The evaluator never queries storage itself.
type Usage struct {
	Apps        int64
	TotalUsers  int64
	Editors     int64
	Viewers     int64
	Superadmins int64
	Tables      int64
}

// Evaluator answers yes/no and quantitative questions by combining the
// stored terms with caller-supplied usage. It is a pure function of
// (terms snapshot, usage); no locks, no I/O.
type Evaluator struct {
	store *Store
	now   func() time.Time
}

func NewEvaluator(store *Store) *Evaluator {
	return &Evaluator{store: store, now: time.Now}
}

// HasTerms reports whether any decoded license is active at all.
func (e *Evaluator) HasTerms() bool {
	return e.store.Terms() != nil
}

// IsExpired reports whether the active license has passed its expiry date.
// No license, or an unparseable expiry, counts as expired.
func (e *Evaluator) IsExpired() bool {
	t := e.store.Terms()
	if t == nil || t.Expiry == "" {
		return true
	}

	expiry, err := time.Parse(expiryLayout, t.Expiry)
	if err != nil {
		return true
	}

	// The expiry date itself is still licensed.
	return !e.now().Before(expiry.Add(24 * time.Hour))
}

// IsValid reports structural validity, independent of expiry. A license can
// be unexpired yet revoked, or expired yet structurally valid.
func (e *Evaluator) IsValid() bool {
	t := e.store.Terms()
	if t == nil {
		return false
	}
	if t.Valid != nil {
		return *t.Valid
	}
	return t.Status != "revoked" && t.Status != "invalid"
}

// CheckFeature returns the stored flag verbatim, without expiry or validity
// gating. Callers gating access must also consult IsExpired and IsValid.
func (e *Evaluator) CheckFeature(field Field) bool {
	v, ok := e.store.Get(field).(bool)
	return ok && v
}

// FeatureEnabled is the gated form: the flag must be set and the license
// must be both unexpired and valid.
func (e *Evaluator) FeatureEnabled(field Field) bool {
	return !e.IsExpired() && e.IsValid() && e.CheckFeature(field)
}

func (e *Evaluator) GetLimit(field Field) Limit {
	v, ok := e.store.Get(field).(Limit)
	if !ok {
		return Limit{}
	}
	return v
}

// CheckLimit reports whether one more grant fits under the ceiling. The
// limit is a ceiling on the existing count, so usage == limit already denies.
func (e *Evaluator) CheckLimit(field Field, usage int64) bool {
	limit := e.GetLimit(field)
	if limit.IsUnlimited() {
		return true
	}
	return usage < limit.Value()
}

// AllowsGrant reports whether the license is live (unexpired and valid) and
// has headroom for one more of the counted resource. Admission paths such as
// user invites enforce CheckLimit alone, so an expired license keeps its
// ceilings instead of blocking outright; AllowsGrant is for callers that
// additionally require a live license.
func (e *Evaluator) AllowsGrant(field Field, usage int64) bool {
	return !e.IsExpired() && e.IsValid() && e.CheckLimit(field, usage)
}
