package domain

import "time"

// Action is a closed enumeration of the administrative operations subject
// to authorization. Routes map onto actions at startup, never at request
// time, so an unmapped route is caught before traffic arrives.
type Action string

const (
	ActionCourseRead    Action = "course.read"
	ActionCourseCreate  Action = "course.create"
	ActionCourseUpdate  Action = "course.update"
	ActionCourseDelete  Action = "course.delete"
	ActionCadetRead     Action = "cadet.read"
	ActionCadetCreate   Action = "cadet.create"
	ActionCadetUpdate   Action = "cadet.update"
	ActionCadetDelete   Action = "cadet.delete"
	ActionTrainingRead  Action = "training.read"
	ActionTrainingWrite Action = "training.write"
	ActionRoleManage    Action = "role.manage"
	ActionAuditRead     Action = "audit.read"
)

// Actions lists every known action. Used to validate mapping tables at startup.
func Actions() []Action {
	return []Action{
		ActionCourseRead, ActionCourseCreate, ActionCourseUpdate, ActionCourseDelete,
		ActionCadetRead, ActionCadetCreate, ActionCadetUpdate, ActionCadetDelete,
		ActionTrainingRead, ActionTrainingWrite,
		ActionRoleManage, ActionAuditRead,
	}
}

// Mutating reports whether the action changes state. Mutating actions bind
// the audit write into the request's consistency boundary.
func (a Action) Mutating() bool {
	switch a {
	case ActionCourseRead, ActionCadetRead, ActionTrainingRead, ActionAuditRead:
		return false
	}
	return true
}

// Reason explains one step of a decision.
type Reason struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Obligation instructs the caller to post-process a field before returning
// resource data.
type Obligation struct {
	Field string    `json:"field"`
	Mode  FieldMode `json:"mode"`
}

// Decision is the outcome of evaluating a principal against an action.
// Decisions are transient per-request values; their summary is embedded
// into audit events for correlation.
type Decision struct {
	Allow       bool
	Reasons     []Reason
	Obligations []Obligation
	TraceID     string
	EngineID    string
	EvaluatedAt time.Time
}

const (
	ReasonCodeAllow = "ALLOW"
	ReasonCodeDeny  = "DENY"
)

// MaskSentinel replaces masked field values before serialization.
const MaskSentinel = "***"

// ApplyObligations enforces field obligations on a payload in place:
// OMIT (and DENY) removes the field entirely, MASK replaces its value with
// the mask sentinel. Unmentioned fields pass through untouched.
func ApplyObligations(payload map[string]any, obligations []Obligation) {
	if payload == nil {
		return
	}

	for _, ob := range obligations {
		if _, present := payload[ob.Field]; !present {
			continue
		}
		switch ob.Mode {
		case FieldModeOmit, FieldModeDeny:
			delete(payload, ob.Field)
		case FieldModeMask:
			payload[ob.Field] = MaskSentinel
		}
	}
}
