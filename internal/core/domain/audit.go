package domain

import "time"

// Outcome records whether the audited action succeeded.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

// Actor identifies who performed an audited action.
type Actor struct {
	Type PrincipalType
	ID   string
}

// Target identifies the resource an audited action operated on.
type Target struct {
	Type string
	ID   *string
}

// RequestInfo captures the HTTP context an event originated from.
type RequestInfo struct {
	Method    string
	Path      string
	RequestID string
	ClientIP  string
}

// DiffKind tags the diff variant attached to an audit event.
type DiffKind int

const (
	// DiffAbsent marks events without a before/after snapshot.
	DiffAbsent DiffKind = iota
	// DiffPresent marks events carrying caller-supplied snapshots.
	DiffPresent
)

// Diff is a tagged before/after snapshot of a mutated resource. The audit
// pipeline stores the snapshots verbatim; which fields matter and what gets
// redacted is the mutating handler's call, never inferred here.
type Diff struct {
	Kind   DiffKind
	Before map[string]any
	After  map[string]any
}

// NewDiff builds a present diff from handler-supplied snapshots.
func NewDiff(before, after map[string]any) Diff {
	return Diff{Kind: DiffPresent, Before: before, After: after}
}

// AuditEvent is an immutable record of a security-relevant or
// state-changing action. Events are append-only: Seq is assigned by the
// store and no event is ever updated or deleted by the application.
type AuditEvent struct {
	ID        string
	Seq       int64
	Timestamp time.Time
	Action    string
	Outcome   Outcome
	Actor     Actor
	Target    Target
	Request   RequestInfo
	Metadata  map[string]any
	Diff      Diff
}

// AuditFilter narrows an audit query. Zero values mean "any".
type AuditFilter struct {
	ActorID      string
	EventType    string
	ResourceType string
	RequestID    string
	Limit        int
	Offset       int
}
