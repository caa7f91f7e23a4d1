// Package approval holds the pure discount-approval workflow rules:
// role and status enumerations, the threshold resolver, the state
// machine, and the typed error taxonomy. It performs no I/O so every
// rule is unit-testable without a database.
package approval

import "fmt"

// Status is the lifecycle state of a single approval cycle.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusEscalated Status = "ESCALATED"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Open reports whether the cycle still locks its quotation for edits.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusEscalated
}

// Level is the approval authority required to resolve a cycle.
type Level string

const (
	LevelManager Level = "MANAGER"
	LevelAdmin   Level = "ADMIN"
)

// Role is the actor role the auth boundary resolved for the caller.
// The core never sees free-form role strings.
type Role string

const (
	RoleRequester Role = "REQUESTER"
	RoleManager   Role = "MANAGER"
	RoleAdmin     Role = "ADMIN"
)

// ParseRole maps the role string carried in the JWT onto the closed
// enum the workflow operates on. Any sales-side role becomes Requester.
func ParseRole(raw string) (Role, error) {
	switch raw {
	case "admin":
		return RoleAdmin, nil
	case "manager":
		return RoleManager, nil
	case "sales":
		return RoleRequester, nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

// Action is a state-machine input applied to an existing cycle.
type Action string

const (
	ActionApprove  Action = "APPROVE"
	ActionReject   Action = "REJECT"
	ActionEscalate Action = "ESCALATE"
	ActionResubmit Action = "RESUBMIT"
)

// EventType labels an entry in the append-only approval timeline.
type EventType string

const (
	EventRequested   EventType = "REQUESTED"
	EventApproved    EventType = "APPROVED"
	EventRejected    EventType = "REJECTED"
	EventEscalated   EventType = "ESCALATED"
	EventResubmitted EventType = "RESUBMITTED"
)
