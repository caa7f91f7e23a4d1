package approval

import "github.com/google/uuid"

// transitions is the legal (status, action) -> status table. Resubmit
// is absent on purpose: it never mutates the rejected record, it spawns
// a new Pending cycle (the service enforces its own preconditions).
var transitions = map[Status]map[Action]Status{
	StatusPending: {
		ActionApprove:  StatusApproved,
		ActionReject:   StatusRejected,
		ActionEscalate: StatusEscalated,
	},
	StatusEscalated: {
		ActionApprove: StatusApproved,
		ActionReject:  StatusRejected,
	},
}

// NextStatus returns the status the cycle moves to when action is
// applied from current, or InvalidStatusError when the pair is not in
// the transition table.
func NextStatus(current Status, action Action) (Status, error) {
	if next, ok := transitions[current][action]; ok {
		return next, nil
	}
	return "", &InvalidStatusError{Current: current, Action: action}
}

// AuthorizeAction checks the role gate for applying action to a cycle
// at the given status and level. The authority rules:
//
//   - Pending Approve/Reject: actor must hold at least the cycle's
//     level (Admin may resolve Manager-level cycles).
//   - Pending Escalate: Manager or Admin (external SLA timers come in
//     through the same gate with a manager identity).
//   - Escalated Approve/Reject: Admin only, regardless of level.
func AuthorizeAction(action Action, current Status, level Level, actor Role) bool {
	switch action {
	case ActionApprove, ActionReject:
		if current == StatusEscalated {
			return actor == RoleAdmin
		}
		if level == LevelAdmin {
			return actor == RoleAdmin
		}
		return actor == RoleManager || actor == RoleAdmin
	case ActionEscalate:
		return actor == RoleManager || actor == RoleAdmin
	}
	return false
}

// Transition validates both the state-machine step and the role gate,
// returning the resulting status. Status is checked before authority so
// acting on a terminal record reports InvalidStatus even for an actor
// who could never have acted on it.
func Transition(approvalID, userID uuid.UUID, current Status, action Action, level Level, actor Role) (Status, error) {
	next, err := NextStatus(current, action)
	if err != nil {
		return "", err
	}
	if !AuthorizeAction(action, current, level, actor) {
		return "", &UnauthorizedError{ApprovalID: approvalID, UserID: userID, Action: action}
	}
	return next, nil
}

// EventForAction maps a successful transition onto its timeline label.
func EventForAction(action Action) EventType {
	switch action {
	case ActionApprove:
		return EventApproved
	case ActionReject:
		return EventRejected
	case ActionEscalate:
		return EventEscalated
	case ActionResubmit:
		return EventResubmitted
	}
	return EventRequested
}
