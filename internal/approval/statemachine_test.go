package approval

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		action  Action
		want    Status
		wantErr bool
	}{
		{name: "pending approve", from: StatusPending, action: ActionApprove, want: StatusApproved},
		{name: "pending reject", from: StatusPending, action: ActionReject, want: StatusRejected},
		{name: "pending escalate", from: StatusPending, action: ActionEscalate, want: StatusEscalated},
		{name: "escalated approve", from: StatusEscalated, action: ActionApprove, want: StatusApproved},
		{name: "escalated reject", from: StatusEscalated, action: ActionReject, want: StatusRejected},
		{name: "escalated escalate is illegal", from: StatusEscalated, action: ActionEscalate, wantErr: true},
		{name: "approved is terminal", from: StatusApproved, action: ActionApprove, wantErr: true},
		{name: "rejected is terminal", from: StatusRejected, action: ActionReject, wantErr: true},
		{name: "rejected cannot escalate", from: StatusRejected, action: ActionEscalate, wantErr: true},
		{name: "resubmit never transitions a record", from: StatusRejected, action: ActionResubmit, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextStatus(tt.from, tt.action)
			if tt.wantErr {
				var ise *InvalidStatusError
				if !errors.As(err, &ise) {
					t.Fatalf("expected InvalidStatusError, got %v", err)
				}
				if ise.Current != tt.from || ise.Action != tt.action {
					t.Errorf("error carries (%s, %s), want (%s, %s)", ise.Current, ise.Action, tt.from, tt.action)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("NextStatus(%s, %s) = %s, want %s", tt.from, tt.action, got, tt.want)
			}
		})
	}
}

func TestAuthorizeAction(t *testing.T) {
	tests := []struct {
		name    string
		action  Action
		current Status
		level   Level
		actor   Role
		want    bool
	}{
		{name: "manager resolves manager-level", action: ActionApprove, current: StatusPending, level: LevelManager, actor: RoleManager, want: true},
		{name: "admin resolves manager-level", action: ActionReject, current: StatusPending, level: LevelManager, actor: RoleAdmin, want: true},
		{name: "requester cannot approve", action: ActionApprove, current: StatusPending, level: LevelManager, actor: RoleRequester, want: false},
		{name: "manager cannot resolve admin-level", action: ActionApprove, current: StatusPending, level: LevelAdmin, actor: RoleManager, want: false},
		{name: "admin resolves admin-level", action: ActionApprove, current: StatusPending, level: LevelAdmin, actor: RoleAdmin, want: true},
		{name: "manager may escalate", action: ActionEscalate, current: StatusPending, level: LevelManager, actor: RoleManager, want: true},
		{name: "requester cannot escalate", action: ActionEscalate, current: StatusPending, level: LevelManager, actor: RoleRequester, want: false},
		{name: "escalated needs admin", action: ActionApprove, current: StatusEscalated, level: LevelManager, actor: RoleManager, want: false},
		{name: "admin resolves escalated", action: ActionReject, current: StatusEscalated, level: LevelManager, actor: RoleAdmin, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AuthorizeAction(tt.action, tt.current, tt.level, tt.actor); got != tt.want {
				t.Errorf("AuthorizeAction(%s, %s, %s, %s) = %v, want %v",
					tt.action, tt.current, tt.level, tt.actor, got, tt.want)
			}
		})
	}
}

func TestTransition(t *testing.T) {
	approvalID := uuid.New()
	userID := uuid.New()

	t.Run("status checked before authority", func(t *testing.T) {
		// A requester acting on a terminal record gets InvalidStatus,
		// not Unauthorized.
		_, err := Transition(approvalID, userID, StatusApproved, ActionApprove, LevelManager, RoleRequester)
		var ise *InvalidStatusError
		if !errors.As(err, &ise) {
			t.Fatalf("expected InvalidStatusError, got %v", err)
		}
	})

	t.Run("unauthorized actor on legal transition", func(t *testing.T) {
		_, err := Transition(approvalID, userID, StatusPending, ActionApprove, LevelAdmin, RoleManager)
		var ue *UnauthorizedError
		if !errors.As(err, &ue) {
			t.Fatalf("expected UnauthorizedError, got %v", err)
		}
		if ue.ApprovalID != approvalID || ue.UserID != userID {
			t.Errorf("error ids mismatch: %+v", ue)
		}
	})

	t.Run("legal authorized transition", func(t *testing.T) {
		next, err := Transition(approvalID, userID, StatusEscalated, ActionApprove, LevelManager, RoleAdmin)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if next != StatusApproved {
			t.Errorf("next = %s, want %s", next, StatusApproved)
		}
	})
}

func TestParseRole(t *testing.T) {
	for raw, want := range map[string]Role{"admin": RoleAdmin, "manager": RoleManager, "sales": RoleRequester} {
		got, err := ParseRole(raw)
		if err != nil || got != want {
			t.Errorf("ParseRole(%q) = (%s, %v), want %s", raw, got, err, want)
		}
	}
	if _, err := ParseRole("superuser"); err == nil {
		t.Error("expected error for unknown role")
	}
}
