package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"crm-backend/internal/approval"
	"crm-backend/internal/model"
	"crm-backend/internal/repository"
	"crm-backend/internal/websocket"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// approvalNotifier turns committed approval transitions into in-app
// notification rows and a websocket broadcast. It runs after the
// workflow transaction has committed, so failures here are logged and
// swallowed rather than surfaced to the caller.
type approvalNotifier struct {
	notificationRepo repository.NotificationRepository
	userRepo         repository.UserRepository
	hub              *websocket.Hub
}

func NewApprovalNotifier(notificationRepo repository.NotificationRepository, userRepo repository.UserRepository, hub *websocket.Hub) ApprovalNotifier {
	return &approvalNotifier{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		hub:              hub,
	}
}

func (n *approvalNotifier) ApprovalEvent(a *model.DiscountApproval, event approval.EventType) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	notifType, title := describeEvent(a, event)
	message := fmt.Sprintf("Discount of %s%% on quotation %s (%s level)",
		a.DiscountPercentage.StringFixed(2), a.QuotationID, a.ApprovalLevel)

	for _, recipient := range n.recipients(ctx, a, event) {
		row := &model.Notification{
			RecipientID: recipient,
			Type:        notifType,
			Title:       title,
			Message:     message,
			EntityID:    a.ID.String(),
		}
		if err := n.notificationRepo.Create(ctx, row); err != nil {
			logrus.WithError(err).WithField("approval_id", a.ID).Error("failed to persist notification")
		}
	}

	payload, err := json.Marshal(map[string]string{
		"type":        notifType,
		"title":       title,
		"message":     message,
		"approval_id": a.ID.String(),
		"status":      string(a.Status),
	})
	if err != nil {
		logrus.WithError(err).Error("failed to encode websocket payload")
		return
	}

	// Non-blocking: a full hub channel must not stall the caller.
	select {
	case n.hub.Broadcast <- payload:
	default:
		logrus.Warn("websocket broadcast dropped: hub busy")
	}
}

// recipients picks who hears about the event. Request and escalation
// events fan out to the pool that can act on them; decisions go back
// to the requester.
func (n *approvalNotifier) recipients(ctx context.Context, a *model.DiscountApproval, event approval.EventType) []*uuid.UUID {
	switch event {
	case approval.EventRequested, approval.EventResubmitted:
		roles := []string{model.RoleAdmin}
		if a.ApprovalLevel == approval.LevelManager {
			roles = append(roles, model.RoleManager)
		}
		return n.poolIDs(ctx, roles)
	case approval.EventEscalated:
		return n.poolIDs(ctx, []string{model.RoleAdmin})
	default:
		id := a.RequestedBy
		return []*uuid.UUID{&id}
	}
}

func (n *approvalNotifier) poolIDs(ctx context.Context, roles []string) []*uuid.UUID {
	users, err := n.userRepo.ListByRoles(ctx, roles...)
	if err != nil {
		logrus.WithError(err).Error("failed to load approver pool, falling back to broadcast")
		return []*uuid.UUID{nil}
	}
	ids := make([]*uuid.UUID, 0, len(users))
	for i := range users {
		id := users[i].ID
		ids = append(ids, &id)
	}
	if len(ids) == 0 {
		return []*uuid.UUID{nil}
	}
	return ids
}

func describeEvent(a *model.DiscountApproval, event approval.EventType) (string, string) {
	switch event {
	case approval.EventRequested:
		return model.NotifyApprovalRequested, "Discount approval requested"
	case approval.EventResubmitted:
		return model.NotifyApprovalResubmit, "Discount approval resubmitted"
	case approval.EventApproved:
		return model.NotifyApprovalApproved, "Discount approved"
	case approval.EventRejected:
		return model.NotifyApprovalRejected, "Discount rejected"
	case approval.EventEscalated:
		return model.NotifyApprovalEscalated, "Discount approval escalated"
	}
	return string(event), fmt.Sprintf("Approval %s updated", a.ID)
}
