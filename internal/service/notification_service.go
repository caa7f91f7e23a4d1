package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crm-backend/internal/approval"
	"crm-backend/internal/model"
	"crm-backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationResponse struct {
	ID          string  `json:"id"`
	RecipientID *string `json:"recipient_id"`
	Type        string  `json:"type"`
	Title       string  `json:"title"`
	Message     string  `json:"message"`
	EntityID    string  `json:"entity_id"`
	Read        bool    `json:"read"`
	CreatedAt   string  `json:"created_at"`
}

type NotificationService interface {
	ListForUser(ctx context.Context, userID string, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

type notificationService struct {
	notificationRepo repository.NotificationRepository
}

func NewNotificationService(notificationRepo repository.NotificationRepository) NotificationService {
	return &notificationService{notificationRepo: notificationRepo}
}

func (s *notificationService) ListForUser(ctx context.Context, userID string, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, 0, &approval.ValidationError{Field: "user_id", Message: "not a valid uuid"}
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	notifications, total, err := s.notificationRepo.ListForUser(ctx, id, unreadOnly, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}

	responses := make([]NotificationResponse, 0, len(notifications))
	for i := range notifications {
		responses = append(responses, toNotificationResponse(&notifications[i]))
	}
	return responses, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID string) error {
	notificationID, err := uuid.Parse(id)
	if err != nil {
		return &approval.ValidationError{Field: "id", Message: "not a valid uuid"}
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return &approval.ValidationError{Field: "user_id", Message: "not a valid uuid"}
	}

	if err := s.notificationRepo.MarkRead(ctx, notificationID, uid); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &approval.ValidationError{Field: "id", Message: "notification not found"}
		}
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return &approval.ValidationError{Field: "user_id", Message: "not a valid uuid"}
	}
	if err := s.notificationRepo.MarkAllRead(ctx, uid); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

func toNotificationResponse(n *model.Notification) NotificationResponse {
	resp := NotificationResponse{
		ID:        n.ID.String(),
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		EntityID:  n.EntityID,
		Read:      n.Read,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
	if n.RecipientID != nil {
		id := n.RecipientID.String()
		resp.RecipientID = &id
	}
	return resp
}
