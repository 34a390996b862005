package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Common errors
var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotRecipient         = errors.New("not the recipient of this notification")
)

// Service handles notification business logic
type Service struct {
	repo   *Repository
	logger *zap.Logger
}

// NewService creates a new notification service
func NewService(repo *Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// GetByID retrieves a notification of the landlord
func (s *Service) GetByID(ctx context.Context, id, landlordID int64) (*Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, ErrNotificationNotFound
	}
	if n.RecipientID != landlordID {
		return nil, ErrNotRecipient
	}
	return n, nil
}

// ListByRecipientID retrieves all notifications for a landlord
func (s *Service) ListByRecipientID(ctx context.Context, recipientID int64, page, perPage int, unreadOnly bool) ([]*Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.ListByRecipientID(ctx, recipientID, perPage, offset, unreadOnly)
}

// MarkAsRead marks a notification as read
func (s *Service) MarkAsRead(ctx context.Context, id, landlordID int64) error {
	if _, err := s.GetByID(ctx, id, landlordID); err != nil {
		return err
	}
	return s.repo.MarkAsRead(ctx, id)
}

// MarkAllAsRead marks all notifications as read for a landlord
func (s *Service) MarkAllAsRead(ctx context.Context, landlordID int64) error {
	return s.repo.MarkAllAsRead(ctx, landlordID)
}

// GetUnreadCount returns the count of unread notifications
func (s *Service) GetUnreadCount(ctx context.Context, landlordID int64) (int, error) {
	return s.repo.GetUnreadCount(ctx, landlordID)
}

// NotifyStatement tells the landlord the outcome of one tenant's statement
func (s *Service) NotifyStatement(ctx context.Context, landlordID int64, runID uuid.UUID, tenantID int64, tenantName string, difference decimal.Decimal) (*Notification, error) {
	kind := TypeFor(difference)

	var message string
	switch kind {
	case TypeBalanceDue:
		message = fmt.Sprintf("%s owes a balance of %s EUR", tenantName, difference.StringFixed(2))
	case TypeRefund:
		message = fmt.Sprintf("%s is due a refund of %s EUR", tenantName, difference.Abs().StringFixed(2))
	default:
		message = fmt.Sprintf("%s is settled, prepayments matched the costs", tenantName)
	}

	n, err := s.repo.Create(ctx, &Notification{
		RecipientID: landlordID,
		Type:        kind,
		Message:     message,
		TenantID:    &tenantID,
		RunID:       &runID,
		Amount:      difference,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("statement notice created",
		zap.Int64("notification_id", n.ID),
		zap.Int64("tenant_id", tenantID),
		zap.String("type", string(kind)),
	)
	return n, nil
}
