package notification

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Notification is a notice to the landlord about a settled tenant
type Notification struct {
	ID          int64           `json:"id"`
	RecipientID int64           `json:"recipient_id"` // landlord
	Type        Type            `json:"type"`
	Message     string          `json:"message"`
	TenantID    *int64          `json:"tenant_id,omitempty"`
	RunID       *uuid.UUID      `json:"run_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	IsRead      bool            `json:"is_read"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Type represents the type of notification
type Type string

const (
	TypeBalanceDue Type = "BALANCE_DUE" // tenant has to pay
	TypeRefund     Type = "REFUND"      // landlord has to refund
	TypeSettled    Type = "SETTLED"     // prepayments matched the costs
)

// TypeFor classifies a settlement difference
func TypeFor(difference decimal.Decimal) Type {
	switch {
	case difference.IsPositive():
		return TypeBalanceDue
	case difference.IsNegative():
		return TypeRefund
	default:
		return TypeSettled
	}
}
