// Package notifier is the post-commit notification collaborator. The
// ledger calls it after an atomic unit commits; delivery is best-effort
// and never affects the outcome of the operation.
package notifier

import (
	"context"
	"time"
)

type Notifier interface {
	Notify(ctx context.Context, ownerID, subject, templateKey string, payload map[string]any) error
}

// Template keys rendered by the delivery side.
const (
	TemplateDeposit          = "deposit"
	TemplateWithdrawal       = "withdrawal"
	TemplateLoanApproved     = "loan_approved"
	TemplateLoanRepaid       = "loan_repaid"
	TemplateTransferSent     = "transfer_sent"
	TemplateTransferReceived = "transfer_received"
)

// Message is the envelope published for every ledger notification.
type Message struct {
	OwnerID   string         `json:"ownerId"`
	Subject   string         `json:"subject"`
	Template  string         `json:"template"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
